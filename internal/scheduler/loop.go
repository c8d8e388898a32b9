// Package scheduler provides the single-threaded cooperative loop that drives a
// playthrough. All state owned by a loop is touched only from inside Tick;
// other goroutines hand work over with Post.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Loop is a frame-driven scheduler with its own clock. It is not safe for
// concurrent use except for Post.
type Loop struct {
	mu    sync.Mutex
	inbox []func()

	now     time.Duration
	seq     uint64
	timers  []*Timer
	tickers []*ticker
}

// Timer is a cancellable one-shot callback scheduled on a Loop.
type Timer struct {
	due     time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

type ticker struct {
	fn      func(dt time.Duration)
	stopped bool
}

func New() *Loop {
	return &Loop{}
}

// Now returns the loop clock: the sum of all dt passed to Tick.
func (l *Loop) Now() time.Duration {
	return l.now
}

// Post queues fn to run at the start of the next Tick. Safe for concurrent use.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.inbox = append(l.inbox, fn)
	l.mu.Unlock()
}

// After schedules fn to run once the loop clock has advanced by d.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	l.seq++
	t := &Timer{due: l.now + d, seq: l.seq, fn: fn}
	l.timers = append(l.timers, t)
	return t
}

// EveryTick registers fn to run on every Tick with the frame delta. The
// returned func unregisters it.
func (l *Loop) EveryTick(fn func(dt time.Duration)) (cancel func()) {
	tk := &ticker{fn: fn}
	l.tickers = append(l.tickers, tk)
	return func() { tk.stopped = true }
}

// Tick runs one frame: posted work, per-tick callbacks, then every timer that
// was due when the frame started, in due order.
func (l *Loop) Tick(dt time.Duration) {
	l.mu.Lock()
	inbox := l.inbox
	l.inbox = nil
	l.mu.Unlock()
	for _, fn := range inbox {
		fn()
	}

	if dt < 0 {
		dt = 0
	}
	l.now += dt

	tickers := l.tickers[:0:0]
	for _, tk := range l.tickers {
		if !tk.stopped {
			tickers = append(tickers, tk)
		}
	}
	l.tickers = tickers
	for _, tk := range append([]*ticker(nil), tickers...) {
		if !tk.stopped {
			tk.fn(dt)
		}
	}

	l.fireDue()
}

// Pending reports the number of timers that have neither fired nor been stopped.
func (l *Loop) Pending() int {
	n := 0
	for _, t := range l.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (l *Loop) fireDue() {
	var due, rest []*Timer
	for _, t := range l.timers {
		switch {
		case t.stopped:
		case t.due <= l.now:
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	l.timers = rest

	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		if t.stopped {
			continue
		}
		t.fired = true
		t.fn()
	}
}

// Stop cancels the timer. It reports whether the call prevented the timer
// from firing. Stop on a nil Timer is a no-op.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Active reports whether the timer is still scheduled.
func (t *Timer) Active() bool {
	return t != nil && !t.stopped && !t.fired
}
