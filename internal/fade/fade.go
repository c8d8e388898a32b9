// Package fade interpolates a fade curtain's opacity over loop ticks.
package fade

import (
	"time"

	"github.com/heimdex/reelquiz/internal/scheduler"
)

// Surface is the fade UI collaborator: 0 is transparent, 1 is black.
type Surface interface {
	SetOpacity(alpha float64)
}

type Fader struct {
	loop    *scheduler.Loop
	surface Surface
	alpha   float64
	stop    func()
}

// New creates a Fader starting fully transparent.
func New(loop *scheduler.Loop, surface Surface) *Fader {
	f := &Fader{loop: loop, surface: surface}
	surface.SetOpacity(0)
	return f
}

func (f *Fader) Alpha() float64 {
	return f.alpha
}

// FadeTo linearly moves the opacity from its current value to target over d,
// then calls done. Starting a fade cancels the one in flight without calling
// its done.
func (f *Fader) FadeTo(target float64, d time.Duration, done func()) {
	f.Cancel()

	if d <= 0 {
		f.set(target)
		if done != nil {
			done()
		}
		return
	}

	start := f.alpha
	var elapsed time.Duration
	var stop func()
	stop = f.loop.EveryTick(func(dt time.Duration) {
		elapsed += dt
		if elapsed < d {
			f.set(lerp(start, target, float64(elapsed)/float64(d)))
			return
		}
		f.set(target)
		stop()
		f.stop = nil
		if done != nil {
			done()
		}
	})
	f.stop = stop
}

// Cancel stops the fade in flight, leaving the opacity where it is.
func (f *Fader) Cancel() {
	if f.stop != nil {
		f.stop()
		f.stop = nil
	}
}

func (f *Fader) Fading() bool {
	return f.stop != nil
}

func (f *Fader) set(alpha float64) {
	f.alpha = alpha
	f.surface.SetOpacity(alpha)
}

func lerp(a, b, t float64) float64 {
	if t > 1 {
		t = 1
	}
	return a + (b-a)*t
}
