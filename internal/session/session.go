// Package session runs playthroughs. Each Session owns one scheduler loop and
// everything driven by it: the clip clock, the question board, the fade
// curtain and the sequencer. The loop runs on the session's own goroutine;
// other goroutines observe it through snapshots and talk to it through Post.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/reelquiz/internal/fade"
	"github.com/heimdex/reelquiz/internal/handoff"
	"github.com/heimdex/reelquiz/internal/media"
	"github.com/heimdex/reelquiz/internal/playlist"
	"github.com/heimdex/reelquiz/internal/question"
	"github.com/heimdex/reelquiz/internal/scheduler"
	"github.com/heimdex/reelquiz/internal/sequencer"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrNoQuestion      = errors.New("no question awaiting an answer")
	ErrInvalidChoice   = errors.New("choice out of range")
)

const handoffTimeout = 10 * time.Second

type Options struct {
	TickInterval  time.Duration
	GraceDelay    time.Duration
	FeedbackDelay time.Duration
	FadeDuration  time.Duration
	FadeHold      time.Duration
	Policy        sequencer.Policy
	Fades         bool
	Slots         int
}

func DefaultOptions() Options {
	return Options{
		TickInterval:  time.Second / 60,
		GraceDelay:    sequencer.DefaultGraceDelay,
		FeedbackDelay: sequencer.DefaultFeedbackDelay,
		FadeDuration:  sequencer.DefaultFadeDuration,
		FadeHold:      sequencer.DefaultFadeHold,
		Policy:        sequencer.PolicyRestart,
		Fades:         true,
		Slots:         question.DefaultSlots,
	}
}

// Curtain is the fade surface of a session, read by renderers.
type Curtain struct {
	mu    sync.RWMutex
	alpha float64
}

func (c *Curtain) SetOpacity(alpha float64) {
	c.mu.Lock()
	c.alpha = alpha
	c.mu.Unlock()
}

func (c *Curtain) Opacity() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alpha
}

type Session struct {
	id       string
	playlist *playlist.Playlist
	opts     Options
	logger   *slog.Logger
	notifier handoff.Notifier

	loop    *scheduler.Loop
	player  *media.VirtualPlayer
	board   *question.Board
	gate    *question.Gate
	curtain *Curtain
	seq     *sequencer.Sequencer

	startedAt time.Time

	// Owned by the loop goroutine.
	answers     int
	wrong       int
	complete    bool
	completedAt time.Time

	mu   sync.RWMutex
	snap Snapshot

	quit      chan struct{}
	quitOnce  sync.Once
	done      chan struct{}
	handoffWG sync.WaitGroup
}

// New wires a session for p. It does not start playback; call Run.
func New(id string, p *playlist.Playlist, opts Options, notifier handoff.Notifier, logger *slog.Logger) (*Session, error) {
	if p == nil || p.Len() == 0 {
		return nil, playlist.ErrEmptyPlaylist
	}
	if notifier == nil {
		return nil, errors.New("handoff notifier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultOptions().TickInterval
	}

	s := &Session{
		id:        id,
		playlist:  p,
		opts:      opts,
		logger:    logger,
		notifier:  notifier,
		loop:      scheduler.New(),
		player:    media.NewVirtualPlayer(),
		board:     question.NewBoard(opts.Slots),
		curtain:   &Curtain{},
		startedAt: time.Now().UTC(),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	// The clip clock must advance before the sequencer reads it each frame.
	s.loop.EveryTick(s.player.Advance)

	gate, err := question.NewGate(s.board, logger)
	if err != nil {
		return nil, err
	}
	s.gate = gate

	var fader sequencer.Fader
	if opts.Fades {
		fader = fade.New(s.loop, s.curtain)
	}

	seq, err := sequencer.New(sequencer.Config{
		Playlist:          p,
		Player:            s.player,
		Gate:              scoringGate{Gate: gate, s: s},
		Loop:              s.loop,
		Transition:        sequencer.TransitionFunc(s.goToMenu),
		Fader:             fader,
		Logger:            logger,
		GraceDelay:        opts.GraceDelay,
		FeedbackDelay:     opts.FeedbackDelay,
		FadeDuration:      opts.FadeDuration,
		FadeHold:          opts.FadeHold,
		WrongAnswerPolicy: opts.Policy,
		Fades:             opts.Fades,
		OnStateChange: func(prev, next sequencer.State, index int) {
			logger.Debug("state changed", "from", prev.String(), "to", next.String(), "index", index)
		},
	})
	if err != nil {
		return nil, err
	}
	s.seq = seq
	s.publish()
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Run starts playback and ticks the loop until the sequence completes, ctx
// is cancelled or Close is called.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	defer s.seq.Close()

	select {
	case <-s.quit:
		return
	default:
	}

	s.begin()

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	last := time.Now()

	for !s.complete {
		select {
		case <-ctx.Done():
			s.logger.Info("session cancelled")
			return
		case <-s.quit:
			s.logger.Info("session closed")
			return
		case now := <-ticker.C:
			s.step(now.Sub(last))
			last = now
		}
	}
}

// Close stops the session loop. Safe to call more than once.
func (s *Session) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// WaitHandoff blocks until the completion notification, if any, was sent.
func (s *Session) WaitHandoff() {
	s.handoffWG.Wait()
}

// Answer activates the choice at position on the loop and waits for the
// result.
func (s *Session) Answer(ctx context.Context, position int) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	res := make(chan error, 1)
	s.loop.Post(func() { res <- s.answer(position) })

	select {
	case err := <-res:
		return err
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) answer(position int) error {
	if !s.gate.Awaiting() {
		return ErrNoQuestion
	}
	if !s.gate.Activate(position) {
		return fmt.Errorf("%w: %d", ErrInvalidChoice, position)
	}
	s.publish()
	return nil
}

func (s *Session) begin() {
	s.logger.Info("session started", "playlist", s.playlist.Name, "units", s.playlist.Len())
	s.seq.Start()
	s.publish()
}

func (s *Session) step(dt time.Duration) {
	s.loop.Tick(dt)
	s.publish()
}

// goToMenu runs on the loop when the last clip has finished.
func (s *Session) goToMenu() {
	s.complete = true
	s.completedAt = time.Now().UTC()

	c := handoff.Completion{
		SessionID:   s.id,
		PlaylistID:  s.playlist.ID,
		Playlist:    s.playlist.Name,
		Units:       s.playlist.Len(),
		Answers:     s.answers,
		Wrong:       s.wrong,
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
	}
	s.logger.Info("session complete", "answers", s.answers, "wrong_answers", s.wrong)

	s.handoffWG.Add(1)
	go func() {
		defer s.handoffWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), handoffTimeout)
		defer cancel()
		if err := s.notifier.NotifyComplete(ctx, c); err != nil {
			s.logger.Error("handoff failed", "error", err)
		}
	}()
}

// scoringGate counts verdicts on their way to the sequencer.
type scoringGate struct {
	*question.Gate
	s *Session
}

func (g scoringGate) Present(q question.Question, onVerdict func(question.Outcome)) {
	g.Gate.Present(q, func(o question.Outcome) {
		g.s.answers++
		if !o.Correct {
			g.s.wrong++
		}
		onVerdict(o)
	})
}
