// Package sequencer plays a playlist of clips, pausing each one at its trigger
// time to ask a question and moving on, retrying or restarting depending on
// the verdict.
//
// A Sequencer is owned by a single scheduler.Loop. Every method must be called
// from that loop; nothing here blocks or spawns goroutines.
package sequencer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/heimdex/reelquiz/internal/media"
	"github.com/heimdex/reelquiz/internal/playlist"
	"github.com/heimdex/reelquiz/internal/question"
	"github.com/heimdex/reelquiz/internal/scheduler"
)

const (
	DefaultGraceDelay    = 2 * time.Second
	DefaultFeedbackDelay = 1 * time.Second
	DefaultFadeDuration  = 1 * time.Second
	DefaultFadeHold      = 500 * time.Millisecond
)

// Transition is the scene-transition collaborator invoked once the last clip
// has finished.
type Transition interface {
	GoToMenu()
}

// TransitionFunc adapts a plain func to Transition.
type TransitionFunc func()

func (f TransitionFunc) GoToMenu() { f() }

// Asker is the part of question.Gate the sequencer drives.
type Asker interface {
	Present(q question.Question, onVerdict func(question.Outcome))
	Dismiss()
	Active() bool
}

// Fader is the optional fade-to-black collaborator.
type Fader interface {
	FadeTo(target float64, d time.Duration, done func())
	Cancel()
}

type Config struct {
	Playlist   *playlist.Playlist
	Player     media.Player
	Gate       Asker
	Loop       *scheduler.Loop
	Transition Transition
	Fader      Fader
	Logger     *slog.Logger

	GraceDelay        time.Duration
	FeedbackDelay     time.Duration
	FadeDuration      time.Duration
	FadeHold          time.Duration
	WrongAnswerPolicy Policy
	Fades             bool

	// OnStateChange, if set, is called after every state transition.
	OnStateChange func(prev, next State, index int)
}

type Sequencer struct {
	playlist   *playlist.Playlist
	player     media.Player
	gate       Asker
	loop       *scheduler.Loop
	transition Transition
	fader      Fader
	logger     *slog.Logger

	graceDelay    time.Duration
	feedbackDelay time.Duration
	fadeDuration  time.Duration
	fadeHold      time.Duration
	policy        Policy
	fades         bool
	onStateChange func(prev, next State, index int)

	state                State
	currentIndex         int
	hasTriggeredSlowdown bool
	isPaused             bool
	playingAlternate     bool
	closed               bool

	// pending is the one delayed step of the state machine (grace delay or
	// feedback delay); fadeTimer is the hold between clips before fading in.
	pending   *scheduler.Timer
	fadeTimer *scheduler.Timer

	stopTick       func()
	unsubscribeEnd func()
}

// Snapshot is a copy of the playback state.
type Snapshot struct {
	State                State
	CurrentIndex         int
	Len                  int
	HasTriggeredSlowdown bool
	IsPaused             bool
	PlayingAlternate     bool
}

// New validates the collaborators and subscribes to the player's end-of-media
// event. Call Close to release the subscription.
func New(cfg Config) (*Sequencer, error) {
	var errs []error
	if cfg.Playlist == nil {
		errs = append(errs, errors.New("playlist is required"))
	}
	if cfg.Player == nil {
		errs = append(errs, errors.New("media player is required"))
	}
	if cfg.Gate == nil {
		errs = append(errs, errors.New("question gate is required"))
	}
	if cfg.Loop == nil {
		errs = append(errs, errors.New("scheduler loop is required"))
	}
	if cfg.Transition == nil {
		errs = append(errs, errors.New("scene transition is required"))
	}
	if cfg.WrongAnswerPolicy == "" {
		cfg.WrongAnswerPolicy = PolicyRestart
	} else if _, err := ParsePolicy(string(cfg.WrongAnswerPolicy)); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid sequencer config: %w", errors.Join(errs...))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sequencer{
		playlist:      cfg.Playlist,
		player:        cfg.Player,
		gate:          cfg.Gate,
		loop:          cfg.Loop,
		transition:    cfg.Transition,
		fader:         cfg.Fader,
		logger:        logger,
		graceDelay:    orDefault(cfg.GraceDelay, DefaultGraceDelay),
		feedbackDelay: orDefault(cfg.FeedbackDelay, DefaultFeedbackDelay),
		fadeDuration:  orDefault(cfg.FadeDuration, DefaultFadeDuration),
		fadeHold:      orDefault(cfg.FadeHold, DefaultFadeHold),
		policy:        cfg.WrongAnswerPolicy,
		fades:         cfg.Fades,
		onStateChange: cfg.OnStateChange,
	}

	if s.fades && s.fader == nil {
		logger.Warn("fades enabled without a fade surface, transitions will cut")
		s.fades = false
	}

	s.unsubscribeEnd = s.player.OnReachedEnd(s.OnClipFinished)
	return s, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Start plays the first clip. It is a no-op when the playlist is empty or the
// sequence was already started.
func (s *Sequencer) Start() {
	if s.closed || s.state != StateIdle {
		s.logger.Warn("sequence already started", "state", s.state)
		return
	}
	if s.playlist.Len() == 0 {
		s.logger.Warn("playlist is empty, nothing to play")
		return
	}

	s.stopTick = s.loop.EveryTick(s.tick)
	s.logger.Info("sequence started", "units", s.playlist.Len(), "policy", s.policy)
	s.playCurrent()
}

func (s *Sequencer) tick(time.Duration) {
	if s.state != StatePlaying || !s.player.IsPlaying() {
		return
	}
	s.OnTick(s.player.CurrentTime())
}

// OnTick checks elapsed clip time against the current trigger. The slowdown
// fires at most once per clip.
func (s *Sequencer) OnTick(elapsed time.Duration) {
	if s.closed || s.state != StatePlaying || s.hasTriggeredSlowdown {
		return
	}
	unit := s.current()
	if elapsed < unit.TriggerTime {
		return
	}

	s.hasTriggeredSlowdown = true
	s.player.SetRate(unit.SlowdownFactor)
	s.setState(StateSlowedDown)
	s.logger.Info("clip slowed down", "index", s.currentIndex, "clip", unit.Clip.Path, "rate", unit.SlowdownFactor)

	s.schedule(s.graceDelay, s.presentQuestion)
}

func (s *Sequencer) presentQuestion() {
	s.cancelPending()
	if s.closed || s.state != StateSlowedDown {
		s.logger.Debug("dropping stale question", "state", s.state)
		return
	}

	s.player.Pause()
	s.isPaused = true
	s.setState(StateQuestionPending)

	unit := s.current()
	s.logger.Info("question shown", "index", s.currentIndex, "prompt", unit.Prompt)
	s.gate.Present(questionOf(unit), s.onAnswer)
}

func (s *Sequencer) onAnswer(outcome question.Outcome) {
	if s.closed || s.state != StateQuestionPending {
		return
	}
	s.logger.Info("answer received", "index", s.currentIndex, "position", outcome.Position, "correct", outcome.Correct)
	s.schedule(s.feedbackDelay, func() { s.resolve(outcome) })
}

func (s *Sequencer) resolve(outcome question.Outcome) {
	s.pending = nil
	if s.closed || s.state != StateQuestionPending {
		return
	}
	s.gate.Dismiss()

	if outcome.Correct {
		s.resume()
		return
	}

	switch s.policy {
	case PolicyRetry:
		s.logger.Info("wrong answer, asking again", "index", s.currentIndex)
		s.gate.Present(questionOf(s.current()), s.onAnswer)
	default:
		s.restart()
	}
}

func (s *Sequencer) resume() {
	s.player.SetRate(1)
	s.player.Play()
	s.isPaused = false
	s.setState(StatePlaying)
}

func (s *Sequencer) restart() {
	unit := s.current()
	s.setState(StateRestarting)
	s.fadeOut(func() {
		if unit.WrongAnswerClip != nil {
			s.playAlternate(*unit.WrongAnswerClip)
			return
		}
		s.logger.Warn("no wrong answer clip, restarting clip", "index", s.currentIndex, "clip", unit.Clip.Path)
		s.restartCurrent()
	})
}

func (s *Sequencer) playAlternate(clip playlist.Clip) {
	s.logger.Info("playing wrong answer clip", "index", s.currentIndex, "clip", clip.Path)
	s.playingAlternate = true
	s.player.Load(clip)
	s.player.SetRate(1)
	s.player.Play()
	s.isPaused = false
	s.fadeIn()
}

func (s *Sequencer) restartCurrent() {
	unit := s.current()
	if s.playingAlternate {
		s.player.Load(unit.Clip)
		s.playingAlternate = false
	}
	s.player.Seek(0)
	s.player.SetRate(1)
	s.player.Play()
	s.hasTriggeredSlowdown = false
	s.isPaused = false
	s.setState(StatePlaying)
	s.logger.Info("clip restarted", "index", s.currentIndex, "clip", unit.Clip.Path)
	s.fadeIn()
}

// OnClipFinished handles end-of-media. It is ignored while a question is on
// screen so a clip ending under the pause cannot double-advance.
func (s *Sequencer) OnClipFinished() {
	if s.closed {
		return
	}
	if s.gate.Active() || s.state == StateQuestionPending {
		s.logger.Debug("clip end ignored while question is displayed", "index", s.currentIndex)
		return
	}

	switch s.state {
	case StateSlowedDown:
		// The clip ran out inside the grace delay; ask now.
		s.presentQuestion()
	case StateRestarting:
		if s.playingAlternate {
			s.fadeOut(s.restartCurrent)
		}
	case StatePlaying:
		s.advance()
	}
}

func (s *Sequencer) advance() {
	s.setState(StateAdvancing)
	s.fadeOut(func() {
		s.currentIndex++
		if s.currentIndex >= s.playlist.Len() {
			s.onSequenceComplete()
			return
		}
		s.playCurrent()
		if s.fades {
			s.fadeTimer.Stop()
			s.fadeTimer = s.loop.After(s.fadeHold, s.fadeIn)
		}
	})
}

func (s *Sequencer) onSequenceComplete() {
	if s.state == StateComplete {
		return
	}
	s.cancelPending()
	s.fadeTimer.Stop()
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
	s.setState(StateComplete)
	s.logger.Info("all clips played", "units", s.playlist.Len())
	s.transition.GoToMenu()
}

func (s *Sequencer) playCurrent() {
	unit := s.current()
	s.hasTriggeredSlowdown = false
	s.isPaused = false
	s.playingAlternate = false

	s.player.Load(unit.Clip)
	s.player.SetRate(1)
	s.player.Play()
	s.setState(StatePlaying)
	s.logger.Info("playing clip", "index", s.currentIndex, "clip", unit.Clip.Path)
}

// Close cancels every pending timer and fade and releases the player
// subscription. The sequencer ignores all events afterwards.
func (s *Sequencer) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancelPending()
	s.fadeTimer.Stop()
	if s.fader != nil {
		s.fader.Cancel()
	}
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
	if s.unsubscribeEnd != nil {
		s.unsubscribeEnd()
		s.unsubscribeEnd = nil
	}
	s.gate.Dismiss()
}

func (s *Sequencer) Snapshot() Snapshot {
	return Snapshot{
		State:                s.state,
		CurrentIndex:         s.currentIndex,
		Len:                  s.playlist.Len(),
		HasTriggeredSlowdown: s.hasTriggeredSlowdown,
		IsPaused:             s.isPaused,
		PlayingAlternate:     s.playingAlternate,
	}
}

func (s *Sequencer) current() playlist.SceneUnit {
	return s.playlist.Units[s.currentIndex]
}

func (s *Sequencer) schedule(d time.Duration, fn func()) {
	s.cancelPending()
	s.pending = s.loop.After(d, fn)
}

func (s *Sequencer) cancelPending() {
	s.pending.Stop()
	s.pending = nil
}

func (s *Sequencer) fadeOut(done func()) {
	if !s.fades {
		done()
		return
	}
	s.fadeTimer.Stop()
	s.fader.FadeTo(1, s.fadeDuration, done)
}

func (s *Sequencer) fadeIn() {
	if !s.fades {
		return
	}
	s.fader.FadeTo(0, s.fadeDuration, nil)
}

func (s *Sequencer) setState(next State) {
	prev := s.state
	s.state = next
	if s.onStateChange != nil && prev != next {
		s.onStateChange(prev, next, s.currentIndex)
	}
}

func questionOf(u playlist.SceneUnit) question.Question {
	return question.Question{Prompt: u.Prompt, Choices: u.Choices, CorrectIndex: u.CorrectIndex}
}
