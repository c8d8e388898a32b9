package session

import (
	"time"

	"github.com/heimdex/reelquiz/internal/question"
)

// Snapshot is an immutable view of a session, published after every frame.
type Snapshot struct {
	ID           string
	PlaylistID   string
	PlaylistName string
	State        string
	CurrentIndex int
	Units        int

	Clip    ClipView
	Board   question.BoardView
	Curtain float64

	HasTriggeredSlowdown bool
	Paused               bool
	Answers              int
	WrongAnswers         int
	Complete             bool
	StartedAt            time.Time
	CompletedAt          time.Time
}

// ClipView is what a renderer needs to mirror the clip clock.
type ClipView struct {
	Path      string
	Duration  time.Duration
	Position  time.Duration
	Rate      float64
	Playing   bool
	Alternate bool
}

// Snapshot returns the state published after the latest frame.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// publish runs on the loop.
func (s *Session) publish() {
	seq := s.seq.Snapshot()
	clip, _ := s.player.Clip()

	snap := Snapshot{
		ID:           s.id,
		PlaylistID:   s.playlist.ID,
		PlaylistName: s.playlist.Name,
		State:        seq.State.String(),
		CurrentIndex: seq.CurrentIndex,
		Units:        seq.Len,
		Clip: ClipView{
			Path:      clip.Path,
			Duration:  clip.Duration,
			Position:  s.player.CurrentTime(),
			Rate:      s.player.Rate(),
			Playing:   s.player.IsPlaying(),
			Alternate: seq.PlayingAlternate,
		},
		Board:                s.board.Snapshot(),
		Curtain:              s.curtain.Opacity(),
		HasTriggeredSlowdown: seq.HasTriggeredSlowdown,
		Paused:               seq.IsPaused,
		Answers:              s.answers,
		WrongAnswers:         s.wrong,
		Complete:             s.complete,
		StartedAt:            s.startedAt,
		CompletedAt:          s.completedAt,
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}
