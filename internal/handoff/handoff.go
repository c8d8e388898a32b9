// Package handoff tells the host application a playthrough is over so it can
// load the next experience.
package handoff

import (
	"context"
	"log/slog"
	"time"
)

// Completion describes a finished playthrough.
type Completion struct {
	SessionID   string    `json:"session_id"`
	PlaylistID  string    `json:"playlist_id"`
	Playlist    string    `json:"playlist"`
	Units       int       `json:"units"`
	Answers     int       `json:"answers"`
	Wrong       int       `json:"wrong_answers"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

type Notifier interface {
	NotifyComplete(ctx context.Context, c Completion) error
}

// StubNotifier only logs. Used when no handoff URL is configured.
type StubNotifier struct {
	logger *slog.Logger
}

func NewStubNotifier(logger *slog.Logger) *StubNotifier {
	return &StubNotifier{logger: logger}
}

func (n *StubNotifier) NotifyComplete(ctx context.Context, c Completion) error {
	n.logger.Info("handoff stub: returning to menu",
		"session_id", c.SessionID,
		"playlist_id", c.PlaylistID,
		"answers", c.Answers,
		"wrong_answers", c.Wrong,
	)
	return nil
}
