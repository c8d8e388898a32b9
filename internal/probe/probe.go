// Package probe reads clip durations from media files so authored playlists
// may omit them.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrUnknownDuration is returned when a file was read but carries no usable
// duration.
var ErrUnknownDuration = errors.New("clip duration unknown")

type Prober interface {
	Probe(ctx context.Context, path string) (Result, error)
}

type Result struct {
	Duration time.Duration `json:"duration"`
	Format   string        `json:"format,omitempty"`
	ProbedAt time.Time     `json:"probed_at"`
}

// StubProber is used when ffprobe is not installed. Every probe fails with
// ErrUnknownDuration, so playlists must carry explicit durations.
type StubProber struct {
	logger *slog.Logger
}

func NewStubProber(logger *slog.Logger) *StubProber {
	return &StubProber{logger: logger}
}

func (p *StubProber) Probe(ctx context.Context, path string) (Result, error) {
	if p.logger != nil {
		p.logger.Info("probe stub: duration requested (ffprobe not available)", "path", path)
	}
	return Result{}, ErrUnknownDuration
}
