package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Runner imports playlist files reported by the directory watcher. A change
// is applied once the file has been quiet for one poll interval, so
// half-written documents are not imported.
type Runner struct {
	service      CatalogService
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool

	mu      sync.Mutex
	pending map[string]pendingChange

	// OnImport, if set, is called after every successful import or removal.
	OnImport func()
}

type pendingChange struct {
	deleted bool
	seen    time.Time
}

func NewRunner(service CatalogService, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		logger:       logger,
		pollInterval: 2 * time.Second,
		pending:      make(map[string]pendingChange),
	}
}

// Enqueue records a change to path. A later change to the same path replaces
// the earlier one and restarts its quiet period.
func (r *Runner) Enqueue(path string, deleted bool) {
	r.mu.Lock()
	r.pending[path] = pendingChange{deleted: deleted, seen: time.Now()}
	r.mu.Unlock()
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("import runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("import runner stopping")
			r.running.Store(false)
			return
		case now := <-ticker.C:
			if !r.paused.Load() {
				r.processPending(ctx, now)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("import runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("import runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Pending returns the number of changes waiting to be applied.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Runner) processPending(ctx context.Context, now time.Time) {
	cutoff := now.Add(-r.pollInterval)

	r.mu.Lock()
	ready := make(map[string]bool)
	for path, c := range r.pending {
		if !c.seen.After(cutoff) {
			ready[path] = c.deleted
			delete(r.pending, path)
		}
	}
	r.mu.Unlock()

	changed := false
	for path, deleted := range ready {
		if ctx.Err() != nil {
			return
		}
		if deleted {
			removed, err := r.service.RemoveFile(ctx, path)
			if err != nil {
				r.logger.Error("failed to remove playlist", "file", filepath.Base(path), "error", err)
				continue
			}
			changed = changed || removed
			continue
		}

		res, err := r.service.ImportFile(ctx, path)
		if err != nil {
			r.logger.Warn("failed to import playlist", "file", filepath.Base(path), "error", err)
			continue
		}
		r.logger.Info("playlist synced", "file", filepath.Base(path), "playlist_id", res.Playlist.ID, "replaced", res.Replaced)
		changed = true
	}

	if changed && r.OnImport != nil {
		r.OnImport()
	}
}
