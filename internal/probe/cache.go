package probe

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// CachedProber memoizes probe results per path. An entry is reused while the
// file's size and modification time are unchanged.
type CachedProber struct {
	prober Prober
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	size   int64
	mtime  time.Time
	result Result
}

func NewCachedProber(prober Prober, logger *slog.Logger) *CachedProber {
	return &CachedProber{prober: prober, logger: logger, entries: make(map[string]cacheEntry)}
}

func (c *CachedProber) Probe(ctx context.Context, path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, err
	}

	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && e.size == info.Size() && e.mtime.Equal(info.ModTime()) {
		return e.result, nil
	}

	res, err := c.prober.Probe(ctx, path)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{size: info.Size(), mtime: info.ModTime(), result: res}
	c.mu.Unlock()
	return res, nil
}

// Invalidate drops every cached result.
func (c *CachedProber) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	if c.logger != nil {
		c.logger.Debug("probe cache cleared")
	}
}

func (c *CachedProber) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
