package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/reelquiz/internal/handoff"
	"github.com/heimdex/reelquiz/internal/logging"
	"github.com/heimdex/reelquiz/internal/playlist"
)

// DefaultRetention is how long a finished session stays listed.
const DefaultRetention = 10 * time.Minute

// Manager owns the running sessions of the agent.
type Manager struct {
	ctx      context.Context
	opts     Options
	notifier handoff.Notifier
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	expiry   map[string]*time.Timer
	wg       sync.WaitGroup

	// Retention is how long a session is kept after its loop returns.
	// Zero or less drops it immediately.
	Retention time.Duration

	// OnChange, if set, is called when a session starts, completes or is
	// closed.
	OnChange func()
}

// NewManager creates a Manager whose sessions stop when ctx is cancelled.
func NewManager(ctx context.Context, opts Options, notifier handoff.Notifier, logger *slog.Logger) *Manager {
	return &Manager{
		ctx:      ctx,
		opts:     opts,
		notifier: notifier,
		logger:   logger,
		sessions:  make(map[string]*Session),
		expiry:    make(map[string]*time.Timer),
		Retention: DefaultRetention,
	}
}

// Start validates p and runs a new session for it.
func (m *Manager) Start(p *playlist.Playlist) (*Session, error) {
	if p == nil {
		return nil, playlist.ErrEmptyPlaylist
	}
	if err := p.Validate(m.opts.Slots); err != nil {
		return nil, fmt.Errorf("playlist %s: %w", p.ID, err)
	}

	id := uuid.NewString()
	logger := logging.WithPlaylistID(logging.WithSessionID(m.logger, id), p.ID)
	s, err := New(id, p, m.opts, m.notifier, logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.Run(m.ctx)
		m.expire(s)
		m.changed()
	}()

	m.changed()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns the snapshots of every known session, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Close stops the session and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.forget(id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.Close()
	<-s.Done()
	m.changed()
	return nil
}

// Count returns the number of sessions still playing.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if !s.Snapshot().Complete {
			n++
		}
	}
	return n
}

// Shutdown closes every session and waits for their loops and handoffs.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	for _, t := range m.expiry {
		t.Stop()
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	m.wg.Wait()
	for _, s := range sessions {
		s.WaitHandoff()
	}
}

// expire schedules the removal of a session whose loop has returned.
func (m *Manager) expire(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.id] != s {
		return
	}
	if m.Retention <= 0 {
		m.forget(s.id)
		return
	}
	m.expiry[s.id] = time.AfterFunc(m.Retention, func() {
		m.mu.Lock()
		removed := m.sessions[s.id] == s
		if removed {
			m.forget(s.id)
		}
		m.mu.Unlock()
		if removed {
			m.logger.Debug("finished session expired", "session_id", s.id)
			m.changed()
		}
	})
}

// forget must be called with mu held.
func (m *Manager) forget(id string) {
	delete(m.sessions, id)
	if t, ok := m.expiry[id]; ok {
		t.Stop()
		delete(m.expiry, id)
	}
}

func (m *Manager) changed() {
	if m.OnChange != nil {
		m.OnChange()
	}
}
