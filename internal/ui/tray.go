// Package ui is the desktop tray for a reelquiz agent.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/heimdex/reelquiz/internal/catalog"
	"github.com/heimdex/reelquiz/internal/session"
)

type Tray struct {
	catalogSvc catalog.CatalogService
	sessions   *session.Manager
	runner     *catalog.Runner
	logger     *slog.Logger

	statusItem    *systray.MenuItem
	sessionsItem  *systray.MenuItem
	playlistsItem *systray.MenuItem
	pauseItem     *systray.MenuItem

	mu    sync.Mutex
	ready bool

	onRescan func() error
	onQuit   func()
}

type TrayConfig struct {
	CatalogService catalog.CatalogService
	Sessions       *session.Manager
	Runner         *catalog.Runner
	Logger         *slog.Logger
	OnRescan       func() error
	OnQuit         func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		catalogSvc: cfg.CatalogService,
		sessions:   cfg.Sessions,
		runner:     cfg.Runner,
		logger:     cfg.Logger,
		onRescan:   cfg.OnRescan,
		onQuit:     cfg.OnQuit,
	}
}

// Run blocks on the platform event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Reelquiz")
	systray.SetTooltip("Reelquiz Agent")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem(statusLabel(false, 0), "Current agent status")
	t.statusItem.Disable()

	t.sessionsItem = systray.AddMenuItem(sessionsLabel(0), "Running playthroughs")
	t.sessionsItem.Disable()

	t.playlistsItem = systray.AddMenuItem(playlistsLabel(0), "Imported playlists")
	t.playlistsItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause Imports", "Stop importing playlist files")
	rescanItem := systray.AddMenuItem("Import Playlists Now", "Rescan the playlists folder")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Reelquiz Agent")
	t.ready = true
	t.mu.Unlock()

	t.Refresh(context.Background())

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-rescanItem.ClickedCh:
				t.handleRescan()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause Imports")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume Imports")
	}
	t.statusItem.SetTitle(statusLabel(t.runner.IsPaused(), t.activeSessions()))
}

func (t *Tray) handleRescan() {
	if t.onRescan != nil {
		if err := t.onRescan(); err != nil {
			t.logger.Error("failed to rescan playlists", "error", err)
		}
	}
}

// Refresh re-reads the session and playlist counts. It is a no-op until the
// tray is ready.
func (t *Tray) Refresh(ctx context.Context) {
	playlists := 0
	if t.catalogSvc != nil {
		n, err := t.catalogSvc.CountPlaylists(ctx)
		if err != nil {
			t.logger.Warn("failed to count playlists", "error", err)
		}
		playlists = n
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}

	active := t.activeSessions()
	paused := t.runner != nil && t.runner.IsPaused()
	t.statusItem.SetTitle(statusLabel(paused, active))
	t.sessionsItem.SetTitle(sessionsLabel(active))
	t.playlistsItem.SetTitle(playlistsLabel(playlists))
}

func (t *Tray) activeSessions() int {
	if t.sessions == nil {
		return 0
	}
	return t.sessions.Count()
}

func (t *Tray) Quit() {
	systray.Quit()
}

func statusLabel(paused bool, active int) string {
	switch {
	case active > 0:
		return "Status: Playing"
	case paused:
		return "Status: Paused"
	default:
		return "Status: Idle"
	}
}

func sessionsLabel(active int) string {
	return fmt.Sprintf("Sessions: %d active", active)
}

func playlistsLabel(n int) string {
	return fmt.Sprintf("Playlists: %d", n)
}
