package ui

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestLabels(t *testing.T) {
	tests := []struct {
		paused bool
		active int
		want   string
	}{
		{false, 0, "Status: Idle"},
		{true, 0, "Status: Paused"},
		{true, 2, "Status: Playing"},
		{false, 1, "Status: Playing"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.paused, tt.active); got != tt.want {
			t.Errorf("statusLabel(%v, %d) = %q, want %q", tt.paused, tt.active, got, tt.want)
		}
	}

	if got := sessionsLabel(3); got != "Sessions: 3 active" {
		t.Errorf("sessionsLabel(3) = %q", got)
	}
	if got := playlistsLabel(7); got != "Playlists: 7" {
		t.Errorf("playlistsLabel(7) = %q", got)
	}
}

func TestIconIsPNG(t *testing.T) {
	if !bytes.HasPrefix(iconBytes, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("embedded icon is not a PNG (%d bytes)", len(iconBytes))
	}
}

func TestRefresh_BeforeReady(t *testing.T) {
	tray := NewTray(TrayConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	// Menu items do not exist yet; Refresh must not touch them.
	tray.Refresh(context.Background())
}
