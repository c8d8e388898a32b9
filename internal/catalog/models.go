package catalog

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/reelquiz/internal/playlist"
)

// PlaylistSummary is a playlist row without its units.
type PlaylistSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path,omitempty"`
	Units      int       `json:"units"`
	CreatedAt  time.Time `json:"created_at"`
}

func Summarize(p *playlist.Playlist) PlaylistSummary {
	return PlaylistSummary{
		ID:         p.ID,
		Name:       p.Name,
		SourcePath: p.SourcePath,
		Units:      p.Len(),
		CreatedAt:  p.CreatedAt,
	}
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var ClipExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

func NewID() string {
	return uuid.NewString()
}

func IsClipFile(filename string) bool {
	return ClipExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsPlaylistFile reports whether filename looks like a playlist document.
func IsPlaylistFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}
