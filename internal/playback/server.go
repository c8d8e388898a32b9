// Package playback streams clip files to renderers with HTTP range support.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotClip is returned for files that are not clips, including directories.
var ErrNotClip = errors.New("not a clip file")

// Content types the platform mime table may not carry.
var clipTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

type PlaybackService interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
}

type Server struct {
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger}
}

// ServeFile writes filePath to w, honouring Range and conditional request
// headers. A missing file is answered with 404 and no error.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "clip not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open clip: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat clip: %w", err)
	}
	if stat.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotClip, filepath.Base(filePath))
	}

	w.Header().Set("Content-Type", ContentType(filePath))
	w.Header().Set("Accept-Ranges", "bytes")

	s.logger.Debug("serving clip", "file", filepath.Base(filePath), "size", stat.Size(), "range", r.Header.Get("Range"))
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
	return nil
}

func ContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ct, ok := clipTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
