package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heimdex/reelquiz/internal/playlist"
	"github.com/heimdex/reelquiz/internal/probe"
)

var (
	ErrInvalidPlaylist = errors.New("invalid playlist")
	ErrClipOutsideRoot = errors.New("clip path escapes the clips directory")
)

type CatalogService interface {
	ImportPlaylist(ctx context.Context, p *playlist.Playlist) (*ImportResult, error)
	ImportFile(ctx context.Context, path string) (*ImportResult, error)
	RemoveFile(ctx context.Context, path string) (bool, error)
	GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error)
	ListPlaylists(ctx context.Context) ([]PlaylistSummary, error)
	DeletePlaylist(ctx context.Context, id string) error
	CountPlaylists(ctx context.Context) (int, error)
	ResolveClip(rel string) (string, error)
}

// ImportResult is a stored playlist plus the non-fatal authoring warnings
// found while importing it.
type ImportResult struct {
	Playlist *playlist.Playlist
	Warnings []string
	Replaced bool
}

type ServiceOptions struct {
	ClipsDir string
	// Slots is the size of the answer element pool; zero skips the check.
	Slots int
	// Prober fills in clip durations the author left out. Optional.
	Prober probe.Prober
}

type Service struct {
	repo   Repository
	opts   ServiceOptions
	logger *slog.Logger
}

func NewService(repo Repository, opts ServiceOptions, logger *slog.Logger) *Service {
	return &Service{repo: repo, opts: opts, logger: logger}
}

// ImportPlaylist validates p, probes missing durations and stores it under a
// new ID.
func (s *Service) ImportPlaylist(ctx context.Context, p *playlist.Playlist) (*ImportResult, error) {
	warnings, err := s.prepare(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreatePlaylist(ctx, p); err != nil {
		return nil, fmt.Errorf("store playlist: %w", err)
	}

	s.logImport(p, warnings, false)
	return &ImportResult{Playlist: p, Warnings: warnings}, nil
}

// ImportFile decodes a playlist document and stores it, replacing the
// playlist previously imported from the same file.
func (s *Service) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := playlist.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPlaylist, filepath.Base(absPath), err)
	}
	p.SourcePath = absPath
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	}

	warnings, err := s.prepare(ctx, p)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetPlaylistBySource(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.repo.DeletePlaylist(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("replace playlist: %w", err)
		}
	}
	if err := s.repo.CreatePlaylist(ctx, p); err != nil {
		return nil, fmt.Errorf("store playlist: %w", err)
	}

	s.logImport(p, warnings, existing != nil)
	return &ImportResult{Playlist: p, Warnings: warnings, Replaced: existing != nil}, nil
}

// RemoveFile deletes the playlist imported from path, if any.
func (s *Service) RemoveFile(ctx context.Context, path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("invalid path: %w", err)
	}
	existing, err := s.repo.GetPlaylistBySource(ctx, absPath)
	if err != nil || existing == nil {
		return false, err
	}
	if err := s.repo.DeletePlaylist(ctx, existing.ID); err != nil {
		return false, err
	}
	if s.logger != nil {
		s.logger.Info("playlist removed", "playlist_id", existing.ID, "source", filepath.Base(absPath))
	}
	return true, nil
}

func (s *Service) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	return s.repo.GetPlaylist(ctx, id)
}

func (s *Service) ListPlaylists(ctx context.Context) ([]PlaylistSummary, error) {
	return s.repo.ListPlaylists(ctx)
}

func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	return s.repo.DeletePlaylist(ctx, id)
}

func (s *Service) CountPlaylists(ctx context.Context) (int, error) {
	return s.repo.CountPlaylists(ctx)
}

// ResolveClip maps a clip path from a playlist to a file under the clips
// directory.
func (s *Service) ResolveClip(rel string) (string, error) {
	return ResolveUnder(s.opts.ClipsDir, rel)
}

// ResolveUnder joins rel onto root, rejecting absolute paths and paths that
// climb out of root.
func ResolveUnder(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrClipOutsideRoot)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrClipOutsideRoot, rel)
	}
	return filepath.Join(root, clean), nil
}

func (s *Service) prepare(ctx context.Context, p *playlist.Playlist) ([]string, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlaylist, playlist.ErrEmptyPlaylist)
	}

	for i := range p.Units {
		u := &p.Units[i]
		s.fillDuration(ctx, &u.Clip)
		if u.WrongAnswerClip != nil {
			s.fillDuration(ctx, u.WrongAnswerClip)
		}
	}

	if err := p.Validate(s.opts.Slots); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlaylist, err)
	}

	p.ID = NewID()
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)
	if p.Name == "" {
		p.Name = "Untitled"
	}
	return p.Warnings(s.opts.Slots), nil
}

func (s *Service) fillDuration(ctx context.Context, c *playlist.Clip) {
	if c.Duration > 0 || c.Path == "" || s.opts.Prober == nil {
		return
	}
	path, err := s.ResolveClip(c.Path)
	if err != nil {
		return
	}
	res, err := s.opts.Prober.Probe(ctx, path)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to probe clip duration", "clip", c.Path, "error", err)
		}
		return
	}
	c.Duration = res.Duration
}

func (s *Service) logImport(p *playlist.Playlist, warnings []string, replaced bool) {
	if s.logger == nil {
		return
	}
	s.logger.Info("playlist imported", "playlist_id", p.ID, "name", p.Name, "units", p.Len(), "replaced", replaced)
	for _, w := range warnings {
		s.logger.Warn("playlist warning", "playlist_id", p.ID, "warning", w)
	}
}
