package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/heimdex/reelquiz/internal/catalog"
	"github.com/heimdex/reelquiz/internal/playlist"
	"github.com/heimdex/reelquiz/internal/question"
)

const testToken = "test-token-123456"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeService struct {
	mu        sync.Mutex
	clipsDir  string
	playlists map[string]*playlist.Playlist
	next      int
}

func newFakeService(clipsDir string) *fakeService {
	return &fakeService{clipsDir: clipsDir, playlists: make(map[string]*playlist.Playlist)}
}

func (f *fakeService) ImportPlaylist(ctx context.Context, p *playlist.Playlist) (*catalog.ImportResult, error) {
	if err := p.Validate(question.DefaultSlots); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrInvalidPlaylist, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	p.ID = fmt.Sprintf("pl-%d", f.next)
	p.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.playlists[p.ID] = p
	return &catalog.ImportResult{Playlist: p, Warnings: p.Warnings(question.DefaultSlots)}, nil
}

func (f *fakeService) ImportFile(ctx context.Context, path string) (*catalog.ImportResult, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeService) RemoveFile(ctx context.Context, path string) (bool, error) {
	return false, nil
}

func (f *fakeService) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playlists[id], nil
}

func (f *fakeService) ListPlaylists(ctx context.Context) ([]catalog.PlaylistSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.PlaylistSummary, 0, len(f.playlists))
	for _, p := range f.playlists {
		out = append(out, catalog.Summarize(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeService) DeletePlaylist(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.playlists, id)
	return nil
}

func (f *fakeService) CountPlaylists(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.playlists), nil
}

func (f *fakeService) ResolveClip(rel string) (string, error) {
	return catalog.ResolveUnder(f.clipsDir, rel)
}

// add stores p directly, bypassing validation.
func (f *fakeService) add(p *playlist.Playlist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists[p.ID] = p
}

type fakeRepo struct {
	token string
}

func (f *fakeRepo) CreatePlaylist(ctx context.Context, p *playlist.Playlist) error { return nil }

func (f *fakeRepo) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	return nil, nil
}

func (f *fakeRepo) GetPlaylistBySource(ctx context.Context, sourcePath string) (*playlist.Playlist, error) {
	return nil, nil
}

func (f *fakeRepo) ListPlaylists(ctx context.Context) ([]catalog.PlaylistSummary, error) {
	return nil, nil
}

func (f *fakeRepo) DeletePlaylist(ctx context.Context, id string) error { return nil }

func (f *fakeRepo) CountPlaylists(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeRepo) GetConfig(ctx context.Context, key string) (string, error) {
	if key == AuthTokenKey {
		return f.token, nil
	}
	return "", nil
}

func (f *fakeRepo) SetConfig(ctx context.Context, key, value string) error { return nil }
