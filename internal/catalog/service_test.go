package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/heimdex/reelquiz/internal/db"
	"github.com/heimdex/reelquiz/internal/playlist"
	"github.com/heimdex/reelquiz/internal/probe"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

type fakeProber struct {
	durations map[string]time.Duration
	calls     []string
}

func (f *fakeProber) Probe(ctx context.Context, path string) (probe.Result, error) {
	f.calls = append(f.calls, path)
	d, ok := f.durations[filepath.Base(path)]
	if !ok {
		return probe.Result{}, probe.ErrUnknownDuration
	}
	return probe.Result{Duration: d}, nil
}

func doorsPlaylist() *playlist.Playlist {
	return &playlist.Playlist{
		Name: "Doors",
		Units: []playlist.SceneUnit{
			{
				Clip:           playlist.Clip{Path: "hall.mp4", Duration: 10 * time.Second},
				TriggerTime:    5 * time.Second,
				SlowdownFactor: 0.2,
				Prompt:         "Which door?",
				Choices:        []string{"left", "middle", "right", "none"},
				CorrectIndex:   1,
				WrongAnswerClip: &playlist.Clip{
					Path:     "hall_wrong.mp4",
					Duration: 3 * time.Second,
				},
			},
			{
				Clip:           playlist.Clip{Path: "stairs.mp4", Duration: 8 * time.Second},
				TriggerTime:    3 * time.Second,
				SlowdownFactor: 0.5,
				Prompt:         "Up or down?",
				Choices:        []string{"up", "down"},
				CorrectIndex:   0,
			},
		},
	}
}

const doorsDocument = `{
  "name": "Doors",
  "units": [
    {
      "clip": {"path": "hall.mp4", "duration_s": 10},
      "trigger_time_s": 5,
      "question": "Which door?",
      "choices": ["left", "middle", "right", "none"],
      "correct_index": 1
    }
  ]
}`

func TestService_ImportPlaylist_RoundTrip(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, ServiceOptions{Slots: 4}, nil)
	ctx := context.Background()

	res, err := svc.ImportPlaylist(ctx, doorsPlaylist())
	if err != nil {
		t.Fatalf("ImportPlaylist() error = %v", err)
	}
	if res.Playlist.ID == "" {
		t.Fatal("playlist ID is empty")
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "unit 1") {
		t.Errorf("warnings = %v, want one for unit 1", res.Warnings)
	}

	got, err := svc.GetPlaylist(ctx, res.Playlist.ID)
	if err != nil {
		t.Fatalf("GetPlaylist() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetPlaylist() = nil")
	}
	if got.Name != "Doors" || got.Len() != 2 {
		t.Fatalf("playlist = %+v", got)
	}

	u0 := got.Units[0]
	if u0.TriggerTime != 5*time.Second || u0.Clip.Duration != 10*time.Second || u0.CorrectIndex != 1 {
		t.Errorf("unit 0 = %+v", u0)
	}
	if u0.WrongAnswerClip == nil || u0.WrongAnswerClip.Path != "hall_wrong.mp4" || u0.WrongAnswerClip.Duration != 3*time.Second {
		t.Errorf("wrong answer clip = %+v", u0.WrongAnswerClip)
	}
	if len(u0.Choices) != 4 || u0.Choices[2] != "right" {
		t.Errorf("choices = %v", u0.Choices)
	}
	if got.Units[1].WrongAnswerClip != nil {
		t.Error("unit 1 has a wrong answer clip")
	}
	if got.Units[1].SlowdownFactor != 0.5 {
		t.Errorf("slowdown = %g", got.Units[1].SlowdownFactor)
	}
	if !got.CreatedAt.Equal(res.Playlist.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, res.Playlist.CreatedAt)
	}
}

func TestService_ImportPlaylist_Invalid(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, ServiceOptions{Slots: 3}, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		p    *playlist.Playlist
	}{
		{"nil", nil},
		{"empty", &playlist.Playlist{Name: "Empty"}},
		{"too many choices", doorsPlaylist()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportPlaylist(ctx, tt.p)
			if !errors.Is(err, ErrInvalidPlaylist) {
				t.Fatalf("ImportPlaylist() error = %v, want ErrInvalidPlaylist", err)
			}
		})
	}

	if n, _ := svc.CountPlaylists(ctx); n != 0 {
		t.Errorf("CountPlaylists() = %d after invalid imports", n)
	}
}

func TestService_ImportPlaylist_ProbesMissingDurations(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	prober := &fakeProber{durations: map[string]time.Duration{
		"hall.mp4":       12 * time.Second,
		"hall_wrong.mp4": 4 * time.Second,
	}}
	clipsDir := t.TempDir()
	svc := NewService(repo, ServiceOptions{ClipsDir: clipsDir, Prober: prober}, nil)

	p := doorsPlaylist()
	p.Units = p.Units[:1]
	p.Units[0].Clip.Duration = 0
	p.Units[0].WrongAnswerClip.Duration = 0

	res, err := svc.ImportPlaylist(context.Background(), p)
	if err != nil {
		t.Fatalf("ImportPlaylist() error = %v", err)
	}
	u := res.Playlist.Units[0]
	if u.Clip.Duration != 12*time.Second || u.WrongAnswerClip.Duration != 4*time.Second {
		t.Errorf("durations = %s / %s", u.Clip.Duration, u.WrongAnswerClip.Duration)
	}
	if len(prober.calls) != 2 || prober.calls[0] != filepath.Join(clipsDir, "hall.mp4") {
		t.Errorf("probe calls = %v", prober.calls)
	}
}

func TestService_ImportPlaylist_UnprobedDurationFails(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, ServiceOptions{ClipsDir: t.TempDir(), Prober: probe.NewStubProber(nil)}, nil)

	p := doorsPlaylist()
	p.Units[1].Clip.Duration = 0

	_, err := svc.ImportPlaylist(context.Background(), p)
	if !errors.Is(err, ErrInvalidPlaylist) || !strings.Contains(err.Error(), "stairs.mp4") {
		t.Fatalf("ImportPlaylist() error = %v, want unknown duration of stairs.mp4", err)
	}
}

func TestService_ImportFile_ReplacesBySource(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, ServiceOptions{Slots: 4}, nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "doors.json")
	if err := os.WriteFile(path, []byte(doorsDocument), 0644); err != nil {
		t.Fatal(err)
	}

	first, err := svc.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if first.Replaced {
		t.Error("first import reported a replacement")
	}
	if first.Playlist.Units[0].SlowdownFactor != playlist.DefaultSlowdownFactor {
		t.Errorf("slowdown = %g, want default", first.Playlist.Units[0].SlowdownFactor)
	}

	second, err := svc.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("second ImportFile() error = %v", err)
	}
	if !second.Replaced || second.Playlist.ID == first.Playlist.ID {
		t.Errorf("second import = %+v, want replacement under a new ID", second)
	}

	list, err := svc.ListPlaylists(ctx)
	if err != nil {
		t.Fatalf("ListPlaylists() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != second.Playlist.ID || list[0].Units != 1 {
		t.Fatalf("ListPlaylists() = %+v", list)
	}
	if list[0].SourcePath != path {
		t.Errorf("SourcePath = %q, want %q", list[0].SourcePath, path)
	}

	removed, err := svc.RemoveFile(ctx, path)
	if err != nil || !removed {
		t.Fatalf("RemoveFile() = %v, %v", removed, err)
	}
	if n, _ := svc.CountPlaylists(ctx); n != 0 {
		t.Errorf("CountPlaylists() = %d after RemoveFile", n)
	}
	removed, _ = svc.RemoveFile(ctx, path)
	if removed {
		t.Error("second RemoveFile() reported a removal")
	}
}

func TestService_ImportFile_NameFromFilename(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, ServiceOptions{}, nil)

	path := filepath.Join(t.TempDir(), "escape-room.json")
	doc := strings.Replace(doorsDocument, `"name": "Doors",`, "", 1)
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if res.Playlist.Name != "escape-room" {
		t.Errorf("Name = %q, want escape-room", res.Playlist.Name)
	}
}

func TestService_ImportFile_BadDocumentKeepsExisting(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, ServiceOptions{}, nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "doors.json")
	os.WriteFile(path, []byte(doorsDocument), 0644)
	first, err := svc.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}

	os.WriteFile(path, []byte(`{"name": "Doors", "units": [], "extra": 1}`), 0644)
	if _, err := svc.ImportFile(ctx, path); !errors.Is(err, ErrInvalidPlaylist) {
		t.Fatalf("ImportFile() error = %v, want ErrInvalidPlaylist", err)
	}

	got, _ := svc.GetPlaylist(ctx, first.Playlist.ID)
	if got == nil {
		t.Fatal("failed import removed the existing playlist")
	}
}

func TestService_DeletePlaylist(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, ServiceOptions{}, nil)
	ctx := context.Background()

	res, err := svc.ImportPlaylist(ctx, doorsPlaylist())
	if err != nil {
		t.Fatalf("ImportPlaylist() error = %v", err)
	}
	if err := svc.DeletePlaylist(ctx, res.Playlist.ID); err != nil {
		t.Fatalf("DeletePlaylist() error = %v", err)
	}
	got, err := svc.GetPlaylist(ctx, res.Playlist.ID)
	if err != nil || got != nil {
		t.Fatalf("GetPlaylist() after delete = %v, %v", got, err)
	}
}

func TestResolveUnder(t *testing.T) {
	root := filepath.Join("srv", "clips")
	tests := []struct {
		rel     string
		want    string
		wantErr bool
	}{
		{"hall.mp4", filepath.Join(root, "hall.mp4"), false},
		{"act1/hall.mp4", filepath.Join(root, "act1", "hall.mp4"), false},
		{"act1/../hall.mp4", filepath.Join(root, "hall.mp4"), false},
		{"../secret.mp4", "", true},
		{"..", "", true},
		{"/etc/passwd", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, err := ResolveUnder(root, tt.rel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveUnder(%q) error = %v, wantErr %v", tt.rel, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrClipOutsideRoot) {
				t.Errorf("error = %v, want ErrClipOutsideRoot", err)
			}
			if got != tt.want {
				t.Errorf("ResolveUnder(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestIsClipFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"video.mp4", true},
		{"video.MP4", true},
		{"video.mov", true},
		{"video.webm", true},
		{"video.avi", false},
		{"playlist.json", false},
		{"noextension", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := IsClipFile(tt.filename); got != tt.want {
				t.Errorf("IsClipFile(%s) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	if v, err := repo.GetConfig(ctx, "auth_token"); err != nil || v != "" {
		t.Fatalf("GetConfig(missing) = %q, %v", v, err)
	}
	repo.SetConfig(ctx, "auth_token", "one")
	repo.SetConfig(ctx, "auth_token", "two")
	if v, _ := repo.GetConfig(ctx, "auth_token"); v != "two" {
		t.Errorf("GetConfig() = %q, want two", v)
	}
}
