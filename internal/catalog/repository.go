package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heimdex/reelquiz/internal/playlist"
)

type Repository interface {
	CreatePlaylist(ctx context.Context, p *playlist.Playlist) error
	GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error)
	GetPlaylistBySource(ctx context.Context, sourcePath string) (*playlist.Playlist, error)
	ListPlaylists(ctx context.Context) ([]PlaylistSummary, error)
	DeletePlaylist(ctx context.Context, id string) error
	CountPlaylists(ctx context.Context) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreatePlaylist stores the playlist and its units in one transaction.
func (r *SQLiteRepository) CreatePlaylist(ctx context.Context, p *playlist.Playlist) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlists (id, name, source_path, created_at)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, nullString(p.SourcePath), p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}

	for i, u := range p.Units {
		choices, err := json.Marshal(u.Choices)
		if err != nil {
			return fmt.Errorf("encode choices of unit %d: %w", i, err)
		}
		var wrongPath sql.NullString
		var wrongDuration sql.NullInt64
		if u.WrongAnswerClip != nil {
			wrongPath = sql.NullString{String: u.WrongAnswerClip.Path, Valid: true}
			wrongDuration = sql.NullInt64{Int64: u.WrongAnswerClip.Duration.Milliseconds(), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO scene_units (playlist_id, position, clip_path, clip_duration_ms, trigger_time_ms,
				slowdown_factor, prompt, choices, correct_index, wrong_clip_path, wrong_clip_duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, i, u.Clip.Path, u.Clip.Duration.Milliseconds(), u.TriggerTime.Milliseconds(),
			u.SlowdownFactor, u.Prompt, string(choices), u.CorrectIndex, wrongPath, wrongDuration)
		if err != nil {
			return fmt.Errorf("insert unit %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, source_path, created_at FROM playlists WHERE id = ?
	`, id)
	return r.loadPlaylist(ctx, row)
}

func (r *SQLiteRepository) GetPlaylistBySource(ctx context.Context, sourcePath string) (*playlist.Playlist, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, source_path, created_at FROM playlists WHERE source_path = ?
	`, sourcePath)
	return r.loadPlaylist(ctx, row)
}

func (r *SQLiteRepository) loadPlaylist(ctx context.Context, row *sql.Row) (*playlist.Playlist, error) {
	var p playlist.Playlist
	var sourcePath sql.NullString
	var createdAt string

	err := row.Scan(&p.ID, &p.Name, &sourcePath, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.SourcePath = sourcePath.String
	if p.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("playlist %s: %w", p.ID, err)
	}

	units, err := r.listUnits(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Units = units
	return &p, nil
}

func (r *SQLiteRepository) listUnits(ctx context.Context, playlistID string) ([]playlist.SceneUnit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT clip_path, clip_duration_ms, trigger_time_ms, slowdown_factor, prompt, choices,
			correct_index, wrong_clip_path, wrong_clip_duration_ms
		FROM scene_units WHERE playlist_id = ? ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []playlist.SceneUnit
	for rows.Next() {
		var u playlist.SceneUnit
		var durationMS, triggerMS int64
		var choices string
		var wrongPath sql.NullString
		var wrongDuration sql.NullInt64

		if err := rows.Scan(&u.Clip.Path, &durationMS, &triggerMS, &u.SlowdownFactor, &u.Prompt, &choices,
			&u.CorrectIndex, &wrongPath, &wrongDuration); err != nil {
			return nil, err
		}
		u.Clip.Duration = time.Duration(durationMS) * time.Millisecond
		u.TriggerTime = time.Duration(triggerMS) * time.Millisecond
		if err := json.Unmarshal([]byte(choices), &u.Choices); err != nil {
			return nil, fmt.Errorf("decode choices: %w", err)
		}
		if wrongPath.Valid {
			u.WrongAnswerClip = &playlist.Clip{
				Path:     wrongPath.String,
				Duration: time.Duration(wrongDuration.Int64) * time.Millisecond,
			}
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *SQLiteRepository) ListPlaylists(ctx context.Context) ([]PlaylistSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.source_path, p.created_at, COUNT(u.position)
		FROM playlists p LEFT JOIN scene_units u ON u.playlist_id = p.id
		GROUP BY p.id ORDER BY p.created_at DESC, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlaylistSummary
	for rows.Next() {
		var s PlaylistSummary
		var sourcePath sql.NullString
		var createdAt string
		if err := rows.Scan(&s.ID, &s.Name, &sourcePath, &createdAt, &s.Units); err != nil {
			return nil, err
		}
		s.SourcePath = sourcePath.String
		t, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("playlist %s: %w", s.ID, err)
		}
		s.CreatedAt = t
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeletePlaylist(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountPlaylists(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlists").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", v, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
