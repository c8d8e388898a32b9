package api

import (
	"strconv"
	"time"

	"github.com/heimdex/reelquiz/internal/catalog"
	"github.com/heimdex/reelquiz/internal/playlist"
	"github.com/heimdex/reelquiz/internal/question"
	"github.com/heimdex/reelquiz/internal/session"
)

type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	UptimeS    int64  `json:"uptime_s"`
	InstanceID string `json:"instance_id"`
}

type StatusResponse struct {
	State          string `json:"state"`
	ActiveSessions int    `json:"active_sessions"`
	Sessions       int    `json:"sessions"`
	PlaylistsCount int    `json:"playlists_count"`
	ImportsPending int    `json:"imports_pending"`
	ImportsPaused  bool   `json:"imports_paused"`
}

type PlaylistSummaryResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SourcePath string `json:"source_path,omitempty"`
	Units      int    `json:"units"`
	CreatedAt  string `json:"created_at"`
}

type PlaylistsResponse struct {
	Playlists []PlaylistSummaryResponse `json:"playlists"`
}

type PlaylistResponse struct {
	PlaylistSummaryResponse
	Document playlist.Document `json:"document"`
}

type ImportResponse struct {
	PlaylistID string   `json:"playlist_id"`
	Name       string   `json:"name"`
	Units      int      `json:"units"`
	Warnings   []string `json:"warnings,omitempty"`
}

type StartSessionRequest struct {
	PlaylistID string `json:"playlist_id"`
}

type AnswerRequest struct {
	Position *int `json:"position"`
}

type ClipResponse struct {
	Path      string  `json:"path"`
	URL       string  `json:"url"`
	DurationS float64 `json:"duration_s"`
	PositionS float64 `json:"position_s"`
	Rate      float64 `json:"rate"`
	Playing   bool    `json:"playing"`
	Alternate bool    `json:"alternate"`
}

type SessionResponse struct {
	ID                   string             `json:"id"`
	PlaylistID           string             `json:"playlist_id"`
	PlaylistName         string             `json:"playlist_name"`
	State                string             `json:"state"`
	CurrentIndex         int                `json:"current_index"`
	Units                int                `json:"units"`
	Clip                 ClipResponse       `json:"clip"`
	Question             question.BoardView `json:"question"`
	Curtain              float64            `json:"curtain"`
	HasTriggeredSlowdown bool               `json:"has_triggered_slowdown"`
	Paused               bool               `json:"paused"`
	Answers              int                `json:"answers"`
	WrongAnswers         int                `json:"wrong_answers"`
	Complete             bool               `json:"complete"`
	StartedAt            string             `json:"started_at"`
	CompletedAt          string             `json:"completed_at,omitempty"`
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SummaryToResponse(s catalog.PlaylistSummary) PlaylistSummaryResponse {
	return PlaylistSummaryResponse{
		ID:         s.ID,
		Name:       s.Name,
		SourcePath: s.SourcePath,
		Units:      s.Units,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
}

func PlaylistToResponse(p *playlist.Playlist) PlaylistResponse {
	return PlaylistResponse{
		PlaylistSummaryResponse: SummaryToResponse(catalog.Summarize(p)),
		Document:                playlist.ToDocument(p),
	}
}

func SessionToResponse(s session.Snapshot) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID,
		PlaylistID:   s.PlaylistID,
		PlaylistName: s.PlaylistName,
		State:        s.State,
		CurrentIndex: s.CurrentIndex,
		Units:        s.Units,
		Clip: ClipResponse{
			Path:      s.Clip.Path,
			URL:       clipURL(s),
			DurationS: s.Clip.Duration.Seconds(),
			PositionS: s.Clip.Position.Seconds(),
			Rate:      s.Clip.Rate,
			Playing:   s.Clip.Playing,
			Alternate: s.Clip.Alternate,
		},
		Question:             s.Board,
		Curtain:              s.Curtain,
		HasTriggeredSlowdown: s.HasTriggeredSlowdown,
		Paused:               s.Paused,
		Answers:              s.Answers,
		WrongAnswers:         s.WrongAnswers,
		Complete:             s.Complete,
		StartedAt:            s.StartedAt.Format(time.RFC3339),
	}
	if !s.CompletedAt.IsZero() {
		resp.CompletedAt = s.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// clipURL points the renderer at the clip route for what is on screen.
func clipURL(s session.Snapshot) string {
	if s.Clip.Path == "" || s.CurrentIndex >= s.Units {
		return ""
	}
	kind := "clip"
	if s.Clip.Alternate {
		kind = "wrong-clip"
	}
	return "/playlists/" + s.PlaylistID + "/units/" + strconv.Itoa(s.CurrentIndex) + "/" + kind
}
