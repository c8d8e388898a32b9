package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/reelquiz/internal/catalog"
	"github.com/heimdex/reelquiz/internal/export"
	"github.com/heimdex/reelquiz/internal/playlist"
	"github.com/heimdex/reelquiz/internal/session"
)

// maxPlaylistBody caps imported playlist documents.
const maxPlaylistBody = 1 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.CORSOrigins...))

	r.Get("/health", healthHandler(cfg))

	// Video elements cannot send a bearer token, so clips are loopback-only
	// instead of authenticated.
	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())

		r.Get("/playlists/{id}/units/{index}/clip", clipHandler(cfg, false))
		r.Head("/playlists/{id}/units/{index}/clip", clipHandler(cfg, false))
		r.Get("/playlists/{id}/units/{index}/wrong-clip", clipHandler(cfg, true))
		r.Head("/playlists/{id}/units/{index}/wrong-clip", clipHandler(cfg, true))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/playlists", listPlaylistsHandler(cfg))
		r.Post("/playlists", importPlaylistHandler(cfg))
		r.Get("/playlists/{id}", getPlaylistHandler(cfg))
		r.Delete("/playlists/{id}", deletePlaylistHandler(cfg))
		r.Get("/playlists/{id}/edl", exportEDLHandler(cfg))
		r.Get("/sessions", listSessionsHandler(cfg))
		r.Post("/sessions", startSessionHandler(cfg))
		r.Get("/sessions/{id}", getSessionHandler(cfg))
		r.Delete("/sessions/{id}", closeSessionHandler(cfg))
		r.Post("/sessions/{id}/answer", answerHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:     "ok",
			Version:    cfg.Version,
			UptimeS:    uptime,
			InstanceID: cfg.InstanceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playlists, _ := cfg.CatalogService.CountPlaylists(r.Context())

		resp := StatusResponse{
			State:          "idle",
			PlaylistsCount: playlists,
		}
		if cfg.Sessions != nil {
			resp.ActiveSessions = cfg.Sessions.Count()
			resp.Sessions = len(cfg.Sessions.List())
		}
		if cfg.Runner != nil {
			resp.ImportsPending = cfg.Runner.Pending()
			resp.ImportsPaused = cfg.Runner.IsPaused()
		}

		switch {
		case resp.ActiveSessions > 0:
			resp.State = "playing"
		case resp.ImportsPaused:
			resp.State = "paused"
		case resp.ImportsPending > 0:
			resp.State = "importing"
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listPlaylistsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := cfg.CatalogService.ListPlaylists(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list playlists", "INTERNAL_ERROR")
			return
		}

		resp := PlaylistsResponse{Playlists: make([]PlaylistSummaryResponse, len(summaries))}
		for i, s := range summaries {
			resp.Playlists[i] = SummaryToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func importPlaylistHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playlist.Decode(http.MaxBytesReader(w, r.Body, maxPlaylistBody))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		result, err := cfg.CatalogService.ImportPlaylist(r.Context(), p)
		if err != nil {
			if errors.Is(err, catalog.ErrInvalidPlaylist) {
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_PLAYLIST")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusCreated, ImportResponse{
			PlaylistID: result.Playlist.ID,
			Name:       result.Playlist.Name,
			Units:      result.Playlist.Len(),
			Warnings:   result.Warnings,
		})
	}
}

func getPlaylistHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := lookupPlaylist(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, PlaylistToResponse(p))
	}
}

func deletePlaylistHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := lookupPlaylist(cfg, w, r)
		if !ok {
			return
		}

		if err := cfg.CatalogService.DeletePlaylist(r.Context(), p.ID); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := lookupPlaylist(cfg, w, r)
		if !ok {
			return
		}

		frameRate := export.DefaultFrameRate
		if v := r.URL.Query().Get("fps"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 || f > 120 {
				WriteError(w, http.StatusBadRequest, "fps must be a number in (0,120]", "BAD_REQUEST")
				return
			}
			frameRate = f
		}

		events, err := export.Events(p, cfg.CatalogService.ResolveClip)
		if err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_PLAYLIST")
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(p.Name)+`"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(export.GenerateEDL(events, p.Name, frameRate)))
	}
}

func clipHandler(cfg ServerConfig, wrongAnswer bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := lookupPlaylist(cfg, w, r)
		if !ok {
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 0 || index >= p.Len() {
			WriteError(w, http.StatusNotFound, "scene unit not found", "NOT_FOUND")
			return
		}

		clip := p.Units[index].Clip
		if wrongAnswer {
			if p.Units[index].WrongAnswerClip == nil {
				WriteError(w, http.StatusNotFound, "scene unit has no wrong answer clip", "NOT_FOUND")
				return
			}
			clip = *p.Units[index].WrongAnswerClip
		}

		path, err := cfg.CatalogService.ResolveClip(clip.Path)
		if err != nil {
			WriteError(w, http.StatusForbidden, err.Error(), "FORBIDDEN")
			return
		}

		if err := cfg.PlaybackServer.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "playlist_id", p.ID, "index", index)
			WriteError(w, http.StatusInternalServerError, "failed to serve clip", "INTERNAL_ERROR")
		}
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snaps := cfg.Sessions.List()
		resp := SessionsResponse{Sessions: make([]SessionResponse, len(snaps))}
		for i, s := range snaps {
			resp.Sessions[i] = SessionToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func startSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.PlaylistID == "" {
			WriteError(w, http.StatusBadRequest, "playlist_id is required", "BAD_REQUEST")
			return
		}

		p, err := cfg.CatalogService.GetPlaylist(r.Context(), req.PlaylistID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if p == nil {
			WriteError(w, http.StatusNotFound, "playlist not found", "NOT_FOUND")
			return
		}

		s, err := cfg.Sessions.Start(p)
		if err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_PLAYLIST")
			return
		}

		WriteJSON(w, http.StatusCreated, SessionToResponse(s.Snapshot()))
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SessionToResponse(s.Snapshot()))
	}
}

func closeSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Sessions.Close(chi.URLParam(r, "id")); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func answerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Position == nil {
			WriteError(w, http.StatusBadRequest, "position is required", "BAD_REQUEST")
			return
		}

		s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeSessionError(w, err)
			return
		}
		if err := s.Answer(r.Context(), *req.Position); err != nil {
			writeSessionError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, SessionToResponse(s.Snapshot()))
	}
}

func lookupPlaylist(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*playlist.Playlist, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "playlist id required", "BAD_REQUEST")
		return nil, false
	}

	p, err := cfg.CatalogService.GetPlaylist(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil, false
	}
	if p == nil {
		WriteError(w, http.StatusNotFound, "playlist not found", "NOT_FOUND")
		return nil, false
	}
	return p, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, session.ErrInvalidChoice):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_CHOICE")
	case errors.Is(err, session.ErrNoQuestion):
		WriteError(w, http.StatusConflict, err.Error(), "NO_QUESTION")
	case errors.Is(err, session.ErrSessionClosed):
		WriteError(w, http.StatusConflict, err.Error(), "SESSION_CLOSED")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
