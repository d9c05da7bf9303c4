package handlers

import (
	"net/http"
	"strconv"

	"github.com/hutmovies/hutmovies/internal/controllers"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/sirupsen/logrus"
)

// ProgressHandler serves watch progress and episode navigation
type ProgressHandler struct {
	progress *controllers.ProgressController
	episodes *controllers.EpisodeController
	logger   *logrus.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *controllers.ProgressController, episodes *controllers.EpisodeController, logger *logrus.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		episodes: episodes,
		logger:   logger,
	}
}

// SaveRequest is the body of POST /api/progress
type SaveRequest struct {
	ContentID string             `json:"content_id"`
	Kind      models.ContentKind `json:"kind"`
	Position  float64            `json:"position"`
	Duration  float64            `json:"duration"`
	Season    *int               `json:"season"`
	Episode   *int               `json:"episode"`
}

// Save handles POST /api/progress. Saves never fail from the caller's view.
func (h *ProgressHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req SaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.progress.Save(r.Context(), controllers.SaveInput{
		UserID:    id.UserID,
		ContentID: req.ContentID,
		Kind:      req.Kind,
		Position:  req.Position,
		Duration:  req.Duration,
		Season:    req.Season,
		Episode:   req.Episode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles GET /api/progress?content_id=&kind=&season=&episode=&duration=
func (h *ProgressHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	season, err := optionalInt(r, "season")
	if err != nil {
		http.Error(w, "Invalid season", http.StatusBadRequest)
		return
	}
	episode, err := optionalInt(r, "episode")
	if err != nil {
		http.Error(w, "Invalid episode", http.StatusBadRequest)
		return
	}
	var duration float64
	if raw := query.Get("duration"); raw != "" {
		if duration, err = strconv.ParseFloat(raw, 64); err != nil {
			http.Error(w, "Invalid duration", http.StatusBadRequest)
			return
		}
	}

	resume := h.progress.Restore(r.Context(), controllers.RestoreInput{
		UserID:    id.UserID,
		ContentID: query.Get("content_id"),
		Kind:      models.ContentKind(query.Get("kind")),
		Season:    season,
		Episode:   episode,
		Duration:  duration,
	})
	writeJSON(w, http.StatusOK, resume)
}

// LastWatched handles GET /api/last-watched
func (h *ProgressHandler) LastWatched(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	pointer, err := h.progress.LastWatched(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if pointer == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, pointer)
}

// History handles GET /api/history
func (h *ProgressHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	records, err := h.progress.Records(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// NextEpisode handles GET /api/shows/{id}/next?season=&episode=
func (h *ProgressHandler) NextEpisode(w http.ResponseWriter, r *http.Request) {
	season, err := optionalInt(r, "season")
	if err != nil || season == nil {
		http.Error(w, "Invalid season", http.StatusBadRequest)
		return
	}
	episode, err := optionalInt(r, "episode")
	if err != nil || episode == nil {
		http.Error(w, "Invalid episode", http.StatusBadRequest)
		return
	}

	next, found := h.episodes.NextEpisode(r.Context(), r.PathValue("id"), *season, *episode)
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// WatchButton handles GET /api/shows/{id}/watch-button
func (h *ProgressHandler) WatchButton(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	action, err := h.progress.WatchButton(r.Context(), id.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}
