package handlers

import (
	"net/http"

	"github.com/hutmovies/hutmovies/internal/player"
	"github.com/hutmovies/hutmovies/internal/services/settings"
	"github.com/sirupsen/logrus"
)

// PlayerHandler drives playback sessions from client player events
type PlayerHandler struct {
	sessions *player.Manager
	settings settings.Store
	logger   *logrus.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(sessions *player.Manager, store settings.Store, logger *logrus.Logger) *PlayerHandler {
	return &PlayerHandler{
		sessions: sessions,
		settings: store,
		logger:   logger,
	}
}

// Open handles POST /api/player/sessions
func (h *PlayerHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var content player.Content
	if !decodeJSON(w, r, &content) {
		return
	}
	content.UserID = id.UserID
	content.NoAutoplay = !h.preferences(id.UserID).Autoplay

	session, err := h.sessions.Open(content)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, session.View())
}

// Event handles POST /api/player/sessions/{id}/events
func (h *PlayerHandler) Event(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	session, err := h.sessions.Get(r.PathValue("id"), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var ev player.Event
	if !decodeJSON(w, r, &ev) {
		return
	}

	view, err := session.Dispatch(r.Context(), ev)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Get handles GET /api/player/sessions/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	session, err := h.sessions.Get(r.PathValue("id"), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

// Close handles DELETE /api/player/sessions/{id}
func (h *PlayerHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Close(r.PathValue("id"), id.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Settings handles GET /api/player/settings
func (h *PlayerHandler) Settings(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.preferences(id.UserID))
}

// preferences loads the user's settings; broken settings never block playback
func (h *PlayerHandler) preferences(userID string) settings.PlayerSettings {
	ps, err := h.settings.Load(userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load player settings")
	}
	return ps
}

// SaveSettings handles PUT /api/player/settings
func (h *PlayerHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	// Keys left out of the body keep their current value
	ps := h.preferences(id.UserID)
	if !decodeJSON(w, r, &ps) {
		return
	}

	saved, err := h.settings.Save(id.UserID, ps)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
