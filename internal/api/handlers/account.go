package handlers

import (
	"net/http"

	"github.com/hutmovies/hutmovies/internal/controllers"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/sirupsen/logrus"
)

// AccountHandler serves subscriptions, show follows and notifications
type AccountHandler struct {
	subscriptions *controllers.SubscriptionController
	notifications *controllers.NotificationController
	checks        EpisodeCheckRunner
	logger        *logrus.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(subscriptions *controllers.SubscriptionController, notifications *controllers.NotificationController, checks EpisodeCheckRunner, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{
		subscriptions: subscriptions,
		notifications: notifications,
		checks:        checks,
		logger:        logger,
	}
}

// Plans handles GET /api/subscriptions/plans
func (h *AccountHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.subscriptions.Plans())
}

// ActivateRequest is the body of POST /api/subscriptions
type ActivateRequest struct {
	Plan string `json:"plan"`
}

// Activate handles POST /api/subscriptions
func (h *AccountHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req ActivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.subscriptions.Activate(r.Context(), id.UserID, req.Plan)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Current handles GET /api/subscriptions
func (h *AccountHandler) Current(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	sub, err := h.subscriptions.Current(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if sub == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// FollowRequest is the body of PUT /api/shows/{id}/subscription
type FollowRequest struct {
	Subscribed bool `json:"subscribed"`
}

// Follow handles PUT /api/shows/{id}/subscription
func (h *AccountHandler) Follow(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req FollowRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.notifications.SetShowSubscription(r.Context(), id.UserID, r.PathValue("id"), req.Subscribed); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notifications handles GET /api/notifications
func (h *AccountHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	notifications, err := h.notifications.Notifications(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// RunEpisodeCheck handles POST /api/admin/episode-check. The check runs in
// the background; overlapping requests get 409.
func (h *AccountHandler) RunEpisodeCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.checks.Trigger(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
