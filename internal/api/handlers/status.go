package handlers

import (
	"net/http"

	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/sirupsen/logrus"
)

// SessionCounter reports open playback sessions
type SessionCounter interface {
	Len() int
}

// EpisodeCheckRunner runs the new-episode check on demand
type EpisodeCheckRunner interface {
	Trigger() error
	Running() bool
}

// StatusHandler handles status requests
type StatusHandler struct {
	db       *models.Database
	sessions SessionCounter
	checks   EpisodeCheckRunner
	logger   *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, sessions SessionCounter, checks EpisodeCheckRunner, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:       db,
		sessions: sessions,
		checks:   checks,
		logger:   logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Shows               int                        `json:"shows"`
	Movies              int                        `json:"movies"`
	Accounts            int                        `json:"accounts"`
	ActiveSubscriptions int                        `json:"active_subscriptions"`
	OpenSessions        int                        `json:"open_sessions"`
	EpisodeCheckRunning bool                       `json:"episode_check_running"`
	EpisodeCheck        *models.EpisodeCheckStatus `json:"episode_check,omitempty"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shows, err := h.db.GetAllShows()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	movies, err := h.db.GetAllMovies()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	accounts, err := h.db.GetAllAccounts()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := StatusResponse{
		Shows:    len(shows),
		Movies:   len(movies),
		Accounts: len(accounts),
	}

	for _, account := range accounts {
		if account.Subscription != nil && account.Subscription.Status == models.SubscriptionActive {
			response.ActiveSubscriptions++
		}
	}

	if h.sessions != nil {
		response.OpenSessions = h.sessions.Len()
	}
	if h.checks != nil {
		response.EpisodeCheckRunning = h.checks.Running()
	}

	status, err := h.db.GetEpisodeCheckStatus()
	if err == nil {
		response.EpisodeCheck = status
	} else if !models.IsNotFound(err) {
		h.logger.WithError(err).Warn("Failed to load episode check status")
	}

	writeJSON(w, http.StatusOK, response)
}
