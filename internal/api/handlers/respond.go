package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hutmovies/hutmovies/internal/api/middleware"
	"github.com/hutmovies/hutmovies/internal/controllers"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/hutmovies/hutmovies/internal/player"
	"github.com/hutmovies/hutmovies/internal/scheduler"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to a status code and a short message.
// Anything unexpected is logged and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	var code int
	var msg string

	switch {
	case models.IsNotFound(err), errors.Is(err, player.ErrSessionNotFound):
		code, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, player.ErrSessionClosed):
		code, msg = http.StatusGone, "Session closed"
	case errors.Is(err, controllers.ErrInsufficientBalance):
		code, msg = http.StatusPaymentRequired, "Insufficient balance"
	case errors.Is(err, controllers.ErrWalletTransaction):
		code, msg = http.StatusPaymentRequired, "Wallet transaction failed"
	case errors.Is(err, controllers.ErrWalletUnavailable):
		code, msg = http.StatusServiceUnavailable, "Wallet not available"
	case errors.Is(err, controllers.ErrRouletteInactive):
		code, msg = http.StatusForbidden, "Roulette is closed"
	case errors.Is(err, controllers.ErrInvalidWindow):
		code, msg = http.StatusBadRequest, "Window ends before it starts"
	case errors.Is(err, controllers.ErrInvalidAmount):
		code, msg = http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, controllers.ErrUnknownPlan):
		code, msg = http.StatusBadRequest, "Unknown plan"
	case errors.Is(err, player.ErrInvalidEvent), errors.Is(err, player.ErrInvalidContent):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		code, msg = http.StatusConflict, "Episode check already running"
	case errors.Is(err, scheduler.ErrStopped):
		code, msg = http.StatusServiceUnavailable, "Shutting down"
	case errors.Is(err, controllers.ErrSpinFailed):
		logger.WithError(err).WithField("path", r.URL.Path).Error("Spin failed")
		code, msg = http.StatusInternalServerError, "Spin failed, please try again"
	default:
		logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		code, msg = http.StatusInternalServerError, "Internal server error"
	}

	http.Error(w, msg, code)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return false
	}
	return true
}

// identity returns the authenticated caller; routes using it sit behind RequireAuth
func identity(w http.ResponseWriter, r *http.Request) (*middleware.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

// optionalInt parses an optional integer query parameter
func optionalInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
