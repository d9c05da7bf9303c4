package handlers

import (
	"net/http"
	"time"

	"github.com/hutmovies/hutmovies/internal/controllers"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RouletteHandler serves the roulette and the balance ledger
type RouletteHandler struct {
	roulette *controllers.RouletteController
	logger   *logrus.Logger
}

// NewRouletteHandler creates a new roulette handler
func NewRouletteHandler(roulette *controllers.RouletteController, logger *logrus.Logger) *RouletteHandler {
	return &RouletteHandler{
		roulette: roulette,
		logger:   logger,
	}
}

// Spin handles POST /api/roulette/spin
func (h *RouletteHandler) Spin(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	result, err := h.roulette.Spin(r.Context(), id.UserID, id.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BalanceResponse is the body of GET /api/roulette/balance
type BalanceResponse struct {
	Balance  decimal.Decimal `json:"balance"`
	SpinCost decimal.Decimal `json:"spin_cost"`
}

// Balance handles GET /api/roulette/balance
func (h *RouletteHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	balance, err := h.roulette.Balance(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance, SpinCost: h.roulette.Cost()})
}

// AmountRequest carries a TON amount
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Deposit handles POST /api/roulette/deposit. It blocks until the wallet
// signs or rejects the transfer.
func (h *RouletteHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	deposit, err := h.roulette.Deposit(r.Context(), id.UserID, req.Amount)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deposit)
}

// Transactions handles GET /api/transactions
func (h *RouletteHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	transactions, err := h.roulette.Transactions(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

// SetBalanceRequest is the body of PUT /api/admin/balance
type SetBalanceRequest struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// SetBalance handles PUT /api/admin/balance
func (h *RouletteHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req SetBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.roulette.AdminSetBalance(r.Context(), id.UserID, req.UserID, req.Balance); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Settings handles GET /api/roulette/settings
func (h *RouletteHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.roulette.Settings(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// RouletteSettingsRequest is the body of PUT /api/admin/roulette. Omitted
// times leave that side of the window open.
type RouletteSettingsRequest struct {
	Active    bool      `json:"active"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// SaveSettings handles PUT /api/admin/roulette
func (h *RouletteHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req RouletteSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	settings, err := h.roulette.SetSettings(r.Context(), id.UserID, models.RouletteSettings{
		Active:    req.Active,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
