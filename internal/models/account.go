package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the per-user record holding roulette balance, rewards and subscriptions
type Account struct {
	Key    string `boltholdKey:"Key"`
	UserID string
	Email  string

	RouletteBalance decimal.Decimal
	TreshHutRights  bool // One-time roulette reward

	Subscription *Subscription
	HasUsedTrial bool
	IsTrial      bool

	// Shows the user wants new-episode notifications for
	ShowSubscriptions map[string]bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscription is an active paid or trial plan
type Subscription struct {
	Plan      string             `json:"plan"`
	Status    SubscriptionStatus `json:"status"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	TxHash    string             `json:"tx_hash,omitempty"`
}

// ActiveAt reports whether the subscription covers t
func (s *Subscription) ActiveAt(t time.Time) bool {
	return !s.StartDate.After(t) && !t.After(s.EndDate)
}

// Transaction is one entry of a user's append-only ledger
type Transaction struct {
	Key    string `boltholdKey:"Key" json:"-"`
	ID     string `json:"id"`
	UserID string `boltholdIndex:"UserID" json:"user_id"`

	Type   TransactionType   `json:"type"`
	Status TransactionStatus `json:"status"`
	Amount decimal.Decimal   `json:"amount"`

	Prize string `json:"prize,omitempty"` // roulette_win
	Plan  string `json:"plan,omitempty"`  // subscription, trial

	TxHash      string `json:"tx_hash,omitempty"`
	FromAddress string `json:"from_address,omitempty"`
	ToAddress   string `json:"to_address,omitempty"`

	OldBalance *decimal.Decimal `json:"old_balance,omitempty"` // admin_balance_change
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
	AdminUID   string           `json:"admin_uid,omitempty"`

	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Winner records a user who won a one-time roulette reward
type Winner struct {
	Key       string `boltholdKey:"Key"`
	UserID    string
	Email     string
	OutcomeID string
	CreatedAt time.Time
}
