package controllers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/hutmovies/hutmovies/internal/services/tonconnect"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSpinFailed          = errors.New("spin failed")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrWalletTransaction   = errors.New("wallet transaction failed")
	ErrWalletUnavailable   = errors.New("wallet is not configured")
	ErrInvalidPrizeTable   = errors.New("invalid prize table")
	ErrRouletteInactive    = errors.New("roulette is not active")
	ErrInvalidWindow       = errors.New("roulette window ends before it starts")
)

// Roulette outcomes
const (
	OutcomeTonSmall = "ton_small"
	OutcomeTonBig   = "ton_big"
	OutcomeTreshHut = "tresh_hut"
	OutcomeNothing  = "nothing"
)

// Weights are percentages; the scale a roll is drawn from
const prizeScale = 100.0

// weightTolerance absorbs float error when weights are meant to sum to 100
const weightTolerance = 1e-9

// Signer asks a user's wallet to sign a transaction
type Signer interface {
	SendTransaction(ctx context.Context, req tonconnect.TransactionRequest) (*tonconnect.TransactionResult, error)
	Payment(userID string, amount decimal.Decimal, ttl time.Duration) tonconnect.TransactionRequest
	ServiceAddress() string
}

// walletRequestTTL is how long a user has to approve a wallet transaction
const walletRequestTTL = 5 * time.Minute

// Prize is one weighted outcome of a prize table
type Prize struct {
	OutcomeID string
	Weight    float64
}

// PrizeTable maps a roll in [0, 100) to an outcome. Entries are checked in
// order against cumulative weights; rolls past the last bound get the default.
type PrizeTable struct {
	prizes         []Prize
	bounds         []float64
	defaultOutcome string
}

// NewPrizeTable validates weights and precomputes cumulative bounds
func NewPrizeTable(prizes []Prize, defaultOutcome string) (*PrizeTable, error) {
	if defaultOutcome == "" {
		return nil, fmt.Errorf("%w: default outcome is required", ErrInvalidPrizeTable)
	}

	bounds := make([]float64, len(prizes))
	total := 0.0
	for i, p := range prizes {
		if p.OutcomeID == "" {
			return nil, fmt.Errorf("%w: entry %d has no outcome", ErrInvalidPrizeTable, i)
		}
		if p.Weight < 0 || math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) {
			return nil, fmt.Errorf("%w: %s has weight %v", ErrInvalidPrizeTable, p.OutcomeID, p.Weight)
		}
		total += p.Weight
		bounds[i] = total
	}

	if total > prizeScale+weightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %v", ErrInvalidPrizeTable, total)
	}
	if len(bounds) > 0 && math.Abs(total-prizeScale) <= weightTolerance {
		// A full table never falls through to the default
		bounds[len(bounds)-1] = prizeScale
	}

	return &PrizeTable{
		prizes:         append([]Prize(nil), prizes...),
		bounds:         bounds,
		defaultOutcome: defaultOutcome,
	}, nil
}

// DefaultPrizeTable is the production roulette table
func DefaultPrizeTable() *PrizeTable {
	table, err := NewPrizeTable([]Prize{
		{OutcomeID: OutcomeTonSmall, Weight: 5},
		{OutcomeID: OutcomeTonBig, Weight: 0.001},
		{OutcomeID: OutcomeTreshHut, Weight: 0.00001},
		{OutcomeID: OutcomeNothing, Weight: 94.99899},
	}, OutcomeNothing)
	if err != nil {
		panic(err)
	}
	return table
}

// Draw returns the outcome for a roll r in [0, 100)
func (t *PrizeTable) Draw(r float64) string {
	for i, bound := range t.bounds {
		if t.prizes[i].Weight > 0 && r < bound {
			return t.prizes[i].OutcomeID
		}
	}
	return t.defaultOutcome
}

// Prizes returns a copy of the table entries
func (t *PrizeTable) Prizes() []Prize {
	return append([]Prize(nil), t.prizes...)
}

// Payout is what an outcome grants
type Payout struct {
	Credit decimal.Decimal
	Reward bool // One-time reward flag plus a winners entry
}

// DefaultPayouts are the production roulette payouts
func DefaultPayouts() map[string]Payout {
	return map[string]Payout{
		OutcomeTonSmall: {Credit: decimal.RequireFromString("0.5")},
		OutcomeTonBig:   {Credit: decimal.NewFromInt(100)},
		OutcomeTreshHut: {Reward: true},
	}
}

// Roller returns a uniform roll in [0, 100)
type Roller func() float64

func defaultRoller() float64 {
	return rand.Float64() * prizeScale
}

// SpinResult is the outcome of one spin
type SpinResult struct {
	Outcome string          `json:"outcome"`
	Credit  decimal.Decimal `json:"credit"`
	Reward  bool            `json:"reward"`
	Balance decimal.Decimal `json:"balance"`
}

// RouletteController runs roulette spins and the balance ledger
type RouletteController struct {
	db      *models.Database
	table   *PrizeTable
	payouts map[string]Payout
	cost    decimal.Decimal
	roll    Roller
	signer  Signer
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewRouletteController creates a new roulette controller. signer may be nil
// when no wallet bridge is configured; deposits then fail with ErrWalletUnavailable.
func NewRouletteController(db *models.Database, cost decimal.Decimal, signer Signer, m *metrics.Metrics, logger *logrus.Logger) *RouletteController {
	return &RouletteController{
		db:      db,
		table:   DefaultPrizeTable(),
		payouts: DefaultPayouts(),
		cost:    cost,
		roll:    defaultRoller,
		signer:  signer,
		metrics: m,
		logger:  logger,
	}
}

// WithTable replaces the prize table and payouts
func (c *RouletteController) WithTable(table *PrizeTable, payouts map[string]Payout) *RouletteController {
	c.table = table
	c.payouts = payouts
	return c
}

// WithRoller replaces the roll source
func (c *RouletteController) WithRoller(roll Roller) *RouletteController {
	c.roll = roll
	return c
}

// Cost is the price of one spin
func (c *RouletteController) Cost() decimal.Decimal {
	return c.cost
}

func accountOrNew(tx *models.Tx, userID string) (*models.Account, error) {
	account, err := tx.GetAccount(userID)
	if err == nil {
		return account, nil
	}
	if models.IsNotFound(err) {
		return &models.Account{UserID: userID}, nil
	}
	return nil, err
}

// Spin charges the spin cost, draws an outcome and applies its payout. The
// charge, the draw's effects and both ledger entries commit together.
func (c *RouletteController) Spin(ctx context.Context, userID, email string) (*SpinResult, error) {
	_, span := tracer.Start(ctx, "roulette.Spin", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	log := c.logger.WithField("user_id", userID)

	var result SpinResult
	err := c.db.Update(func(tx *models.Tx) error {
		schedule, err := tx.GetRouletteSettings()
		switch {
		case models.IsNotFound(err):
			// Never configured: always open
		case err != nil:
			return fmt.Errorf("failed to load roulette settings: %w", err)
		case !schedule.OpenAt(time.Now()):
			return ErrRouletteInactive
		}

		account, err := accountOrNew(tx, userID)
		if err != nil {
			return fmt.Errorf("failed to load account: %w", err)
		}
		if account.RouletteBalance.LessThan(c.cost) {
			return ErrInsufficientBalance
		}
		if email != "" {
			account.Email = email
		}

		now := time.Now()
		account.RouletteBalance = account.RouletteBalance.Sub(c.cost)
		if err := tx.InsertTransaction(&models.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        models.TransactionRouletteSpin,
			Status:      models.TransactionSuccess,
			Amount:      c.cost,
			CreatedAt:   now,
			CompletedAt: &now,
		}); err != nil {
			return fmt.Errorf("failed to record spin: %w", err)
		}

		outcome := c.table.Draw(c.roll())
		payout := c.payouts[outcome]
		if payout.Credit.IsPositive() {
			account.RouletteBalance = account.RouletteBalance.Add(payout.Credit)
		}
		if payout.Reward {
			account.TreshHutRights = true
			if err := tx.InsertWinner(&models.Winner{
				Key:       models.WinnerPath(uuid.NewString()),
				UserID:    userID,
				Email:     account.Email,
				OutcomeID: outcome,
				CreatedAt: now,
			}); err != nil {
				return fmt.Errorf("failed to record winner: %w", err)
			}
		}

		// The win entry sorts after the spin entry
		won := now.Add(time.Microsecond)
		if err := tx.InsertTransaction(&models.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        models.TransactionRouletteWin,
			Status:      models.TransactionSuccess,
			Amount:      payout.Credit,
			Prize:       outcome,
			CreatedAt:   won,
			CompletedAt: &won,
		}); err != nil {
			return fmt.Errorf("failed to record win: %w", err)
		}

		if err := tx.UpsertAccount(account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		result = SpinResult{
			Outcome: outcome,
			Credit:  payout.Credit,
			Reward:  payout.Reward,
			Balance: account.RouletteBalance,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			log.Debug("Spin refused, insufficient balance")
			return nil, err
		}
		if errors.Is(err, ErrRouletteInactive) {
			log.Debug("Spin refused, roulette closed")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("Spin failed")
		return nil, fmt.Errorf("%w: %v", ErrSpinFailed, err)
	}

	span.SetAttributes(attribute.String("roulette.outcome", result.Outcome))
	c.metrics.Spin(result.Outcome)
	log.WithFields(logrus.Fields{
		"outcome": result.Outcome,
		"balance": result.Balance.String(),
	}).Info("Roulette spin")
	return &result, nil
}

// Balance returns the user's roulette balance; users without an account have zero
func (c *RouletteController) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	account, err := c.db.GetAccount(userID)
	if err != nil {
		if models.IsNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to load account: %w", err)
	}
	return account.RouletteBalance, nil
}

// Transactions returns the user's ledger, newest first
func (c *RouletteController) Transactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	transactions, err := c.db.GetTransactionsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return transactions, nil
}

// Deposit has the user's wallet pay amount to the service wallet and credits
// the roulette balance once the transfer is signed
func (c *RouletteController) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if c.signer == nil {
		return nil, ErrWalletUnavailable
	}

	log := c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount.String(),
	})

	deposit := &models.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      models.TransactionRouletteDeposit,
		Status:    models.TransactionPending,
		Amount:    amount,
		ToAddress: c.signer.ServiceAddress(),
	}
	if err := c.db.InsertTransaction(deposit); err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	signed, err := c.signer.SendTransaction(ctx, c.signer.Payment(userID, amount, walletRequestTTL))
	if err != nil {
		log.WithError(err).Warn("Deposit not signed")
		c.metrics.WalletTransaction(string(deposit.Type), string(models.TransactionFailed))
		failWalletTransaction(c.db, deposit, err, log)
		return deposit, fmt.Errorf("%w: %v", ErrWalletTransaction, err)
	}

	err = c.db.Update(func(tx *models.Tx) error {
		account, err := accountOrNew(tx, userID)
		if err != nil {
			return err
		}
		account.RouletteBalance = account.RouletteBalance.Add(amount)
		if err := tx.UpsertAccount(account); err != nil {
			return err
		}

		now := time.Now()
		deposit.Status = models.TransactionSuccess
		deposit.TxHash = signed.BOC
		deposit.FromAddress = signed.FromAddress
		deposit.CompletedAt = &now
		return tx.UpdateTransaction(deposit)
	})
	if err != nil {
		log.WithError(err).Error("Failed to credit signed deposit")
		return nil, fmt.Errorf("failed to credit deposit: %w", err)
	}

	c.metrics.WalletTransaction(string(deposit.Type), string(models.TransactionSuccess))
	log.Info("Deposit credited")
	return deposit, nil
}

// failWalletTransaction marks a pending wallet transaction failed
func failWalletTransaction(db *models.Database, t *models.Transaction, cause error, log *logrus.Entry) {
	now := time.Now()
	t.Status = models.TransactionFailed
	t.ErrorMessage = cause.Error()
	t.CompletedAt = &now
	if err := db.UpdateTransaction(t); err != nil {
		log.WithError(err).Error("Failed to mark transaction failed")
	}
}

// AdminSetBalance overwrites a user's roulette balance and records the change
func (c *RouletteController) AdminSetBalance(ctx context.Context, adminUID, userID string, balance decimal.Decimal) error {
	if balance.IsNegative() || userID == "" {
		return ErrInvalidAmount
	}

	err := c.db.Update(func(tx *models.Tx) error {
		account, err := accountOrNew(tx, userID)
		if err != nil {
			return err
		}

		old := account.RouletteBalance
		if !old.Equal(balance) {
			now := time.Now()
			newBalance := balance
			if err := tx.InsertTransaction(&models.Transaction{
				ID:          uuid.NewString(),
				UserID:      userID,
				Type:        models.TransactionAdminBalanceChange,
				Status:      models.TransactionSuccess,
				Amount:      balance.Sub(old),
				OldBalance:  &old,
				NewBalance:  &newBalance,
				AdminUID:    adminUID,
				CreatedAt:   now,
				CompletedAt: &now,
			}); err != nil {
				return err
			}
		}

		account.RouletteBalance = balance
		return tx.UpsertAccount(account)
	})
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"admin_id": adminUID,
		"user_id":  userID,
		"balance":  balance.String(),
	}).Info("Balance changed by admin")
	return nil
}

// Settings returns the roulette schedule. A schedule that was never saved is
// reported as active with an open window.
func (c *RouletteController) Settings(ctx context.Context) (*models.RouletteSettings, error) {
	settings, err := c.db.GetRouletteSettings()
	if models.IsNotFound(err) {
		return &models.RouletteSettings{Active: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load roulette settings: %w", err)
	}
	return settings, nil
}

// SetSettings replaces the roulette schedule
func (c *RouletteController) SetSettings(ctx context.Context, adminUID string, settings models.RouletteSettings) (*models.RouletteSettings, error) {
	if !settings.StartTime.IsZero() && !settings.EndTime.IsZero() && settings.EndTime.Before(settings.StartTime) {
		return nil, ErrInvalidWindow
	}

	settings.UpdatedBy = adminUID
	settings.UpdatedAt = time.Now()
	if err := c.db.UpsertRouletteSettings(&settings); err != nil {
		return nil, fmt.Errorf("failed to save roulette settings: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"admin_id":   adminUID,
		"active":     settings.Active,
		"start_time": settings.StartTime,
		"end_time":   settings.EndTime,
	}).Info("Roulette settings changed by admin")
	return &settings, nil
}
