package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrUnknownPlan = errors.New("unknown subscription plan")

// errTrialUsed is returned from inside the trial transaction when the account
// already took its trial
var errTrialUsed = errors.New("trial already used")

const (
	subscriptionPeriod = 30 * 24 * time.Hour
	trialPeriod        = 3 * 24 * time.Hour
)

// Plan is a purchasable subscription tier
type Plan struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Trial bool            `json:"trial"` // First activation is a free trial
}

// DefaultPlans are the subscription tiers on sale
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		"Base":     {Name: "Base", Price: decimal.RequireFromString("0.5"), Trial: true},
		"Standart": {Name: "Standart", Price: decimal.NewFromInt(1)},
		"Luxury":   {Name: "Luxury", Price: decimal.RequireFromString("1.5")},
	}
}

// SubscriptionController sells and tracks subscriptions
type SubscriptionController struct {
	db      *models.Database
	plans   map[string]Plan
	signer  Signer
	metrics *metrics.Metrics
	logger  *logrus.Logger
	now     func() time.Time
}

// NewSubscriptionController creates a new subscription controller
func NewSubscriptionController(db *models.Database, signer Signer, m *metrics.Metrics, logger *logrus.Logger) *SubscriptionController {
	return &SubscriptionController{
		db:      db,
		plans:   DefaultPlans(),
		signer:  signer,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Plans returns the plans on sale, cheapest first
func (c *SubscriptionController) Plans() []Plan {
	plans := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Price.LessThan(plans[j].Price)
	})
	return plans
}

// Activate starts a subscription. A trial plan is free the first time a user
// takes any trial; otherwise the user's wallet pays the plan price.
func (c *SubscriptionController) Activate(ctx context.Context, userID, planName string) (*models.Subscription, error) {
	plan, ok := c.plans[planName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, planName)
	}

	log := c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"plan":    plan.Name,
	})

	account, err := c.db.GetAccount(userID)
	if err != nil {
		if !models.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load account: %w", err)
		}
		account = &models.Account{UserID: userID}
	}

	if plan.Trial && !account.HasUsedTrial {
		sub, err := c.activateTrial(userID, plan, log)
		if !errors.Is(err, errTrialUsed) {
			return sub, err
		}
		log.Debug("Trial taken by a concurrent activation, charging the plan price")
	}

	if c.signer == nil {
		return nil, ErrWalletUnavailable
	}

	purchase := &models.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      models.TransactionSubscription,
		Status:    models.TransactionPending,
		Amount:    plan.Price,
		Plan:      plan.Name,
		ToAddress: c.signer.ServiceAddress(),
	}
	if err := c.db.InsertTransaction(purchase); err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	signed, err := c.signer.SendTransaction(ctx, c.signer.Payment(userID, plan.Price, walletRequestTTL))
	if err != nil {
		log.WithError(err).Warn("Subscription payment not signed")
		c.metrics.WalletTransaction(string(purchase.Type), string(models.TransactionFailed))
		failWalletTransaction(c.db, purchase, err, log)
		return nil, fmt.Errorf("%w: %v", ErrWalletTransaction, err)
	}

	start := c.now()
	sub := &models.Subscription{
		Plan:      plan.Name,
		Status:    models.SubscriptionActive,
		StartDate: start,
		EndDate:   start.Add(subscriptionPeriod),
		TxHash:    signed.BOC,
	}

	err = c.db.Update(func(tx *models.Tx) error {
		account, err := accountOrNew(tx, userID)
		if err != nil {
			return err
		}
		account.Subscription = sub
		account.IsTrial = false
		if err := tx.UpsertAccount(account); err != nil {
			return err
		}

		purchase.Status = models.TransactionSuccess
		purchase.TxHash = signed.BOC
		purchase.FromAddress = signed.FromAddress
		purchase.CompletedAt = &start
		return tx.UpdateTransaction(purchase)
	})
	if err != nil {
		log.WithError(err).Error("Failed to activate paid subscription")
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	c.metrics.WalletTransaction(string(purchase.Type), string(models.TransactionSuccess))
	log.WithField("until", sub.EndDate).Info("Subscription activated")
	return sub, nil
}

func (c *SubscriptionController) activateTrial(userID string, plan Plan, log *logrus.Entry) (*models.Subscription, error) {
	start := c.now()
	sub := &models.Subscription{
		Plan:      plan.Name,
		Status:    models.SubscriptionActive,
		StartDate: start,
		EndDate:   start.Add(trialPeriod),
	}

	err := c.db.Update(func(tx *models.Tx) error {
		account, err := accountOrNew(tx, userID)
		if err != nil {
			return err
		}
		if account.HasUsedTrial {
			return errTrialUsed
		}
		account.Subscription = sub
		account.HasUsedTrial = true
		account.IsTrial = true
		if err := tx.UpsertAccount(account); err != nil {
			return err
		}
		return tx.InsertTransaction(&models.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        models.TransactionTrial,
			Status:      models.TransactionSuccess,
			Amount:      decimal.Zero,
			Plan:        plan.Name,
			CreatedAt:   start,
			CompletedAt: &start,
		})
	})
	if errors.Is(err, errTrialUsed) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to activate trial: %w", err)
	}

	log.WithField("until", sub.EndDate).Info("Trial activated")
	return sub, nil
}

// Current returns the user's active subscription, or nil. Expired
// subscriptions are removed from the account.
func (c *SubscriptionController) Current(ctx context.Context, userID string) (*models.Subscription, error) {
	account, err := c.db.GetAccount(userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account.Subscription == nil {
		return nil, nil
	}
	if account.Subscription.ActiveAt(c.now()) {
		return account.Subscription, nil
	}

	expired := account.Subscription
	err = c.db.Update(func(tx *models.Tx) error {
		account, err := tx.GetAccount(userID)
		if err != nil {
			return err
		}
		account.Subscription = nil
		account.IsTrial = false
		return tx.UpsertAccount(account)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove expired subscription: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"plan":    expired.Plan,
		"ended":   expired.EndDate,
	}).Info("Subscription expired")
	return nil, nil
}
