package controllers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateTrialThenPaid(t *testing.T) {
	db := newTestDB(t)
	signer := &fakeSigner{}
	ctrl := NewSubscriptionController(db, signer, nil, discard)
	ctx := context.Background()

	sub, err := ctrl.Activate(ctx, "u1", "Base")
	require.NoError(t, err)
	assert.Equal(t, "Base", sub.Plan)
	assert.Equal(t, trialPeriod, sub.EndDate.Sub(sub.StartDate))
	assert.Empty(t, signer.requests)

	account, err := db.GetAccount("u1")
	require.NoError(t, err)
	assert.True(t, account.HasUsedTrial)
	assert.True(t, account.IsTrial)

	// Trial is used up; Base is now paid
	sub, err = ctrl.Activate(ctx, "u1", "Base")
	require.NoError(t, err)
	assert.Equal(t, subscriptionPeriod, sub.EndDate.Sub(sub.StartDate))
	assert.Equal(t, "boc-u1", sub.TxHash)
	require.Len(t, signer.requests, 1)
	assert.Equal(t, "500000000", signer.requests[0].Messages[0].Amount)

	transactions, err := db.GetTransactionsByUser("u1")
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, models.TransactionSubscription, transactions[0].Type)
	assert.Equal(t, models.TransactionSuccess, transactions[0].Status)
	assert.Equal(t, models.TransactionTrial, transactions[1].Type)
}

func TestActivatePaidPlanFailure(t *testing.T) {
	db := newTestDB(t)
	ctrl := NewSubscriptionController(db, &fakeSigner{err: errDeclined}, nil, discard)
	ctx := context.Background()

	_, err := ctrl.Activate(ctx, "u1", "Luxury")
	assert.ErrorIs(t, err, ErrWalletTransaction)

	current, err := ctrl.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, current)

	transactions, err := db.GetTransactionsByUser("u1")
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, models.TransactionFailed, transactions[0].Status)
	assert.Equal(t, "Luxury", transactions[0].Plan)
}

func TestActivateUnknownPlan(t *testing.T) {
	ctrl := NewSubscriptionController(newTestDB(t), &fakeSigner{}, nil, discard)

	_, err := ctrl.Activate(context.Background(), "u1", "Platinum")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCurrentRemovesExpired(t *testing.T) {
	db := newTestDB(t)
	ctrl := NewSubscriptionController(db, &fakeSigner{}, nil, discard)
	ctx := context.Background()

	_, err := ctrl.Activate(ctx, "u1", "Standart")
	require.NoError(t, err)

	current, err := ctrl.Current(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "Standart", current.Plan)

	ctrl.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	current, err = ctrl.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, current)

	account, err := db.GetAccount("u1")
	require.NoError(t, err)
	assert.Nil(t, account.Subscription)
}

func TestPlansCheapestFirst(t *testing.T) {
	ctrl := NewSubscriptionController(newTestDB(t), nil, nil, discard)

	plans := ctrl.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "Base", plans[0].Name)
	assert.Equal(t, "Luxury", plans[2].Name)
}

func TestConcurrentTrialActivationsGrantOneTrial(t *testing.T) {
	db := newTestDB(t)
	// Without a wallet, activations that lose the trial fail instead of paying
	ctrl := NewSubscriptionController(db, nil, nil, discard)
	ctx := context.Background()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ctrl.Activate(ctx, "u1", "Base")
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, err := range errs {
		if err == nil {
			granted++
			continue
		}
		assert.ErrorIs(t, err, ErrWalletUnavailable)
	}
	assert.Equal(t, 1, granted)

	transactions, err := db.GetTransactionsByUser("u1")
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, models.TransactionTrial, transactions[0].Type)
}
