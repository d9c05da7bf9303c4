package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrizeTableDraw(t *testing.T) {
	table, err := NewPrizeTable([]Prize{
		{OutcomeID: "A", Weight: 5},
		{OutcomeID: "B", Weight: 0.001},
		{OutcomeID: "C", Weight: 94.999},
	}, "default")
	require.NoError(t, err)

	assert.Equal(t, "A", table.Draw(0))
	assert.Equal(t, "A", table.Draw(4.999))
	assert.Equal(t, "B", table.Draw(5.0005))
	assert.Equal(t, "C", table.Draw(99.999))
}

func TestPrizeTableFullNeverFallsThrough(t *testing.T) {
	table, err := NewPrizeTable([]Prize{
		{OutcomeID: "A", Weight: 33.3},
		{OutcomeID: "B", Weight: 33.3},
		{OutcomeID: "C", Weight: 33.4},
	}, "default")
	require.NoError(t, err)

	for _, r := range []float64{0, 33.29, 66.6, 99.9999999999, 99.99999999999999} {
		assert.NotEqual(t, "default", table.Draw(r), "roll %v", r)
	}
}

func TestPrizeTableResidualGoesToDefault(t *testing.T) {
	table, err := NewPrizeTable([]Prize{{OutcomeID: "A", Weight: 10}}, "nothing")
	require.NoError(t, err)

	assert.Equal(t, "A", table.Draw(9.99))
	assert.Equal(t, "nothing", table.Draw(10))
	assert.Equal(t, "nothing", table.Draw(99))
}

func TestNewPrizeTableValidation(t *testing.T) {
	_, err := NewPrizeTable([]Prize{{OutcomeID: "A", Weight: -1}}, "nothing")
	assert.ErrorIs(t, err, ErrInvalidPrizeTable)

	_, err = NewPrizeTable([]Prize{{OutcomeID: "A", Weight: 60}, {OutcomeID: "B", Weight: 41}}, "nothing")
	assert.ErrorIs(t, err, ErrInvalidPrizeTable)

	_, err = NewPrizeTable([]Prize{{OutcomeID: "A", Weight: 1}}, "")
	assert.ErrorIs(t, err, ErrInvalidPrizeTable)
}

func TestDefaultPrizeTable(t *testing.T) {
	table := DefaultPrizeTable()

	assert.Equal(t, OutcomeTonSmall, table.Draw(4.5))
	assert.Equal(t, OutcomeTonBig, table.Draw(5.0005))
	assert.Equal(t, OutcomeTreshHut, table.Draw(5.001005))
	assert.Equal(t, OutcomeNothing, table.Draw(50))
}

func newRoulette(t *testing.T, roll float64) (*RouletteController, *models.Database) {
	t.Helper()
	db := newTestDB(t)
	ctrl := NewRouletteController(db, decimal.RequireFromString("0.001"), &fakeSigner{}, metrics.New(), discard).
		WithRoller(func() float64 { return roll })
	return ctrl, db
}

func TestSpinInsufficientBalance(t *testing.T) {
	ctrl, db := newRoulette(t, 1)
	ctx := context.Background()
	require.NoError(t, db.UpsertAccount(&models.Account{UserID: "u1", RouletteBalance: decimal.RequireFromString("0.0009")}))

	_, err := ctrl.Spin(ctx, "u1", "u1@example.com")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err := ctrl.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("0.0009")))

	transactions, err := ctrl.Transactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, transactions)

	// No account at all is a zero balance
	_, err = ctrl.Spin(ctx, "nobody", "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestSpinSmallWin(t *testing.T) {
	ctrl, db := newRoulette(t, 1)
	ctx := context.Background()
	require.NoError(t, db.UpsertAccount(&models.Account{UserID: "u1", RouletteBalance: decimal.NewFromInt(1)}))

	result, err := ctrl.Spin(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTonSmall, result.Outcome)
	assert.Equal(t, "1.499", result.Balance.String())

	transactions, err := ctrl.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, models.TransactionRouletteWin, transactions[0].Type)
	assert.Equal(t, OutcomeTonSmall, transactions[0].Prize)
	assert.Equal(t, "0.5", transactions[0].Amount.String())
	assert.Equal(t, models.TransactionRouletteSpin, transactions[1].Type)
	assert.Equal(t, "0.001", transactions[1].Amount.String())
}

func TestSpinNothing(t *testing.T) {
	ctrl, db := newRoulette(t, 50)
	ctx := context.Background()
	require.NoError(t, db.UpsertAccount(&models.Account{UserID: "u1", RouletteBalance: decimal.RequireFromString("0.001")}))

	result, err := ctrl.Spin(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNothing, result.Outcome)
	assert.True(t, result.Balance.IsZero())

	_, err = ctrl.Spin(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestSpinRewardRecordsWinner(t *testing.T) {
	ctrl, db := newRoulette(t, 5.001005)
	ctx := context.Background()
	require.NoError(t, db.UpsertAccount(&models.Account{UserID: "u1", RouletteBalance: decimal.NewFromInt(1)}))

	result, err := ctrl.Spin(ctx, "u1", "lucky@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTreshHut, result.Outcome)
	assert.True(t, result.Reward)

	account, err := db.GetAccount("u1")
	require.NoError(t, err)
	assert.True(t, account.TreshHutRights)
	assert.Equal(t, "lucky@example.com", account.Email)

	winners, err := db.GetAllWinners()
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, "u1", winners[0].UserID)
	assert.Equal(t, OutcomeTreshHut, winners[0].OutcomeID)
}

func TestDeposit(t *testing.T) {
	ctrl, _ := newRoulette(t, 50)
	ctx := context.Background()

	deposit, err := ctrl.Deposit(ctx, "u1", decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionSuccess, deposit.Status)
	assert.Equal(t, "boc-u1", deposit.TxHash)

	balance, err := ctrl.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2.5", balance.String())

	_, err = ctrl.Deposit(ctx, "u1", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDepositSignerFailure(t *testing.T) {
	db := newTestDB(t)
	ctrl := NewRouletteController(db, decimal.RequireFromString("0.001"), &fakeSigner{err: errDeclined}, nil, discard)
	ctx := context.Background()

	_, err := ctrl.Deposit(ctx, "u1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrWalletTransaction)

	balance, err := ctrl.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	transactions, err := ctrl.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, models.TransactionFailed, transactions[0].Status)
	assert.Equal(t, "declined", transactions[0].ErrorMessage)
}

func TestDepositWithoutWallet(t *testing.T) {
	ctrl := NewRouletteController(newTestDB(t), decimal.RequireFromString("0.001"), nil, nil, discard)

	_, err := ctrl.Deposit(context.Background(), "u1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrWalletUnavailable)
}

func TestAdminSetBalance(t *testing.T) {
	ctrl, _ := newRoulette(t, 50)
	ctx := context.Background()

	require.NoError(t, ctrl.AdminSetBalance(ctx, "admin", "u1", decimal.NewFromInt(7)))
	require.NoError(t, ctrl.AdminSetBalance(ctx, "admin", "u1", decimal.NewFromInt(7)))

	balance, err := ctrl.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "7", balance.String())

	transactions, err := ctrl.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, models.TransactionAdminBalanceChange, transactions[0].Type)
	assert.Equal(t, "0", transactions[0].OldBalance.String())
	assert.Equal(t, "7", transactions[0].NewBalance.String())
	assert.Equal(t, "admin", transactions[0].AdminUID)

	assert.ErrorIs(t, ctrl.AdminSetBalance(ctx, "admin", "u1", decimal.NewFromInt(-1)), ErrInvalidAmount)
}

func TestSpinOutsideRouletteWindow(t *testing.T) {
	ctrl, db := newRoulette(t, 50)
	ctx := context.Background()
	require.NoError(t, db.UpsertAccount(&models.Account{UserID: "u1", RouletteBalance: decimal.NewFromInt(1)}))

	settings, err := ctrl.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.Active)

	_, err = ctrl.SetSettings(ctx, "admin", models.RouletteSettings{Active: false})
	require.NoError(t, err)
	_, err = ctrl.Spin(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrRouletteInactive)

	now := time.Now()
	_, err = ctrl.SetSettings(ctx, "admin", models.RouletteSettings{Active: true, StartTime: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = ctrl.Spin(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrRouletteInactive)

	_, err = ctrl.SetSettings(ctx, "admin", models.RouletteSettings{Active: true, EndTime: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = ctrl.Spin(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrRouletteInactive)

	// Refused spins leave no trace
	balance, err := ctrl.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1)))
	transactions, err := ctrl.Transactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, transactions)

	saved, err := ctrl.SetSettings(ctx, "admin", models.RouletteSettings{
		Active:    true,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", saved.UpdatedBy)

	result, err := ctrl.Spin(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNothing, result.Outcome)
}

func TestSetRouletteSettingsRejectsReversedWindow(t *testing.T) {
	ctrl, _ := newRoulette(t, 50)
	now := time.Now()

	_, err := ctrl.SetSettings(context.Background(), "admin", models.RouletteSettings{
		Active:    true,
		StartTime: now,
		EndTime:   now.Add(-time.Minute),
	})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}
