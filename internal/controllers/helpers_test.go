package controllers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/hutmovies/hutmovies/internal/services/tonconnect"
	"github.com/hutmovies/hutmovies/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *models.Database {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(v int) *int {
	return &v
}

// twoSeasonShow has S1 with episodes 1,2 and S2 with episode 1
func twoSeasonShow(id string) *models.Show {
	return &models.Show{
		ID:    id,
		Title: "The Hut",
		Seasons: []models.Season{
			{Number: 1, Episodes: []models.Episode{
				{ID: intPtr(1), Title: "Pilot"},
				{ID: intPtr(2), Title: "Second"},
			}},
			{Number: 2, Episodes: []models.Episode{
				{ID: intPtr(1), Title: "Return"},
			}},
		},
	}
}

type fakeSigner struct {
	err      error
	requests []tonconnect.TransactionRequest
}

func (f *fakeSigner) SendTransaction(ctx context.Context, req tonconnect.TransactionRequest) (*tonconnect.TransactionResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &tonconnect.TransactionResult{BOC: "boc-" + req.UserID, FromAddress: "EQUser"}, nil
}

func (f *fakeSigner) Payment(userID string, amount decimal.Decimal, ttl time.Duration) tonconnect.TransactionRequest {
	return tonconnect.TransactionRequest{
		UserID:     userID,
		ValidUntil: time.Now().Add(ttl).Unix(),
		Messages:   []tonconnect.Message{{Address: f.ServiceAddress(), Amount: tonconnect.Nanotons(amount)}},
	}
}

func (f *fakeSigner) ServiceAddress() string {
	return "EQService"
}

var errDeclined = errors.New("declined")

var discard = utils.NewDiscardLogger()
