package tonconnect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hutmovies/hutmovies/internal/config"
	"github.com/hutmovies/hutmovies/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.Config{
		WalletBridgeURL:      server.URL + "/",
		WalletServiceAddress: "EQService",
	}, utils.NewDiscardLogger())
	require.NoError(t, err)
	client.pollInterval = 10 * time.Millisecond
	return client
}

func TestNewClientRequiresBridge(t *testing.T) {
	_, err := NewClient(&config.Config{}, utils.NewDiscardLogger())
	assert.Error(t, err)
}

func TestNanotons(t *testing.T) {
	assert.Equal(t, "1000000", Nanotons(decimal.RequireFromString("0.001")))
	assert.Equal(t, "1500000000", Nanotons(decimal.RequireFromString("1.5")))
	assert.Equal(t, "0", Nanotons(decimal.RequireFromString("0.0000000001")))
}

func TestSendTransactionSigned(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		var req TransactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "EQService", req.Messages[0].Address)
		assert.Equal(t, "500000000", req.Messages[0].Amount)
		json.NewEncoder(w).Encode(transactionResponse{ID: "tx-1", Status: statusPending})
	})
	mux.HandleFunc("GET /transactions/tx-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			json.NewEncoder(w).Encode(transactionResponse{ID: "tx-1", Status: statusPending})
			return
		}
		json.NewEncoder(w).Encode(transactionResponse{ID: "tx-1", Status: statusSigned, BOC: "te6cc", FromAddress: "EQUser"})
	})

	client := newTestClient(t, mux)
	result, err := client.SendTransaction(context.Background(), client.Payment("user-1", decimal.RequireFromString("0.5"), time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "te6cc", result.BOC)
	assert.Equal(t, "EQUser", result.FromAddress)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestSendTransactionRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transactionResponse{ID: "tx-2", Status: statusPending})
	})
	mux.HandleFunc("GET /transactions/tx-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transactionResponse{ID: "tx-2", Status: statusRejected})
	})

	client := newTestClient(t, mux)
	_, err := client.SendTransaction(context.Background(), client.Payment("user-1", decimal.NewFromInt(1), time.Minute))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestSendTransactionClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad address", http.StatusBadRequest)
	})

	client := newTestClient(t, mux)
	_, err := client.SendTransaction(context.Background(), client.Payment("user-1", decimal.NewFromInt(1), time.Minute))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendTransactionExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transactionResponse{ID: "tx-3", Status: statusPending})
	})

	client := newTestClient(t, mux)
	req := client.Payment("user-1", decimal.NewFromInt(1), time.Minute)
	req.ValidUntil = time.Now().Add(-time.Second).Unix()

	_, err := client.SendTransaction(context.Background(), req)
	assert.ErrorIs(t, err, ErrExpired)
}
