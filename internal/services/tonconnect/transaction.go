package tonconnect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	// ErrRejected means the user declined the transaction in their wallet
	ErrRejected = errors.New("transaction rejected by wallet")
	// ErrExpired means the transaction was not signed before its deadline
	ErrExpired = errors.New("transaction expired")

	errPending = errors.New("transaction pending")
)

const (
	statusPending  = "pending"
	statusSigned   = "signed"
	statusRejected = "rejected"
	statusExpired  = "expired"
)

// Message is one transfer inside a transaction
type Message struct {
	Address string `json:"address"`
	Amount  string `json:"amount"` // nanotons
}

// TransactionRequest asks a user's wallet to sign transfers
type TransactionRequest struct {
	UserID     string    `json:"user_id"`
	ValidUntil int64     `json:"valid_until"` // unix seconds
	Messages   []Message `json:"messages"`
}

// TransactionResult is a signed transaction
type TransactionResult struct {
	BOC         string `json:"boc"`
	FromAddress string `json:"from_address"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	BOC         string `json:"boc,omitempty"`
	FromAddress string `json:"from_address,omitempty"`
}

// Nanotons converts an amount in TON to the integer string wallets expect
func Nanotons(amount decimal.Decimal) string {
	return amount.Shift(9).Truncate(0).String()
}

// Payment builds a request transferring amount to the service wallet, valid for ttl
func (c *Client) Payment(userID string, amount decimal.Decimal, ttl time.Duration) TransactionRequest {
	return TransactionRequest{
		UserID:     userID,
		ValidUntil: time.Now().Add(ttl).Unix(),
		Messages: []Message{
			{Address: c.serviceAddress, Amount: Nanotons(amount)},
		},
	}
}

// SendTransaction submits the request to the bridge and waits until the
// wallet signs it, rejects it or it expires
func (c *Client) SendTransaction(ctx context.Context, req TransactionRequest) (*TransactionResult, error) {
	log := c.logger.WithField("user_id", req.UserID)

	submit := func() (*transactionResponse, error) {
		var resp transactionResponse
		if err := c.doRequest(ctx, "POST", "/transactions", req, &resp); err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Temporary() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return &resp, nil
	}

	created, err := backoff.RetryNotifyWithData(submit,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.requestTries), ctx),
		func(err error, wait time.Duration) {
			log.WithError(err).WithField("retry_in", wait).Warn("Wallet bridge request failed, retrying")
		})
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	log.WithField("transaction_id", created.ID).Info("Waiting for wallet approval")

	deadline := time.Until(time.Unix(req.ValidUntil, 0))
	if deadline <= 0 {
		return nil, ErrExpired
	}
	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	poll := func() (*TransactionResult, error) {
		var resp transactionResponse
		if err := c.doRequest(waitCtx, "GET", "/transactions/"+created.ID, nil, &resp); err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Temporary() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		switch resp.Status {
		case statusSigned:
			return &TransactionResult{BOC: resp.BOC, FromAddress: resp.FromAddress}, nil
		case statusRejected:
			return nil, backoff.Permanent(ErrRejected)
		case statusExpired:
			return nil, backoff.Permanent(ErrExpired)
		case statusPending, "":
			return nil, errPending
		default:
			return nil, backoff.Permanent(fmt.Errorf("unexpected transaction status %q", resp.Status))
		}
	}

	result, err := backoff.RetryWithData(poll, backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), waitCtx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrExpired
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"transaction_id": created.ID,
		"from":           result.FromAddress,
	}).Info("Transaction signed")
	return result, nil
}
