package tonconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hutmovies/hutmovies/internal/config"
	"github.com/sirupsen/logrus"
)

// Client talks to the wallet bridge that forwards transaction requests to the
// user's wallet and reports back once they are signed or rejected
type Client struct {
	bridgeURL      string
	serviceAddress string
	httpClient     *http.Client
	logger         *logrus.Logger

	pollInterval time.Duration
	requestTries uint64
}

// NewClient creates a new wallet bridge client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.WalletBridgeURL == "" {
		return nil, fmt.Errorf("wallet bridge URL is required")
	}
	if cfg.WalletServiceAddress == "" {
		return nil, fmt.Errorf("wallet service address is required")
	}

	return &Client{
		bridgeURL:      strings.TrimRight(cfg.WalletBridgeURL, "/"),
		serviceAddress: cfg.WalletServiceAddress,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
		pollInterval:   2 * time.Second,
		requestTries:   3,
	}, nil
}

// ServiceAddress is the wallet that receives payments
func (c *Client) ServiceAddress() string {
	return c.serviceAddress
}

// StatusError is a non-2xx bridge response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bridge request failed with status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// doRequest performs an HTTP request against the bridge
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	fullURL := c.bridgeURL + path
	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    fullURL,
	}).Debug("Making wallet bridge request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
