// Package treasury is the HTTP client for the token custodian that moves
// stake funds between user accounts and the market custody account.
package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/predictx/marketd/internal/crypto"
	"github.com/predictx/marketd/internal/domain"
)

// Client talks to the treasury's REST API. Every transfer carries a fresh
// idempotency key, so a retried request after a network failure cannot move
// funds twice.
type Client struct {
	baseURL    string
	auth       *crypto.HMACAuth
	httpClient *http.Client
}

// NewClient creates a treasury Client.
func NewClient(baseURL string, auth *crypto.HMACAuth) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// transferRequest is the treasury's transfer envelope.
type transferRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	From           string `json:"from"`
	To             string `json:"to"`
	Amount         int64  `json:"amount"`
}

// Transfer moves amount from one account to another. A non-2xx response is
// an error; the caller decides what to roll back.
func (c *Client) Transfer(ctx context.Context, from, to string, amount int64) error {
	payload, err := json.Marshal(transferRequest{
		IdempotencyKey: uuid.New().String(),
		From:           from,
		To:             to,
		Amount:         amount,
	})
	if err != nil {
		return fmt.Errorf("treasury: marshal transfer: %w", err)
	}

	const path = "/transfers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("treasury: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		for k, v := range c.auth.Headers(http.MethodPost, path, string(payload)) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("treasury: transfer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("treasury: transfer failed: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Compile-time interface check.
var _ domain.TokenService = (*Client)(nil)
