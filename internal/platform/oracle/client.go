// Package oracle is the HTTP client for the external resolution authority
// that owns poll lifecycle status.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/predictx/marketd/internal/crypto"
	"github.com/predictx/marketd/internal/domain"
)

// Client talks to the resolution authority's REST API. The authority
// reference from market state names which authority instance a request is
// scoped to, so rewiring the oracle never requires rebuilding the client.
type Client struct {
	baseURL    string
	auth       *crypto.HMACAuth
	httpClient *http.Client
}

// NewClient creates an oracle Client. auth may be nil for authorities that
// expose an unauthenticated read path.
func NewClient(baseURL string, auth *crypto.HMACAuth) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// statusResponse is the authority's poll status envelope.
type statusResponse struct {
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updated_at"`
}

// Status returns the authority's current status for a poll.
func (c *Client) Status(ctx context.Context, ref string, pollID uint64) (domain.PollStatus, error) {
	resp, err := c.pollStatus(ctx, ref, pollID)
	if err != nil {
		return "", err
	}
	status := domain.PollStatus(resp.Status)
	if !status.Valid() {
		return "", fmt.Errorf("oracle: unknown status %q for poll %d", resp.Status, pollID)
	}
	return status, nil
}

// StatusUpdatedAt returns the Unix time the authority last changed the
// poll's status, or zero if it never has.
func (c *Client) StatusUpdatedAt(ctx context.Context, ref string, pollID uint64) (int64, error) {
	resp, err := c.pollStatus(ctx, ref, pollID)
	if err != nil {
		return 0, err
	}
	return resp.UpdatedAt, nil
}

func (c *Client) pollStatus(ctx context.Context, ref string, pollID uint64) (statusResponse, error) {
	path := fmt.Sprintf("/authorities/%s/polls/%d/status", ref, pollID)

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return statusResponse{}, fmt.Errorf("oracle: poll %d status: %w", pollID, err)
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return statusResponse{}, fmt.Errorf("oracle: decode poll %d status: %w", pollID, err)
	}
	return resp, nil
}

// SetStatus pushes a status change to the authority. Used for cancellation,
// which originates on the market side.
func (c *Client) SetStatus(ctx context.Context, ref string, pollID uint64, status domain.PollStatus) error {
	path := fmt.Sprintf("/authorities/%s/polls/%d/status", ref, pollID)
	payload, err := json.Marshal(map[string]string{"status": string(status)})
	if err != nil {
		return fmt.Errorf("oracle: marshal status: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPut, path, payload); err != nil {
		return fmt.Errorf("oracle: set poll %d status: %w", pollID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		for k, v := range c.auth.Headers(method, path, string(payload)) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrPollNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Compile-time interface check.
var _ domain.Oracle = (*Client)(nil)
