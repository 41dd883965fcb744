// services/whop_client.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// WhopClient creates transfers through the Whop REST API.
type WhopClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewWhopClient throttles outgoing calls to ratePerSecond with the given burst.
// A ratePerSecond of zero disables throttling.
func NewWhopClient(baseURL, apiKey string, timeout time.Duration, ratePerSecond float64, burst int) *WhopClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &WhopClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
		Limiter: rate.NewLimiter(limit, burst),
	}
}

type whopTransferBody struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	DestinationID  string          `json:"destination_id"`
	OriginID       string          `json:"origin_id"`
	Notes          string          `json:"notes,omitempty"`
	IdempotenceKey string          `json:"idempotence_key"`
}

type whopTransferResponse struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	DestinationID string          `json:"destination_id"`
}

// CreateTransfer calls POST /transfers. Whop deduplicates on idempotence_key.
func (c *WhopClient) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("payout rate limit: %w", err)
	}

	jsonData, err := json.Marshal(whopTransferBody{
		Amount:         req.Amount,
		Currency:       req.Currency,
		DestinationID:  req.DestinationID,
		OriginID:       req.OriginID,
		Notes:          req.Notes,
		IdempotenceKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transfers", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call payout gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out whopTransferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode transfer response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("payout gateway returned no transfer id")
	}

	t := &Transfer{ID: out.ID, Amount: out.Amount, Currency: out.Currency, DestinationID: out.DestinationID}
	if t.Amount.IsZero() {
		t.Amount = req.Amount
	}
	if t.DestinationID == "" {
		t.DestinationID = req.DestinationID
	}
	if t.Currency == "" {
		t.Currency = req.Currency
	}
	return t, nil
}
