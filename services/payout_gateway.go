package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// TransferRequest moves Amount from the organization balance (OriginID) to a
// member (DestinationID). IdempotencyKey makes retries safe.
type TransferRequest struct {
	Amount         decimal.Decimal
	Currency       string
	OriginID       string
	DestinationID  string
	IdempotencyKey string
	Notes          string
}

type Transfer struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	DestinationID string          `json:"destination_id"`
}

// PayoutGateway executes at most one real transfer per idempotency key, no
// matter how many times it is called with that key.
type PayoutGateway interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
}

// GatewayError is a non-2xx answer from the payout API.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("payout gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("payout gateway returned status %d: %s", e.StatusCode, e.Body)
}
