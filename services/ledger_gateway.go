package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LedgerGateway is an in-memory PayoutGateway for dry runs and tests. It
// records one transfer per idempotency key and never moves real money.
type LedgerGateway struct {
	mu        sync.Mutex
	transfers map[string]Transfer
	calls     int
	failWith  error
}

func NewLedgerGateway() *LedgerGateway {
	return &LedgerGateway{transfers: map[string]Transfer{}}
}

func (g *LedgerGateway) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if g.failWith != nil {
		return nil, g.failWith
	}
	if t, ok := g.transfers[req.IdempotencyKey]; ok {
		return &t, nil
	}
	t := Transfer{
		ID:            "dry_" + uuid.NewString(),
		Amount:        req.Amount,
		Currency:      req.Currency,
		DestinationID: req.DestinationID,
	}
	g.transfers[req.IdempotencyKey] = t
	return &t, nil
}

// Executed is the number of distinct transfers that actually happened.
func (g *LedgerGateway) Executed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.transfers)
}

// Calls counts every CreateTransfer attempt, including replays and failures.
func (g *LedgerGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// SetFailure makes every following call fail with err until cleared with nil.
func (g *LedgerGateway) SetFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith = err
}
