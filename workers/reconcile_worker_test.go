package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/runwiththewinners/bounties/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type FakeReconciler struct {
	ReconcileFunc func(ctx context.Context, apply bool) (*services.ReconcileReport, error)
	calls         atomic.Int32
	applied       atomic.Bool
}

func (f *FakeReconciler) Reconcile(ctx context.Context, apply bool) (*services.ReconcileReport, error) {
	f.calls.Add(1)
	if apply {
		f.applied.Store(true)
	}
	if f.ReconcileFunc != nil {
		return f.ReconcileFunc(ctx, apply)
	}
	return &services.ReconcileReport{}, nil
}

func TestReconcileWorker_RunOnce(t *testing.T) {
	tests := []struct {
		name       string
		reconcile  func(ctx context.Context, apply bool) (*services.ReconcileReport, error)
		wantReport bool
		wantSync   bool
	}{
		{
			name:       "in sync",
			wantReport: true,
			wantSync:   true,
		},
		{
			name: "drift is reported",
			reconcile: func(ctx context.Context, apply bool) (*services.ReconcileReport, error) {
				return &services.ReconcileReport{
					RecordedTotal: decimal.NewFromInt(10),
					ExpectedTotal: decimal.NewFromInt(20),
					RecordedCount: 1,
					ExpectedCount: 2,
				}, nil
			},
			wantReport: true,
		},
		{
			name: "error yields nil",
			reconcile: func(ctx context.Context, apply bool) (*services.ReconcileReport, error) {
				return nil, errors.New("db down")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &FakeReconciler{ReconcileFunc: tt.reconcile}
			w := NewReconcileWorker(fake, time.Minute, zap.NewNop())

			report := w.RunOnce(context.Background())

			assert.Equal(t, int32(1), fake.calls.Load())
			assert.False(t, fake.applied.Load(), "worker must never apply corrections")
			if !tt.wantReport {
				assert.Nil(t, report)
				return
			}
			require.NotNil(t, report)
			assert.Equal(t, tt.wantSync, report.InSync())
			assert.Same(t, report, w.LastReport)
		})
	}
}

func TestReconcileWorker_RunStopsOnCancel(t *testing.T) {
	fake := &FakeReconciler{}
	w := NewReconcileWorker(fake, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fake.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
