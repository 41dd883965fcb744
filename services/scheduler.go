// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/runwiththewinners/bounties/metrics"
	"go.uber.org/zap"
)

// StartExpiryScheduler closes overdue bounties every interval. The caller owns
// the returned scheduler and must Shutdown it.
func (s *BountyService) StartExpiryScheduler(interval time.Duration, m *metrics.Metrics) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.sweepExpired(m) }),
		gocron.WithName("expire-bounties"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func (s *BountyService) sweepExpired(m *metrics.Metrics) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.ExpireOverdue(ctx, s.Now())
	if err != nil {
		s.Log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		m.Expired(n)
		s.Log.Info("auto-expired bounties", zap.Int64("count", n))
	}
}
