// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
	"github.com/iliyamo/parking-lot-billing/internal/config"
)

// CouponSweeper deletes coupons that can no longer be used.
type CouponSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (billing.SweepResult, error)
}

// Scheduler wraps a cron instance with the coupon sweep registered.
type Scheduler struct {
	cron    *cron.Cron
	sweeper CouponSweeper
	timeout time.Duration
}

// New registers the sweep job at cfg.CouponSweepSpec.  An invalid spec is
// returned as an error.
func New(cfg config.SchedulerConfig, sweeper CouponSweeper) (*Scheduler, error) {
	if sweeper == nil {
		panic("nil sweeper")
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		sweeper: sweeper,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(cfg.CouponSweepSpec, func() {
		_, _ = s.RunSweep(context.Background())
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("scheduler: cron jobs started")
}

// Stop stops scheduling and waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Println("scheduler: stop timed out waiting for running job")
	}
}

// RunSweep performs one coupon sweep now.
func (s *Scheduler) RunSweep(ctx context.Context) (billing.SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.sweeper.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("scheduler: coupon sweep failed: %v", err)
		return res, err
	}
	if res.ExpiredDeleted > 0 || res.StaleUsedDeleted > 0 {
		log.Printf("scheduler: coupon sweep removed %d expired and %d used coupons",
			res.ExpiredDeleted, res.StaleUsedDeleted)
	}
	return res, nil
}
