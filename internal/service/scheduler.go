package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/conexx/hub/pkg/logger"
)

// schedulerLockKey is the lease name shared by every replica.
const schedulerLockKey = "scheduler"

// Locker grants a lease held by one replica at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Scheduler runs periodic billing housekeeping in the background. It only
// recalculates amounts of fees that are still pending and purges expired
// OAuth states. It never changes a fee's status or calls the payment provider;
// status changes come from operators and provider webhooks.
type Scheduler struct {
	calculator   *FeeCalculator
	integrations *IntegrationService
	locker       Locker
	interval     time.Duration
	now          func() time.Time
	log          *slog.Logger
}

// NewScheduler creates a scheduler ticking every interval. integrations may be nil.
func NewScheduler(calculator *FeeCalculator, integrations *IntegrationService, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		calculator:   calculator,
		integrations: integrations,
		interval:     interval,
		now:          time.Now,
		log:          log,
	}
}

// WithLocker makes each tick skip unless this replica holds the lease.
func (s *Scheduler) WithLocker(l Locker) *Scheduler {
	s.locker = l
	return s
}

// Start begins the loop in a background goroutine. It stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		s.tick(ctx)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// tick refreshes the pending fees of the running week and of the week that
// just closed, then drops expired OAuth states.
func (s *Scheduler) tick(ctx context.Context) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, schedulerLockKey, s.interval)
		if err != nil {
			s.log.ErrorContext(ctx, "scheduler lock failed", logger.Error(err))
			return
		}
		if !ok {
			s.log.DebugContext(ctx, "scheduler tick skipped, lease held elsewhere")
			return
		}
		defer release()
	}

	now := s.now()
	for _, at := range []time.Time{now.AddDate(0, 0, -7), now} {
		n, err := s.calculator.CalculateAll(ctx, at)
		if err != nil {
			s.log.ErrorContext(ctx, "scheduled fee calculation failed", logger.Error(err))
			continue
		}
		s.log.DebugContext(ctx, "scheduled fee calculation done", "tenants", n, "at", at)
	}

	if s.integrations == nil {
		return
	}
	purged, err := s.integrations.PurgeExpiredStates(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to purge oauth states", logger.Error(err))
		return
	}
	if purged > 0 {
		s.log.InfoContext(ctx, "expired oauth states purged", "count", purged)
	}
}
