package escrow

import (
	"context"
	"errors"
	"time"

	"stayvault/internal/bookings"
	"stayvault/internal/shared/constants"
	"stayvault/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SweepResult summarizes one scheduler pass
type SweepResult struct {
	Candidates int           `json:"candidates"`
	Released   int           `json:"released"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
}

// ReleaseCallback is invoked after each successful payout for notification
// and observability hookup
type ReleaseCallback func(bookingID uuid.UUID, amount float64)

// BookingSweeper is the slice of the booking store the scheduler reads;
// bookings.Repository satisfies it
type BookingSweeper interface {
	GetDueForRelease(ctx context.Context, now time.Time, limit int) ([]bookings.Booking, error)
}

// Scheduler periodically sweeps bookings whose escrow release date has
// passed and pays out the hosts. A booking that fails is logged and skipped;
// the sweep never halts. Re-running against the same clock is safe because
// ReleaseFunds enforces the single-release invariant.
type Scheduler struct {
	escrow    Service
	sweeper   BookingSweeper
	redis     *redis.Client
	interval  time.Duration
	batchSize int
	lockTTL   time.Duration
	onRelease ReleaseCallback
	log       *logger.Logger
	done      chan struct{}
}

type SchedulerConfig struct {
	Interval  time.Duration
	BatchSize int
	LockTTL   time.Duration
}

func NewScheduler(escrow Service, sweeper BookingSweeper, redisClient *redis.Client, cfg SchedulerConfig, log *logger.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Scheduler{
		escrow:    escrow,
		sweeper:   sweeper,
		redis:     redisClient,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		lockTTL:   cfg.LockTTL,
		log:       log,
		done:      make(chan struct{}),
	}
}

// SetReleaseCallback registers the per-payout hook. Must be called before
// Start.
func (s *Scheduler) SetReleaseCallback(cb ReleaseCallback) {
	s.onRelease = cb
}

// Start launches the sweep loop in the background
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(ctx, time.Now()); err != nil {
					s.log.ErrorWithContext(ctx, "Release sweep failed", err, nil)
				}
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep loop. A sweep in flight finishes its current booking;
// transactions already committed stay committed.
func (s *Scheduler) Stop() {
	close(s.done)
}

// Sweep runs one pass: find due bookings, release each, skip failures.
// When Redis is configured, a SETNX lease ensures only one instance sweeps
// at a time; without Redis the single-release guard alone keeps re-runs
// idempotent.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	if s.redis != nil {
		acquired, err := s.acquireLease(ctx)
		if err != nil {
			return nil, err
		}
		if !acquired {
			s.log.InfoWithContext(ctx, "Sweep lease held elsewhere, skipping", nil)
			return &SweepResult{StartedAt: now}, nil
		}
		defer s.releaseLease(ctx)
	}

	started := time.Now()
	result := &SweepResult{StartedAt: now}

	candidates, err := s.sweeper.GetDueForRelease(ctx, now, s.batchSize)
	if err != nil {
		return nil, err
	}
	result.Candidates = len(candidates)
	s.log.LogSweepStarted(ctx, len(candidates))

	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			result.Duration = time.Since(started)
			return result, ctx.Err()
		default:
		}

		txn, err := s.escrow.ReleaseFunds(ctx, candidate.ID)
		if err != nil {
			// Raced with a manual action or a dispute; the next sweep
			// re-evaluates
			if errors.Is(err, ErrAlreadyReleased) || errors.Is(err, ErrNotPaid) {
				result.Skipped++
				continue
			}
			s.log.ErrorWithContext(ctx, "Release failed, skipping booking", err, map[string]interface{}{
				"booking_id": candidate.ID.String(),
			})
			result.Skipped++
			continue
		}

		result.Released++
		if s.onRelease != nil {
			s.onRelease(candidate.ID, txn.Amount)
		}
	}

	result.Duration = time.Since(started)
	s.log.LogSweepCompleted(ctx, result.Released, result.Skipped, result.Duration)
	return result, nil
}

func (s *Scheduler) acquireLease(ctx context.Context) (bool, error) {
	return s.redis.SetNX(ctx, constants.SweepLockKey, time.Now().Format(time.RFC3339), s.lockTTL).Result()
}

func (s *Scheduler) releaseLease(ctx context.Context) {
	if err := s.redis.Del(ctx, constants.SweepLockKey).Err(); err != nil {
		s.log.ErrorWithContext(ctx, "Failed to release sweep lease", err, nil)
	}
}
