package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spotmarket/internal/pkg/clock"
	"spotmarket/internal/usecase/commands"
	"spotmarket/internal/usecase/shared"
)

// Sweeper drives the time-based booking transitions: confirmed bookings
// whose start has arrived move to in_progress, and bookings whose end has
// passed are completed with the spot counter bumped. Each sweep direction
// runs in a single transaction, so a crashed sweep changes nothing and the
// next tick redoes the full work. Transitions are state-guarded, which
// makes the sweep idempotent: a second pass over the same clock finds
// nothing to do.
//
// Deployments must enable exactly one sweeper process; the sweeper itself
// does no leader election.
type Sweeper struct {
	uow      shared.UnitOfWork
	cache    commands.AvailabilityCache
	clk      clock.Clock
	interval time.Duration
}

func NewSweeper(uow shared.UnitOfWork, cache commands.AvailabilityCache, clk clock.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{uow: uow, cache: cache, clk: clk, interval: interval}
}

// Run ticks until ctx is cancelled. Sweep errors are logged and the loop
// keeps going; a transient DB outage only delays transitions by a tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("booking sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			slog.Info("booking sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs both sweep directions against the current clock and
// returns the number of bookings transitioned.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	now := s.clk.Now()

	started, err := s.sweepAutoStart(ctx, now)
	if err != nil {
		slog.Error("auto-start sweep failed", "error", err.Error())
	}

	completed, err := s.sweepAutoComplete(ctx, now)
	if err != nil {
		slog.Error("auto-complete sweep failed", "error", err.Error())
	}

	if started+completed > 0 {
		slog.Info("booking sweep applied transitions", "started", started, "completed", completed)
	}
	return started + completed
}

func (s *Sweeper) sweepAutoStart(ctx context.Context, now time.Time) (int, error) {
	var count int
	var touched []uuid.UUID

	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		due, err := tx.Bookings().FindDueForStart(ctx, now)
		if err != nil {
			return err
		}
		for _, b := range due {
			if err := b.AutoStart(now); err != nil {
				// Another actor won the race for this booking; skip it.
				slog.Warn("skipping auto-start", "booking_id", b.ID().String(), "status", b.Status().String())
				continue
			}
			if err := tx.Bookings().UpdateState(ctx, b); err != nil {
				return err
			}
			touched = append(touched, b.SpotID())
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, spotID := range touched {
		s.cache.OnBookingMutated(ctx, spotID)
	}
	return count, nil
}

func (s *Sweeper) sweepAutoComplete(ctx context.Context, now time.Time) (int, error) {
	var count int
	var touched []uuid.UUID

	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		due, err := tx.Bookings().FindDueForCompletion(ctx, now)
		if err != nil {
			return err
		}
		for _, b := range due {
			if err := b.AutoComplete(now); err != nil {
				slog.Warn("skipping auto-complete", "booking_id", b.ID().String(), "status", b.Status().String())
				continue
			}
			if err := tx.Bookings().UpdateState(ctx, b); err != nil {
				return err
			}
			if err := tx.Spots().IncrementTotalBookings(ctx, b.SpotID()); err != nil {
				return err
			}
			touched = append(touched, b.SpotID())
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, spotID := range touched {
		s.cache.OnBookingMutated(ctx, spotID)
	}
	return count, nil
}
