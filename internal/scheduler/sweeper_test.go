//go:build unit

package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotmarket/internal/domain/booking"
	"spotmarket/internal/domain/spot"
	"spotmarket/internal/infra"
	"spotmarket/internal/infra/db"
	"spotmarket/internal/pkg/clock"
	"spotmarket/internal/scheduler"
	"spotmarket/internal/usecase/shared"
)

var sweepBase = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type memUoW struct {
	tx *memTx
}

func (u *memUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, u.tx)
}

type memTx struct {
	bookings map[uuid.UUID]*booking.Booking
	counters map[uuid.UUID]int
}

func (t *memTx) Bookings() shared.BookingRepository { return (*memBookingRepo)(t) }
func (t *memTx) Spots() shared.SpotRepository       { return (*memSpotRepo)(t) }
func (t *memTx) DB() db.DBTX                        { return nil }

type memBookingRepo memTx

func (r *memBookingRepo) Insert(_ context.Context, b *booking.Booking) error {
	r.bookings[b.ID()] = b
	return nil
}

func (r *memBookingRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	return b, nil
}

func (r *memBookingRepo) LockLiveIntervals(_ context.Context, spotID uuid.UUID) ([]booking.TimeSlot, error) {
	var out []booking.TimeSlot
	for _, b := range r.bookings {
		if b.SpotID() == spotID && b.IsLive() {
			out = append(out, b.Slot())
		}
	}
	return out, nil
}

func (r *memBookingRepo) UpdateState(_ context.Context, b *booking.Booking) error {
	r.bookings[b.ID()] = b
	return nil
}

func (r *memBookingRepo) FindDueForStart(_ context.Context, now time.Time) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range r.bookings {
		if b.Status() == booking.StatusConfirmed && !b.Slot().Start().After(now) && now.Before(b.Slot().End()) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) FindDueForCompletion(_ context.Context, now time.Time) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range r.bookings {
		if (b.Status() == booking.StatusInProgress || b.Status() == booking.StatusConfirmed) && !b.Slot().End().After(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memSpotRepo memTx

func (r *memSpotRepo) FindByID(_ context.Context, id uuid.UUID) (*spot.Spot, error) {
	return nil, infra.WrapRepoErr("spot not found", nil, infra.KindNotFound)
}

func (r *memSpotRepo) IncrementTotalBookings(_ context.Context, spotID uuid.UUID) error {
	r.counters[spotID]++
	return nil
}

type countingCache struct {
	calls int
}

func (c *countingCache) OnBookingMutated(context.Context, uuid.UUID) { c.calls++ }

func seedBooking(t *testing.T, tx *memTx, status booking.Status, start, end time.Time) *booking.Booking {
	t.Helper()

	slot, err := booking.NewTimeSlot(start, end)
	require.NoError(t, err)
	b, err := booking.NewBooking(uuid.New(), uuid.New(), slot, booking.Vehicle{}, "", booking.Quote{}, booking.StatusConfirmed)
	require.NoError(t, err)
	if status == booking.StatusInProgress {
		require.NoError(t, b.AutoStart(start))
	}
	tx.bookings[b.ID()] = b
	return b
}

func newSweepHarness(now time.Time) (*memUoW, *countingCache, *clock.MockClock, *scheduler.Sweeper) {
	uow := &memUoW{tx: &memTx{
		bookings: map[uuid.UUID]*booking.Booking{},
		counters: map[uuid.UUID]int{},
	}}
	cache := &countingCache{}
	clk := clock.NewMockClock(now)
	return uow, cache, clk, scheduler.NewSweeper(uow, cache, clk, time.Minute)
}

func TestSweepOnce_AutoStart(t *testing.T) {
	uow, cache, _, sw := newSweepHarness(sweepBase)
	b := seedBooking(t, uow.tx, booking.StatusConfirmed, sweepBase.Add(-time.Minute), sweepBase.Add(2*time.Hour))
	notYet := seedBooking(t, uow.tx, booking.StatusConfirmed, sweepBase.Add(time.Hour), sweepBase.Add(2*time.Hour))

	n := sw.SweepOnce(context.Background())

	assert.Equal(t, 1, n)
	assert.Equal(t, booking.StatusInProgress, b.Status())
	require.NotNil(t, b.CheckedInAt())
	assert.Equal(t, sweepBase, *b.CheckedInAt())
	assert.Equal(t, booking.StatusConfirmed, notYet.Status())
	assert.Equal(t, 1, cache.calls)
}

func TestSweepOnce_AutoComplete(t *testing.T) {
	uow, _, _, sw := newSweepHarness(sweepBase)
	b := seedBooking(t, uow.tx, booking.StatusInProgress, sweepBase.Add(-3*time.Hour), sweepBase.Add(-time.Minute))

	n := sw.SweepOnce(context.Background())

	assert.Equal(t, 1, n)
	assert.Equal(t, booking.StatusCompleted, b.Status())
	require.NotNil(t, b.CheckedOutAt())
	assert.Equal(t, sweepBase, *b.CheckedOutAt())
	assert.Equal(t, 1, uow.tx.counters[b.SpotID()])
}

// A confirmed booking that was never checked in still completes once its
// end time passes, skipping in_progress entirely.
func TestSweepOnce_CompletesUnstartedConfirmed(t *testing.T) {
	uow, _, _, sw := newSweepHarness(sweepBase)
	b := seedBooking(t, uow.tx, booking.StatusConfirmed, sweepBase.Add(-3*time.Hour), sweepBase.Add(-time.Minute))

	n := sw.SweepOnce(context.Background())

	assert.Equal(t, 1, n)
	assert.Equal(t, booking.StatusCompleted, b.Status())
	assert.Equal(t, 1, uow.tx.counters[b.SpotID()])
}

func TestSweepOnce_Idempotent(t *testing.T) {
	uow, cache, _, sw := newSweepHarness(sweepBase)
	started := seedBooking(t, uow.tx, booking.StatusConfirmed, sweepBase.Add(-time.Minute), sweepBase.Add(2*time.Hour))
	completed := seedBooking(t, uow.tx, booking.StatusInProgress, sweepBase.Add(-3*time.Hour), sweepBase.Add(-time.Minute))

	require.Equal(t, 2, sw.SweepOnce(context.Background()))

	// Same clock, second pass: every due booking already transitioned.
	assert.Equal(t, 0, sw.SweepOnce(context.Background()))
	assert.Equal(t, booking.StatusInProgress, started.Status())
	assert.Equal(t, booking.StatusCompleted, completed.Status())
	assert.Equal(t, 1, uow.tx.counters[completed.SpotID()], "counter must not double-increment")
	assert.Equal(t, 2, cache.calls)
}

func TestSweepOnce_ProgressionAcrossTicks(t *testing.T) {
	uow, _, clk, sw := newSweepHarness(sweepBase)
	b := seedBooking(t, uow.tx, booking.StatusConfirmed, sweepBase.Add(30*time.Minute), sweepBase.Add(90*time.Minute))

	assert.Equal(t, 0, sw.SweepOnce(context.Background()))

	clk.Set(sweepBase.Add(31 * time.Minute))
	assert.Equal(t, 1, sw.SweepOnce(context.Background()))
	assert.Equal(t, booking.StatusInProgress, b.Status())

	clk.Set(sweepBase.Add(91 * time.Minute))
	assert.Equal(t, 1, sw.SweepOnce(context.Background()))
	assert.Equal(t, booking.StatusCompleted, b.Status())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	uow, cache, clk, _ := newSweepHarness(sweepBase)
	sw := scheduler.NewSweeper(uow, cache, clk, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
