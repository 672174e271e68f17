//go:build unit

package commands_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"spotmarket/internal/domain/booking"
	"spotmarket/internal/domain/spot"
	"spotmarket/internal/infra"
	"spotmarket/internal/infra/db"
	"spotmarket/internal/usecase/shared"
)

// fakeUoW runs the transactional closure directly against in-memory repos.
// It exercises use case orchestration without a database; the locking and
// constraint behaviour is covered by the e2e suite.
type fakeUoW struct {
	tx *fakeTx
}

func newFakeUoW() *fakeUoW {
	return &fakeUoW{
		tx: &fakeTx{
			bookings: &fakeBookingRepo{byID: map[uuid.UUID]*booking.Booking{}},
			spots:    &fakeSpotRepo{byID: map[uuid.UUID]*spot.Spot{}},
		},
	}
}

func (u *fakeUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, u.tx)
}

type fakeTx struct {
	bookings *fakeBookingRepo
	spots    *fakeSpotRepo
}

func (t *fakeTx) Bookings() shared.BookingRepository { return t.bookings }
func (t *fakeTx) Spots() shared.SpotRepository       { return t.spots }
func (t *fakeTx) DB() db.DBTX                        { return nil }

type fakeBookingRepo struct {
	byID        map[uuid.UUID]*booking.Booking
	insertErr   error
	lockCalls   int
	updateCalls int
}

func (r *fakeBookingRepo) Insert(_ context.Context, b *booking.Booking) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.byID[b.ID()] = b
	return nil
}

func (r *fakeBookingRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, ok := r.byID[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	return b, nil
}

func (r *fakeBookingRepo) LockLiveIntervals(_ context.Context, spotID uuid.UUID) ([]booking.TimeSlot, error) {
	r.lockCalls++
	var out []booking.TimeSlot
	for _, b := range r.byID {
		if b.SpotID() == spotID && b.IsLive() {
			out = append(out, b.Slot())
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) UpdateState(_ context.Context, b *booking.Booking) error {
	r.updateCalls++
	r.byID[b.ID()] = b
	return nil
}

func (r *fakeBookingRepo) FindDueForStart(_ context.Context, now time.Time) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range r.byID {
		if b.Status() == booking.StatusConfirmed && !b.Slot().Start().After(now) && now.Before(b.Slot().End()) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindDueForCompletion(_ context.Context, now time.Time) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range r.byID {
		if (b.Status() == booking.StatusInProgress || b.Status() == booking.StatusConfirmed) && !b.Slot().End().After(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeSpotRepo struct {
	byID       map[uuid.UUID]*spot.Spot
	increments map[uuid.UUID]int
}

func (r *fakeSpotRepo) FindByID(_ context.Context, id uuid.UUID) (*spot.Spot, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, infra.WrapRepoErr("spot not found", nil, infra.KindNotFound)
	}
	return s, nil
}

func (r *fakeSpotRepo) IncrementTotalBookings(_ context.Context, spotID uuid.UUID) error {
	if r.increments == nil {
		r.increments = map[uuid.UUID]int{}
	}
	r.increments[spotID]++
	return nil
}

type recordingCache struct {
	mutated []uuid.UUID
}

func (c *recordingCache) OnBookingMutated(_ context.Context, spotID uuid.UUID) {
	c.mutated = append(c.mutated, spotID)
}
