package commands

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"spotmarket/internal/domain/booking"
	"spotmarket/internal/domain/spot"
	"spotmarket/internal/infra"
	"spotmarket/internal/pkg/clock"
	"spotmarket/internal/pkg/config"
	"spotmarket/internal/pkg/errs"
	"spotmarket/internal/usecase/shared"
)

var (
	ErrSpotNotFound    = errors.New("spot not found")
	ErrSpotUnavailable = errors.New("spot is not available for booking")
	ErrInvalidInterval = errors.New("invalid booking interval")
	ErrBookingConflict = errors.New("spot is already booked for this time")
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotAuthorized   = errors.New("not authorized for this booking")
)

const RoleAdmin = "admin"

type CreateBookingInput struct {
	SpotID          uuid.UUID
	RenterID        uuid.UUID
	Slot            booking.TimeSlot
	Vehicle         booking.Vehicle
	SpecialRequests string
	// PaymentIntentID is the reference issued by the external payment
	// provider; payments themselves are processed outside this service.
	PaymentIntentID string
}

type BookingCommands interface {
	Create(ctx context.Context, in CreateBookingInput) (*booking.Booking, error)
	// Quote prices an interval against a spot without persisting anything.
	Quote(ctx context.Context, spotID uuid.UUID, slot booking.TimeSlot) (booking.Quote, error)
	Confirm(ctx context.Context, bookingID, actorID uuid.UUID, actorRole string) (*booking.Booking, error)
	Cancel(ctx context.Context, bookingID, actorID uuid.UUID, actorRole, reason string) (*booking.Booking, error)
	CheckIn(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error)
	CheckOut(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error)
	Refund(ctx context.Context, bookingID uuid.UUID, actorRole string) (*booking.Booking, error)
}

type bookingCommands struct {
	uow   shared.UnitOfWork
	cache AvailabilityCache
	clk   clock.Clock
	cfg   config.BookingConfig
}

func NewBookingCommands(uow shared.UnitOfWork, cache AvailabilityCache, clk clock.Clock, cfg config.BookingConfig) BookingCommands {
	return &bookingCommands{uow: uow, cache: cache, clk: clk, cfg: cfg}
}

// Create runs the whole reservation protocol in one transaction: load and
// validate the spot, lock every live booking of the spot, check the
// candidate interval against the locked set, price it, and insert. The
// database exclusion constraint backstops the check, so a racing insert
// that slips past the lock still surfaces as ErrBookingConflict.
func (c *bookingCommands) Create(ctx context.Context, in CreateBookingInput) (*booking.Booking, error) {
	if in.Slot.Start().Before(c.clk.Now()) {
		return nil, ErrInvalidInterval
	}

	var created *booking.Booking
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		sp, err := tx.Spots().FindByID(ctx, in.SpotID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, ErrSpotNotFound)
			}
			return errs.Wrap(err, "failed to load spot")
		}
		if !sp.Bookable() {
			return ErrSpotUnavailable
		}

		intervals, err := tx.Bookings().LockLiveIntervals(ctx, in.SpotID)
		if err != nil {
			return errs.Wrap(err, "failed to lock live bookings")
		}
		if booking.FindConflict(in.Slot, intervals) >= 0 {
			return ErrBookingConflict
		}

		quote := booking.CalculatePrice(sp.HourlyRate(), sp.DailyRate(), in.Slot)

		initial := booking.StatusPending
		if c.cfg.AutoConfirm {
			initial = booking.StatusConfirmed
		}
		b, err := booking.NewBooking(in.SpotID, in.RenterID, in.Slot, in.Vehicle, in.SpecialRequests, quote, initial)
		if err != nil {
			return errs.Wrap(err, "failed to build booking")
		}
		if in.PaymentIntentID != "" {
			b.AttachPaymentIntent(in.PaymentIntentID)
		}

		if err := tx.Bookings().Insert(ctx, b); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				return errs.Mark(err, ErrBookingConflict)
			}
			return errs.Wrap(err, "failed to insert booking")
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.cache.OnBookingMutated(ctx, in.SpotID)
	return created, nil
}

func (c *bookingCommands) Quote(ctx context.Context, spotID uuid.UUID, slot booking.TimeSlot) (booking.Quote, error) {
	var sp *spot.Spot
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		sp, err = tx.Spots().FindByID(ctx, spotID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, ErrSpotNotFound)
			}
			return errs.Wrap(err, "failed to load spot")
		}
		return nil
	})
	if err != nil {
		return booking.Quote{}, err
	}
	return booking.CalculatePrice(sp.HourlyRate(), sp.DailyRate(), slot), nil
}

// mutate loads the booking, applies fn, and persists the new state. The
// load takes a FOR UPDATE lock on the row, so concurrent transitions of the
// same booking serialize and the loser sees the already-transitioned status.
func (c *bookingCommands) mutate(ctx context.Context, bookingID uuid.UUID, fn func(ctx context.Context, tx shared.Tx, b *booking.Booking) error) (*booking.Booking, error) {
	var mutated *booking.Booking
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, ErrBookingNotFound)
			}
			return errs.Wrap(err, "failed to load booking")
		}
		if err := fn(ctx, tx, b); err != nil {
			return err
		}
		if err := tx.Bookings().UpdateState(ctx, b); err != nil {
			return errs.Wrap(err, "failed to persist booking state")
		}
		mutated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.cache.OnBookingMutated(ctx, mutated.SpotID())
	return mutated, nil
}

// Confirm is the owner/admin acceptance of a pending booking.
func (c *bookingCommands) Confirm(ctx context.Context, bookingID, actorID uuid.UUID, actorRole string) (*booking.Booking, error) {
	return c.mutate(ctx, bookingID, func(ctx context.Context, tx shared.Tx, b *booking.Booking) error {
		if actorRole != RoleAdmin {
			sp, err := tx.Spots().FindByID(ctx, b.SpotID())
			if err != nil {
				return errs.Wrap(err, "failed to load spot for authorization")
			}
			if sp.OwnerID() != actorID {
				return ErrNotAuthorized
			}
		}
		return b.Confirm()
	})
}

// Cancel is allowed to the renter, the spot owner, or an admin.
func (c *bookingCommands) Cancel(ctx context.Context, bookingID, actorID uuid.UUID, actorRole, reason string) (*booking.Booking, error) {
	return c.mutate(ctx, bookingID, func(ctx context.Context, tx shared.Tx, b *booking.Booking) error {
		if b.RenterID() != actorID && actorRole != RoleAdmin {
			sp, err := tx.Spots().FindByID(ctx, b.SpotID())
			if err != nil {
				return errs.Wrap(err, "failed to load spot for authorization")
			}
			if sp.OwnerID() != actorID {
				return ErrNotAuthorized
			}
		}
		return b.Cancel(reason)
	})
}

func (c *bookingCommands) CheckIn(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error) {
	return c.mutate(ctx, bookingID, func(ctx context.Context, tx shared.Tx, b *booking.Booking) error {
		if b.RenterID() != actorID {
			return ErrNotAuthorized
		}
		return b.CheckIn(c.clk.Now())
	})
}

// CheckOut completes the stay and bumps the spot's completed-booking
// counter in the same transaction.
func (c *bookingCommands) CheckOut(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error) {
	return c.mutate(ctx, bookingID, func(ctx context.Context, tx shared.Tx, b *booking.Booking) error {
		if b.RenterID() != actorID {
			return ErrNotAuthorized
		}
		if err := b.CheckOut(c.clk.Now()); err != nil {
			return err
		}
		return tx.Spots().IncrementTotalBookings(ctx, b.SpotID())
	})
}

// Refund records a refund issued out of band by the payment collaborator.
// Admin only; the engine never talks to the payment provider itself.
func (c *bookingCommands) Refund(ctx context.Context, bookingID uuid.UUID, actorRole string) (*booking.Booking, error) {
	return c.mutate(ctx, bookingID, func(ctx context.Context, tx shared.Tx, b *booking.Booking) error {
		if actorRole != RoleAdmin {
			return ErrNotAuthorized
		}
		return b.Refund()
	})
}
