package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus     = errors.New("invalid booking status")
	ErrInvalidTransition = errors.New("invalid booking state transition")
)

// Booking is the aggregate driven through the reservation lifecycle:
//
//	pending -> confirmed -> in_progress -> completed
//	pending|confirmed -> cancelled
//	completed|cancelled (paid) -> refunded
//
// Every transition method checks its precondition and mutates nothing on
// failure. The automatic (sweep) paths additionally require the wall clock
// to have crossed the slot boundary.
type Booking struct {
	id                 uuid.UUID
	spotID             uuid.UUID
	renterID           uuid.UUID
	slot               TimeSlot
	status             Status
	quote              Quote
	paymentIntentID    *string
	paymentStatus      PaymentStatus
	vehicle            Vehicle
	specialRequests    string
	cancellationReason *string
	checkedInAt        *time.Time
	checkedOutAt       *time.Time
	createdAt          time.Time
	updatedAt          time.Time
}

func NewBooking(
	spotID, renterID uuid.UUID,
	slot TimeSlot,
	vehicle Vehicle,
	specialRequests string,
	quote Quote,
	initial Status,
) (*Booking, error) {
	if initial != StatusPending && initial != StatusConfirmed {
		return nil, ErrInvalidStatus
	}

	payment := PaymentPending
	if initial == StatusConfirmed {
		payment = PaymentCompleted
	}

	return &Booking{
		id:              uuid.New(),
		spotID:          spotID,
		renterID:        renterID,
		slot:            slot,
		status:          initial,
		quote:           quote,
		paymentStatus:   payment,
		vehicle:         vehicle,
		specialRequests: specialRequests,
	}, nil
}

func ReconstructBooking(
	id, spotID, renterID uuid.UUID,
	slot TimeSlot,
	status Status,
	quote Quote,
	paymentIntentID *string,
	paymentStatus PaymentStatus,
	vehicle Vehicle,
	specialRequests string,
	cancellationReason *string,
	checkedInAt, checkedOutAt *time.Time,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:                 id,
		spotID:             spotID,
		renterID:           renterID,
		slot:               slot,
		status:             status,
		quote:              quote,
		paymentIntentID:    paymentIntentID,
		paymentStatus:      paymentStatus,
		vehicle:            vehicle,
		specialRequests:    specialRequests,
		cancellationReason: cancellationReason,
		checkedInAt:        checkedInAt,
		checkedOutAt:       checkedOutAt,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// Confirm moves a pending booking to confirmed. Invoked by the spot owner,
// an admin, or the payment collaborator on successful payment.
func (b *Booking) Confirm() error {
	if b.status != StatusPending {
		return ErrInvalidTransition
	}
	b.status = StatusConfirmed
	b.paymentStatus = PaymentCompleted
	return nil
}

// Cancel is allowed from pending or confirmed and records the reason.
// Cancellation is a state, never a deletion.
func (b *Booking) Cancel(reason string) error {
	if b.status != StatusPending && b.status != StatusConfirmed {
		return ErrInvalidTransition
	}
	b.status = StatusCancelled
	if reason != "" {
		b.cancellationReason = &reason
	}
	return nil
}

// CheckIn is the manual renter action. It requires the booking to be
// exactly confirmed (a pending booking cannot skip ahead).
func (b *Booking) CheckIn(now time.Time) error {
	if b.status != StatusConfirmed {
		return ErrInvalidTransition
	}
	b.status = StatusInProgress
	b.checkedInAt = &now
	return nil
}

// CheckOut is the manual renter action, valid only while in progress.
func (b *Booking) CheckOut(now time.Time) error {
	if b.status != StatusInProgress {
		return ErrInvalidTransition
	}
	b.status = StatusCompleted
	b.checkedOutAt = &now
	return nil
}

// AutoStart is the scheduler path: a confirmed booking whose start time has
// been reached moves to in_progress with the check-in stamped.
func (b *Booking) AutoStart(now time.Time) error {
	if b.status != StatusConfirmed {
		return ErrInvalidTransition
	}
	if now.Before(b.slot.Start()) || !now.Before(b.slot.End()) {
		return ErrInvalidTransition
	}
	b.status = StatusInProgress
	b.checkedInAt = &now
	return nil
}

// AutoComplete is the scheduler path: once the end time has passed, both
// in_progress and still-confirmed bookings are checked out.
func (b *Booking) AutoComplete(now time.Time) error {
	if b.status != StatusInProgress && b.status != StatusConfirmed {
		return ErrInvalidTransition
	}
	if now.Before(b.slot.End()) {
		return ErrInvalidTransition
	}
	b.status = StatusCompleted
	b.checkedOutAt = &now
	return nil
}

// Refund records the outcome of a refund issued by the external payment
// collaborator. Only paid bookings in a terminal-but-unrefunded state
// qualify.
func (b *Booking) Refund() error {
	if b.paymentStatus != PaymentCompleted {
		return ErrInvalidTransition
	}
	if b.status != StatusCompleted && b.status != StatusCancelled {
		return ErrInvalidTransition
	}
	b.status = StatusRefunded
	b.paymentStatus = PaymentRefunded
	return nil
}

func (b *Booking) AttachPaymentIntent(id string) {
	b.paymentIntentID = &id
}

func (b *Booking) IsLive() bool {
	return b.status.IsLive()
}

func (b *Booking) ID() uuid.UUID               { return b.id }
func (b *Booking) SpotID() uuid.UUID           { return b.spotID }
func (b *Booking) RenterID() uuid.UUID         { return b.renterID }
func (b *Booking) Slot() TimeSlot              { return b.slot }
func (b *Booking) Status() Status              { return b.status }
func (b *Booking) Quote() Quote                { return b.quote }
func (b *Booking) PaymentIntentID() *string    { return b.paymentIntentID }
func (b *Booking) PaymentStatus() PaymentStatus {
	return b.paymentStatus
}
func (b *Booking) Vehicle() Vehicle             { return b.vehicle }
func (b *Booking) SpecialRequests() string      { return b.specialRequests }
func (b *Booking) CancellationReason() *string  { return b.cancellationReason }
func (b *Booking) CheckedInAt() *time.Time      { return b.checkedInAt }
func (b *Booking) CheckedOutAt() *time.Time     { return b.checkedOutAt }
func (b *Booking) CreatedAt() time.Time         { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time         { return b.updatedAt }
