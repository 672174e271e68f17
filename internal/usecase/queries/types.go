package queries

import (
	"time"

	"github.com/google/uuid"
)

// SpotSummary is the minimal projection of a spot attached to booking
// reads, loaded with an explicit join rather than relationship magic.
type SpotSummary struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Title      string
	Address    string
	HourlyRate int64
	DailyRate  *int64
}

type BookingView struct {
	ID                 uuid.UUID
	RenterID           uuid.UUID
	Spot               SpotSummary
	StartTime          time.Time
	EndTime            time.Time
	Status             string
	Subtotal           int64
	ServiceFee         int64
	TotalAmount        int64
	OwnerPayout        int64
	PaymentStatus      string
	VehiclePlate       *string
	VehicleMake        *string
	VehicleModel       *string
	VehicleColor       *string
	SpecialRequests    *string
	CancellationReason *string
	CheckedInAt        *time.Time
	CheckedOutAt       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
