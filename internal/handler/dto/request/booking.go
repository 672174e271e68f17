package request

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"spotmarket/internal/domain/booking"
)

type CreateBookingRequest struct {
	SpotID          uuid.UUID `json:"spot_id" binding:"required"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	EndTime         time.Time `json:"end_time" binding:"required"`
	VehiclePlate    *string   `json:"vehicle_plate,omitempty"`
	VehicleMake     *string   `json:"vehicle_make,omitempty"`
	VehicleModel    *string   `json:"vehicle_model,omitempty"`
	VehicleColor    *string   `json:"vehicle_color,omitempty"`
	SpecialRequests *string   `json:"special_requests,omitempty"`
	PaymentIntentID *string   `json:"payment_intent_id,omitempty"`
}

func (r CreateBookingRequest) Vehicle() booking.Vehicle {
	return booking.Vehicle{
		Plate: trimmed(r.VehiclePlate),
		Make:  trimmed(r.VehicleMake),
		Model: trimmed(r.VehicleModel),
		Color: trimmed(r.VehicleColor),
	}
}

func (r CreateBookingRequest) GetSpecialRequests() string {
	return trimmed(r.SpecialRequests)
}

func (r CreateBookingRequest) GetPaymentIntentID() string {
	return trimmed(r.PaymentIntentID)
}

type QuoteRequest struct {
	SpotID    uuid.UUID `json:"spot_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Reason *string `json:"reason,omitempty"`
}

func (r UpdateStatusRequest) GetReason() string {
	return trimmed(r.Reason)
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

func (r CancelBookingRequest) GetReason() string {
	return trimmed(r.Reason)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
