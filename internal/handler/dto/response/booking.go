package response

import (
	"time"

	"github.com/google/uuid"

	"spotmarket/internal/domain/booking"
	"spotmarket/internal/usecase/queries"
)

type QuoteResponse struct {
	Subtotal      int64   `json:"subtotal"`
	ServiceFee    int64   `json:"serviceFee"`
	TotalAmount   int64   `json:"totalAmount"`
	OwnerPayout   int64   `json:"ownerPayout"`
	DurationHours float64 `json:"durationHours"`
}

func FromQuote(q booking.Quote) *QuoteResponse {
	return &QuoteResponse{
		Subtotal:      q.Subtotal,
		ServiceFee:    q.ServiceFee,
		TotalAmount:   q.Total,
		OwnerPayout:   q.OwnerPayout,
		DurationHours: q.DurationHours,
	}
}

type SpotSummaryResponse struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Address    string    `json:"address"`
	HourlyRate int64     `json:"hourlyRate"`
	DailyRate  *int64    `json:"dailyRate,omitempty"`
}

type BookingDetailResponse struct {
	ID                 uuid.UUID           `json:"id"`
	RenterID           uuid.UUID           `json:"renterId"`
	Spot               SpotSummaryResponse `json:"spot"`
	StartTime          time.Time           `json:"startTime"`
	EndTime            time.Time           `json:"endTime"`
	Status             string              `json:"status"`
	Subtotal           int64               `json:"subtotal"`
	ServiceFee         int64               `json:"serviceFee"`
	TotalAmount        int64               `json:"totalAmount"`
	OwnerPayout        int64               `json:"ownerPayout"`
	PaymentStatus      string              `json:"paymentStatus"`
	VehiclePlate       *string             `json:"vehiclePlate,omitempty"`
	VehicleMake        *string             `json:"vehicleMake,omitempty"`
	VehicleModel       *string             `json:"vehicleModel,omitempty"`
	VehicleColor       *string             `json:"vehicleColor,omitempty"`
	SpecialRequests    *string             `json:"specialRequests,omitempty"`
	CancellationReason *string             `json:"cancellationReason,omitempty"`
	CheckedInAt        *time.Time          `json:"checkedInAt,omitempty"`
	CheckedOutAt       *time.Time          `json:"checkedOutAt,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

func FromBookingView(v *queries.BookingView) *BookingDetailResponse {
	return &BookingDetailResponse{
		ID:       v.ID,
		RenterID: v.RenterID,
		Spot: SpotSummaryResponse{
			ID:         v.Spot.ID,
			Title:      v.Spot.Title,
			Address:    v.Spot.Address,
			HourlyRate: v.Spot.HourlyRate,
			DailyRate:  v.Spot.DailyRate,
		},
		StartTime:          v.StartTime,
		EndTime:            v.EndTime,
		Status:             v.Status,
		Subtotal:           v.Subtotal,
		ServiceFee:         v.ServiceFee,
		TotalAmount:        v.TotalAmount,
		OwnerPayout:        v.OwnerPayout,
		PaymentStatus:      v.PaymentStatus,
		VehiclePlate:       v.VehiclePlate,
		VehicleMake:        v.VehicleMake,
		VehicleModel:       v.VehicleModel,
		VehicleColor:       v.VehicleColor,
		SpecialRequests:    v.SpecialRequests,
		CancellationReason: v.CancellationReason,
		CheckedInAt:        v.CheckedInAt,
		CheckedOutAt:       v.CheckedOutAt,
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}
