package booking

import "math"

// serviceFeePercent is the platform's cut, kept by the marketplace on top
// of the owner payout.
const serviceFeePercent = 0.10

// dailyRateThresholdHours is the duration at which a configured daily rate
// takes over from the hourly rate.
const dailyRateThresholdHours = 8.0

// Quote holds the deterministic price breakdown for a booking. All amounts
// are integer minor currency units.
type Quote struct {
	Subtotal      int64
	ServiceFee    int64
	Total         int64
	OwnerPayout   int64
	DurationHours float64
}

// CalculatePrice reproduces the marketplace pricing rule exactly. The slot
// ordering is caller-validated; rates are positive minor units per hour/day.
//
// For bookings of 8+ hours with a daily rate configured, the day count is
// max(1, hours/24) WITHOUT rounding up: a 30-hour booking is charged 1.25
// day-equivalents, truncated only at the final cast. This is a literal
// business policy, not a bug to fix.
func CalculatePrice(hourlyRate int64, dailyRate *int64, slot TimeSlot) Quote {
	hours := slot.Duration().Seconds() / 3600

	var subtotal int64
	if hours >= dailyRateThresholdHours && dailyRate != nil {
		days := math.Max(1.0, hours/24.0)
		subtotal = int64(float64(*dailyRate) * days)
	} else {
		subtotal = int64(float64(hourlyRate) * hours)
	}

	fee := int64(float64(subtotal) * serviceFeePercent)

	return Quote{
		Subtotal:      subtotal,
		ServiceFee:    fee,
		Total:         subtotal + fee,
		OwnerPayout:   subtotal,
		DurationHours: math.Round(hours*100) / 100,
	}
}
