package spot

import (
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidRate = errors.New("hourly rate must be positive")

// Spot is the minimal projection of a parking spot the booking engine
// needs: identity, rates, and availability flags. Listing management owns
// the full record; the engine only reads it and bumps the completed-booking
// counter.
type Spot struct {
	id            uuid.UUID
	ownerID       uuid.UUID
	title         string
	hourlyRate    int64
	dailyRate     *int64
	isActive      bool
	isAvailable   bool
	totalBookings int32
}

func NewSpot(id, ownerID uuid.UUID, title string, hourlyRate int64, dailyRate *int64, isActive, isAvailable bool, totalBookings int32) (*Spot, error) {
	if hourlyRate <= 0 {
		return nil, ErrInvalidRate
	}
	if dailyRate != nil && *dailyRate <= 0 {
		return nil, ErrInvalidRate
	}

	return &Spot{
		id:            id,
		ownerID:       ownerID,
		title:         title,
		hourlyRate:    hourlyRate,
		dailyRate:     dailyRate,
		isActive:      isActive,
		isAvailable:   isAvailable,
		totalBookings: totalBookings,
	}, nil
}

// Bookable reports whether new bookings may target this spot.
func (s *Spot) Bookable() bool {
	return s.isActive && s.isAvailable
}

func (s *Spot) ID() uuid.UUID        { return s.id }
func (s *Spot) OwnerID() uuid.UUID   { return s.ownerID }
func (s *Spot) Title() string        { return s.title }
func (s *Spot) HourlyRate() int64    { return s.hourlyRate }
func (s *Spot) DailyRate() *int64    { return s.dailyRate }
func (s *Spot) IsActive() bool       { return s.isActive }
func (s *Spot) IsAvailable() bool    { return s.isAvailable }
func (s *Spot) TotalBookings() int32 { return s.totalBookings }
