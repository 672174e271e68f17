package booking

import (
	"errors"
	"time"
)

// TimeSlot is a half-open interval [start, end). Two slots sharing an
// endpoint do not overlap.
type TimeSlot struct {
	start time.Time
	end   time.Time
}

func NewTimeSlot(start, end time.Time) (TimeSlot, error) {
	if !start.Before(end) {
		return TimeSlot{}, errors.New("start time must be before end time")
	}

	return TimeSlot{
		start: start,
		end:   end,
	}, nil
}

func (ts TimeSlot) Start() time.Time {
	return ts.start
}

func (ts TimeSlot) End() time.Time {
	return ts.end
}

func (ts TimeSlot) Duration() time.Duration {
	return ts.end.Sub(ts.start)
}

// Overlaps implements the standard half-open interval test:
// [s1,e1) and [s2,e2) intersect iff s1 < e2 && s2 < e1.
func (ts TimeSlot) Overlaps(other TimeSlot) bool {
	return ts.start.Before(other.end) && other.start.Before(ts.end)
}

// FindConflict returns the index of the first existing slot intersecting the
// candidate, or -1. Callers pass the spot's live intervals, loaded under a
// row lock so the check-then-insert sequence is race free.
func FindConflict(candidate TimeSlot, existing []TimeSlot) int {
	for i, slot := range existing {
		if candidate.Overlaps(slot) {
			return i
		}
	}
	return -1
}

type Vehicle struct {
	Plate string
	Make  string
	Model string
	Color string
}
