package commands

import (
	"context"

	"github.com/google/uuid"
)

// AvailabilityCache receives best-effort invalidation signals after a
// booking mutation commits. Implementations must never fail the caller.
type AvailabilityCache interface {
	OnBookingMutated(ctx context.Context, spotID uuid.UUID)
}

// NoopCache satisfies AvailabilityCache when no cache backend is wired.
type NoopCache struct{}

func (NoopCache) OnBookingMutated(context.Context, uuid.UUID) {}
