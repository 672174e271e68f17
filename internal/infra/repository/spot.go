package repository

import (
	"context"
	"errors"

	"spotmarket/internal/domain/spot"
	"spotmarket/internal/infra"
	"spotmarket/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SpotRepository struct {
	dbtx db.DBTX
}

func NewSpotRepository(dbtx db.DBTX) *SpotRepository {
	return &SpotRepository{dbtx: dbtx}
}

func (r *SpotRepository) FindByID(ctx context.Context, id uuid.UUID) (*spot.Spot, error) {
	const query = `
SELECT id, owner_id, title, hourly_rate, daily_rate, is_active, is_available, total_bookings
FROM spots
WHERE id = $1`

	var (
		spotID, ownerID uuid.UUID
		title           string
		hourlyRate      int64
		dailyRate       *int64
		isActive        bool
		isAvailable     bool
		totalBookings   int32
	)

	err := r.dbtx.QueryRow(ctx, query, id).Scan(
		&spotID, &ownerID, &title, &hourlyRate, &dailyRate, &isActive, &isAvailable, &totalBookings,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("spot not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find spot by ID", err)
	}

	s, err := spot.NewSpot(spotID, ownerID, title, hourlyRate, dailyRate, isActive, isAvailable, totalBookings)
	if err != nil {
		return nil, infra.WrapRepoErr("stored spot is invalid", err)
	}
	return s, nil
}

func (r *SpotRepository) IncrementTotalBookings(ctx context.Context, spotID uuid.UUID) error {
	const stmt = `UPDATE spots SET total_bookings = total_bookings + 1, updated_at = NOW() WHERE id = $1`

	tag, err := r.dbtx.Exec(ctx, stmt, spotID)
	if err != nil {
		return infra.WrapRepoErr("failed to increment spot booking counter", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("spot not found", nil, infra.KindNotFound)
	}

	return nil
}
