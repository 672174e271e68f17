//go:build e2e

package booking_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"spotmarket/internal/domain/booking"
	"spotmarket/internal/handler/dto/request"
	"spotmarket/internal/handler/dto/response"
	"spotmarket/internal/infra/uow"
	"spotmarket/internal/pkg/clock"
	"spotmarket/internal/pkg/config"
	"spotmarket/internal/scheduler"
	"spotmarket/internal/usecase/commands"
	"spotmarket/tests/common/authtest"
	"spotmarket/tests/common/dbtest"
	"spotmarket/tests/common/httptest"
	"spotmarket/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	bookingsURL       = "/api/bookings"
	calculatePriceURL = "/api/bookings/calculate-price"
)

type BookingSuite struct {
	e2e.SharedSuite
	jwt *authtest.JWTHelper
}

func (s *BookingSuite) SetupSuite() {
	s.SharedSuite.SetupSuite()
	s.jwt = authtest.NewJWTHelper(s.Config.JWT)
}

func TestBookingSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(BookingSuite))
}

func (s *BookingSuite) token(userID uuid.UUID, role string) string {
	return s.jwt.GenerateToken(s.T(), userID, role)
}

func (s *BookingSuite) createRequest(spotID uuid.UUID, start, end time.Time) request.CreateBookingRequest {
	return request.CreateBookingRequest{
		SpotID:    spotID,
		StartTime: start,
		EndTime:   end,
	}
}

// =============================================================================
// TestCreateBooking
// =============================================================================

func (s *BookingSuite) TestCreateBooking() {
	s.Run("Normal case: booking is created confirmed with the priced quote", func() {
		t := s.T()

		ownerID := uuid.New()
		renterID := uuid.New()
		daily := int64(5000)
		spotID := dbtest.CreateTestSpot(t, s.DB, ownerID, "Central Garage", 600, &daily)

		start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)
		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(renterID, "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp response.BookingDetailResponse
		httptest.DecodeBody(t, rec, &resp)
		require.Equal(t, renterID, resp.RenterID)
		require.Equal(t, string(booking.StatusConfirmed), resp.Status)
		require.Equal(t, int64(1200), resp.Subtotal)
		require.Equal(t, int64(120), resp.ServiceFee)
		require.Equal(t, int64(1320), resp.TotalAmount)
		require.Equal(t, int64(1200), resp.OwnerPayout)

		// The create response carries the joined spot projection, not just
		// the foreign key.
		require.Equal(t, spotID, resp.Spot.ID)
		require.Equal(t, "Central Garage", resp.Spot.Title)
		require.Equal(t, int64(600), resp.Spot.HourlyRate)
		require.NotNil(t, resp.Spot.DailyRate)
		require.Equal(t, int64(5000), *resp.Spot.DailyRate)
	})

	s.Run("Error case: past start time is rejected", func() {
		t := s.T()

		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		start := time.Now().UTC().Add(-2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(time.Hour)), s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	s.Run("Error case: deactivated spot is rejected", func() {
		t := s.T()

		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		dbtest.DeactivateSpot(t, s.DB, spotID)
		start := time.Now().UTC().Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(time.Hour)), s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("Error case: unknown spot returns 404", func() {
		t := s.T()

		start := time.Now().UTC().Add(2 * time.Hour)
		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(uuid.New(), start, start.Add(time.Hour)), s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	s.Run("Error case: missing token returns 401", func() {
		t := s.T()

		start := time.Now().UTC().Add(2 * time.Hour)
		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(uuid.New(), start, start.Add(time.Hour)), "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// =============================================================================
// TestBookingConflicts
// =============================================================================

func (s *BookingSuite) TestBookingConflicts() {
	s.Run("Overlapping interval on the same spot returns 409", func() {
		t := s.T()

		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		start := time.Now().UTC().Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start.Add(time.Hour), start.Add(3*time.Hour)), s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	s.Run("Back-to-back intervals do not conflict", func() {
		t := s.T()

		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		start := time.Now().UTC().Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		// New booking starts exactly when the previous one ends.
		rec = httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start.Add(2*time.Hour), start.Add(4*time.Hour)), s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	s.Run("Cancelled booking releases its interval", func() {
		t := s.T()

		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		renterID := uuid.New()
		start := time.Now().UTC().Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(renterID, "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created response.BookingDetailResponse
		httptest.DecodeBody(t, rec, &created)

		reason := "plans changed"
		rec = httptest.PerformRequest(t, s.Router, http.MethodPatch,
			fmt.Sprintf("%s/%s/status", bookingsURL, created.ID),
			request.UpdateStatusRequest{Status: "cancelled", Reason: &reason}, s.token(renterID, "renter"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	s.Run("Concurrent requests for the same interval: exactly one wins", func() {
		t := s.T()

		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		start := time.Now().UTC().Add(2 * time.Hour)

		const attempts = 8
		codes := make([]int, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
					s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(uuid.New(), "renter"))
				codes[i] = rec.Code
			}(i)
		}
		wg.Wait()

		created, conflicted := 0, 0
		for _, code := range codes {
			switch code {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
				conflicted++
			}
		}
		require.Equal(t, 1, created, "exactly one concurrent booking must succeed: %v", codes)
		require.Equal(t, attempts-1, conflicted, "all others must conflict: %v", codes)
	})
}

// =============================================================================
// TestCalculatePrice
// =============================================================================

func (s *BookingSuite) TestCalculatePrice() {
	s.Run("Daily rate takes over at 8 hours without rounding up days", func() {
		t := s.T()

		daily := int64(5000)
		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, &daily)
		start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)

		// 30 hours at a 5000/day rate: 1.25 day-equivalents.
		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, calculatePriceURL,
			request.QuoteRequest{SpotID: spotID, StartTime: start, EndTime: start.Add(30 * time.Hour)},
			s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var quote response.QuoteResponse
		httptest.DecodeBody(t, rec, &quote)
		require.Equal(t, int64(6250), quote.Subtotal)
		require.Equal(t, int64(625), quote.ServiceFee)
		require.Equal(t, int64(6875), quote.TotalAmount)
		require.Equal(t, int64(6250), quote.OwnerPayout)
	})

	s.Run("Short bookings stay on the hourly rate", func() {
		t := s.T()

		daily := int64(5000)
		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 800, &daily)
		start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, calculatePriceURL,
			request.QuoteRequest{SpotID: spotID, StartTime: start, EndTime: start.Add(2 * time.Hour)},
			s.token(uuid.New(), "renter"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var quote response.QuoteResponse
		httptest.DecodeBody(t, rec, &quote)
		require.Equal(t, int64(1600), quote.Subtotal)
		require.Equal(t, int64(160), quote.ServiceFee)
		require.Equal(t, int64(1760), quote.TotalAmount)
	})
}

// =============================================================================
// TestBookingLifecycle
// =============================================================================

func (s *BookingSuite) TestBookingLifecycle() {
	s.Run("Renter checks in and out; spot counter increments once", func() {
		t := s.T()

		ownerID := uuid.New()
		renterID := uuid.New()
		spotID := dbtest.CreateTestSpot(t, s.DB, ownerID, "Central Garage", 600, nil)
		start := time.Now().UTC().Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(renterID, "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created response.BookingDetailResponse
		httptest.DecodeBody(t, rec, &created)

		rec = httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf("%s/%s/check-in", bookingsURL, created.ID), nil, s.token(renterID, "renter"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf("%s/%s/check-out", bookingsURL, created.ID), nil, s.token(renterID, "renter"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var completed response.BookingDetailResponse
		httptest.DecodeBody(t, rec, &completed)
		require.Equal(t, string(booking.StatusCompleted), completed.Status)
		require.Equal(t, int32(1), dbtest.SpotTotalBookings(t, s.DB, spotID))
	})

	s.Run("Concurrent check-outs: one completes, counter increments once", func() {
		t := s.T()

		renterID := uuid.New()
		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		start := time.Now().UTC().Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(renterID, "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created response.BookingDetailResponse
		httptest.DecodeBody(t, rec, &created)

		rec = httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf("%s/%s/check-in", bookingsURL, created.ID), nil, s.token(renterID, "renter"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// Row locking serializes the transitions: the losers load the
		// already-completed booking and get rejected by the state machine.
		const attempts = 4
		codes := make([]int, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := httptest.PerformRequest(t, s.Router, http.MethodPost,
					fmt.Sprintf("%s/%s/check-out", bookingsURL, created.ID), nil, s.token(renterID, "renter"))
				codes[i] = rec.Code
			}(i)
		}
		wg.Wait()

		completed, rejected := 0, 0
		for _, code := range codes {
			switch code {
			case http.StatusOK:
				completed++
			case http.StatusUnprocessableEntity:
				rejected++
			}
		}
		require.Equal(t, 1, completed, "exactly one check-out must complete: %v", codes)
		require.Equal(t, attempts-1, rejected, "all others must be rejected: %v", codes)
		require.Equal(t, int32(1), dbtest.SpotTotalBookings(t, s.DB, spotID))
	})

	s.Run("Stranger cannot view or mutate the booking", func() {
		t := s.T()

		renterID := uuid.New()
		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		start := time.Now().UTC().Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(renterID, "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created response.BookingDetailResponse
		httptest.DecodeBody(t, rec, &created)

		strangerToken := s.token(uuid.New(), "renter")
		rec = httptest.PerformRequest(t, s.Router, http.MethodGet,
			fmt.Sprintf("%s/%s", bookingsURL, created.ID), nil, strangerToken)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf("%s/%s/check-in", bookingsURL, created.ID), nil, strangerToken)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	s.Run("Renter and owner see the booking in their lists", func() {
		t := s.T()

		ownerID := uuid.New()
		renterID := uuid.New()
		spotID := dbtest.CreateTestSpot(t, s.DB, ownerID, "Central Garage", 600, nil)
		start := time.Now().UTC().Add(2 * time.Hour)

		rec := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			s.createRequest(spotID, start, start.Add(2*time.Hour)), s.token(renterID, "renter"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = httptest.PerformRequest(t, s.Router, http.MethodGet, bookingsURL, nil, s.token(renterID, "renter"))
		require.Equal(t, http.StatusOK, rec.Code)
		var mine []response.BookingDetailResponse
		httptest.DecodeBody(t, rec, &mine)
		require.Len(t, mine, 1)
		require.Equal(t, spotID, mine[0].Spot.ID)

		rec = httptest.PerformRequest(t, s.Router, http.MethodGet, bookingsURL+"/owner", nil, s.token(ownerID, "owner"))
		require.Equal(t, http.StatusOK, rec.Code)
		var owned []response.BookingDetailResponse
		httptest.DecodeBody(t, rec, &owned)
		require.Len(t, owned, 1)
	})
}

// =============================================================================
// TestAutoTransitionSweep
// =============================================================================

// The sweep scenario drives the real unit of work against the test
// database with a controllable clock: book 10:00-12:00, tick past the
// start, tick past the end, and watch the booking move through the
// lifecycle with the counter bumped exactly once.
func (s *BookingSuite) TestAutoTransitionSweep() {
	s.Run("Booking auto-starts and auto-completes as the clock advances", func() {
		t := s.T()

		base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
		clk := clock.NewMockClock(base.Add(-time.Hour)) // 09:00

		unitOfWork := uow.NewPostgresUoW(s.DB)
		cmds := commands.NewBookingCommands(unitOfWork, commands.NoopCache{}, clk, config.BookingConfig{AutoConfirm: true})
		sweeper := scheduler.NewSweeper(unitOfWork, commands.NoopCache{}, clk, time.Minute)

		spotID := dbtest.CreateTestSpot(t, s.DB, uuid.New(), "Central Garage", 600, nil)
		slot, err := booking.NewTimeSlot(base, base.Add(2*time.Hour)) // 10:00-12:00
		require.NoError(t, err)

		created, err := cmds.Create(context.Background(), commands.CreateBookingInput{
			SpotID:   spotID,
			RenterID: uuid.New(),
			Slot:     slot,
		})
		require.NoError(t, err)
		require.Equal(t, booking.StatusConfirmed, created.Status())

		// Before the start time nothing is due.
		require.Equal(t, 0, sweeper.SweepOnce(context.Background()))

		clk.Set(base.Add(time.Minute)) // 10:01
		require.Equal(t, 1, sweeper.SweepOnce(context.Background()))
		require.Equal(t, string(booking.StatusInProgress), dbtest.BookingStatus(t, s.DB, created.ID()))

		// Same tick again: idempotent.
		require.Equal(t, 0, sweeper.SweepOnce(context.Background()))

		clk.Set(base.Add(2*time.Hour + time.Minute)) // 12:01
		require.Equal(t, 1, sweeper.SweepOnce(context.Background()))
		require.Equal(t, string(booking.StatusCompleted), dbtest.BookingStatus(t, s.DB, created.ID()))
		require.Equal(t, int32(1), dbtest.SpotTotalBookings(t, s.DB, spotID))

		require.Equal(t, 0, sweeper.SweepOnce(context.Background()))
		require.Equal(t, int32(1), dbtest.SpotTotalBookings(t, s.DB, spotID))
	})
}
