package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spotmarket/internal/domain/booking"
	reqdto "spotmarket/internal/handler/dto/request"
	resdto "spotmarket/internal/handler/dto/response"
	"spotmarket/internal/handler/middleware"
	"spotmarket/internal/usecase/commands"
	"spotmarket/internal/usecase/queries"
)

type BookingHandler struct {
	bookingCommands commands.BookingCommands
	bookingQueries  queries.BookingQueries
}

func NewBookingHandler(bookingCommands commands.BookingCommands, bookingQueries queries.BookingQueries) *BookingHandler {
	return &BookingHandler{
		bookingCommands: bookingCommands,
		bookingQueries:  bookingQueries,
	}
}

// @Summary Create booking
// @Description Book a parking spot for a time interval
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateBookingRequest true "Booking request"
// @Success 201 {object} resdto.BookingDetailResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, role, ok := h.actor(c)
	if !ok {
		return
	}

	var req reqdto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	slot, err := booking.NewTimeSlot(req.StartTime, req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End time must be after start time"})
		return
	}

	b, err := h.bookingCommands.Create(c.Request.Context(), commands.CreateBookingInput{
		SpotID:          req.SpotID,
		RenterID:        userID,
		Slot:            slot,
		Vehicle:         req.Vehicle(),
		SpecialRequests: req.GetSpecialRequests(),
		PaymentIntentID: req.GetPaymentIntentID(),
	})
	if err != nil {
		h.respondCommandError(c, err)
		return
	}

	h.respondBookingDetail(c, http.StatusCreated, b.ID(), userID, role)
}

// @Summary Calculate booking price
// @Description Price a time interval against a spot without booking it
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.QuoteRequest true "Quote request"
// @Success 200 {object} resdto.QuoteResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/calculate-price [post]
func (h *BookingHandler) CalculatePrice(c *gin.Context) {
	var req reqdto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	slot, err := booking.NewTimeSlot(req.StartTime, req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End time must be after start time"})
		return
	}

	quote, err := h.bookingCommands.Quote(c.Request.Context(), req.SpotID, slot)
	if err != nil {
		h.respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromQuote(quote))
}

// @Summary Get booking
// @Description Get booking by ID (renter, spot owner, or admin)
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingDetailResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, role, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	view, err := h.bookingQueries.GetByID(c.Request.Context(), id, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, queries.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, queries.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to view this booking"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

// @Summary List my bookings
// @Description List bookings made by the current user, newest first
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {array} resdto.BookingDetailResponse
// @Failure 401 {object} map[string]string
// @Router /bookings [get]
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	views, err := h.bookingQueries.ListByRenter(c.Request.Context(), userID, h.statusFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, h.toDetailList(views))
}

// @Summary List bookings on my spots
// @Description List bookings targeting spots owned by the current user
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {array} resdto.BookingDetailResponse
// @Failure 401 {object} map[string]string
// @Router /bookings/owner [get]
func (h *BookingHandler) ListOwnerBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	views, err := h.bookingQueries.ListByOwner(c.Request.Context(), userID, h.statusFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, h.toDetailList(views))
}

// @Summary Update booking status
// @Description Confirm (spot owner/admin) or cancel (renter/owner/admin) a booking
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.UpdateStatusRequest true "Target status"
// @Success 200 {object} resdto.BookingDetailResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /bookings/{id}/status [patch]
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	userID, role, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req reqdto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var (
		b   *booking.Booking
		err error
	)
	switch booking.Status(req.Status) {
	case booking.StatusConfirmed:
		b, err = h.bookingCommands.Confirm(c.Request.Context(), id, userID, role)
	case booking.StatusCancelled:
		b, err = h.bookingCommands.Cancel(c.Request.Context(), id, userID, role, req.GetReason())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported target status"})
		return
	}
	if err != nil {
		h.respondCommandError(c, err)
		return
	}

	h.respondBookingDetail(c, http.StatusOK, b.ID(), userID, role)
}

// @Summary Check in
// @Description Renter marks arrival; booking moves to in_progress
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingDetailResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /bookings/{id}/check-in [post]
func (h *BookingHandler) CheckIn(c *gin.Context) {
	userID, role, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	b, err := h.bookingCommands.CheckIn(c.Request.Context(), id, userID)
	if err != nil {
		h.respondCommandError(c, err)
		return
	}

	h.respondBookingDetail(c, http.StatusOK, b.ID(), userID, role)
}

// @Summary Check out
// @Description Renter marks departure; booking completes
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingDetailResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /bookings/{id}/check-out [post]
func (h *BookingHandler) CheckOut(c *gin.Context) {
	userID, role, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	b, err := h.bookingCommands.CheckOut(c.Request.Context(), id, userID)
	if err != nil {
		h.respondCommandError(c, err)
		return
	}

	h.respondBookingDetail(c, http.StatusOK, b.ID(), userID, role)
}

// @Summary Refund booking
// @Description Record an externally processed refund (admin only)
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingDetailResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /bookings/{id}/refund [post]
func (h *BookingHandler) RefundBooking(c *gin.Context) {
	userID, role, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	b, err := h.bookingCommands.Refund(c.Request.Context(), id, role)
	if err != nil {
		h.respondCommandError(c, err)
		return
	}

	h.respondBookingDetail(c, http.StatusOK, b.ID(), userID, role)
}

// respondBookingDetail re-reads the committed booking through the query side
// so command responses carry the joined spot projection.
func (h *BookingHandler) respondBookingDetail(c *gin.Context, status int, bookingID, requesterID uuid.UUID, role string) {
	view, err := h.bookingQueries.GetByID(c.Request.Context(), bookingID, requesterID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, resdto.FromBookingView(view))
}

func (h *BookingHandler) respondCommandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commands.ErrSpotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Spot not found"})
	case errors.Is(err, commands.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, commands.ErrSpotUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Spot is not available for booking"})
	case errors.Is(err, commands.ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking must start in the future"})
	case errors.Is(err, commands.ErrBookingConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Spot is already booked for this time"})
	case errors.Is(err, commands.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized for this booking"})
	case errors.Is(err, booking.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Transition not allowed from current status"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (h *BookingHandler) actor(c *gin.Context) (uuid.UUID, string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return uuid.Nil, "", false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return uuid.Nil, "", false
	}
	return userID, role, true
}

func (h *BookingHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *BookingHandler) statusFilter(c *gin.Context) *string {
	status := c.Query("status")
	if status == "" {
		return nil
	}
	if !booking.Status(status).IsValid() {
		return nil
	}
	return &status
}

func (h *BookingHandler) toDetailList(views []*queries.BookingView) []*resdto.BookingDetailResponse {
	out := make([]*resdto.BookingDetailResponse, len(views))
	for i, v := range views {
		out[i] = resdto.FromBookingView(v)
	}
	return out
}
