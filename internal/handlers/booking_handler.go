package handlers

import (
	"net/http"

	"github.com/airvoya/booking-backend/internal/database"
	"github.com/airvoya/booking-backend/internal/middleware"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/airvoya/booking-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles the booking pipeline endpoints
type BookingHandler struct {
	orchestrator *services.BookingOrchestratorService
	bookingRepo  *database.BookingRepository
	searchURL    string
	logger       *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(
	orchestrator *services.BookingOrchestratorService,
	bookingRepo *database.BookingRepository,
	searchURL string,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		orchestrator: orchestrator,
		bookingRepo:  bookingRepo,
		searchURL:    searchURL,
		logger:       logger,
	}
}

// CreateBooking runs the booking pipeline for one request
// @Summary Create a flight booking
// @Description Books a flight offer, authorizes payment and persists the booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.BookingSuccessResponse
// @Failure 400 {object} models.BookingFailureResponse "Validation error"
// @Failure 409 {object} models.BookingFailureResponse "Price changed"
// @Failure 410 {object} models.BookingFailureResponse "Offer expired or sold out"
// @Failure 503 {object} models.BookingFailureResponse "Booking disabled"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondFailure(c, models.NewBookingError(models.ErrCodeInvalidData, "invalid request: "+err.Error(), err), nil)
		return
	}

	meta := h.requestMeta(c)

	outcome, err := h.orchestrator.CreateBooking(c.Request.Context(), &req, meta)
	if err != nil {
		var recovery *models.RecoveryInfo
		if outcome != nil {
			recovery = outcome.RecoveryInfo()
		}
		h.respondFailure(c, models.AsBookingError(err), recovery)
		return
	}

	c.JSON(http.StatusCreated, models.BookingSuccessResponse{
		Success: true,
		Booking: h.assembleBooking(outcome),
	})
}

// GetBooking returns a booking by its reference
// @Summary Get booking by reference
// @Tags Bookings
// @Produce json
// @Param reference path string true "Booking reference"
// @Success 200 {object} models.BookingSuccessResponse
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /bookings/{reference} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	reference := c.Param("reference")

	booking, err := h.bookingRepo.GetByReference(reference)
	if err != nil {
		h.logger.WithError(err).WithField("booking_reference", reference).Error("Failed to load booking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load booking"})
		return
	}
	if booking == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}

	c.JSON(http.StatusOK, models.BookingSuccessResponse{
		Success: true,
		Booking: confirmedFromAttempt(booking),
	})
}

// ListBookings returns the authenticated user's bookings, newest first
// @Summary List bookings for the current account
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{} "Not authenticated"
// @Router /bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	bookings, err := h.bookingRepo.GetByUserID(userCtx.UserID.String())
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userCtx.UserID).Error("Failed to list bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bookings"})
		return
	}

	out := make([]*models.ConfirmedBooking, 0, len(bookings))
	for i := range bookings {
		out = append(out, confirmedFromAttempt(&bookings[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"bookings": out,
	})
}

// CompleteTicketing records the real PNR for a consolidator booking
// @Summary Complete manual ticketing
// @Description Operator endpoint: records the issued record locator
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param reference path string true "Booking reference"
// @Param request body models.TicketBookingRequest true "Issued record locator"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Booking not awaiting ticketing"
// @Router /bookings/{reference}/ticket [post]
func (h *BookingHandler) CompleteTicketing(c *gin.Context) {
	reference := c.Param("reference")

	var req models.TicketBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.bookingRepo.CompleteTicketing(reference, req.RecordLocator); err != nil {
		h.logger.WithError(err).WithField("booking_reference", reference).Warn("Ticketing completion rejected")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	operator, _ := middleware.GetUserContext(c)
	h.logger.WithFields(logrus.Fields{
		"booking_reference": reference,
		"record_locator":    req.RecordLocator,
		"operator":          operator.Email,
	}).Info("Manual ticketing completed")

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"record_locator": req.RecordLocator,
	})
}

// requestMeta extracts fraud signals from the inbound request
func (h *BookingHandler) requestMeta(c *gin.Context) services.BookingRequestMeta {
	meta := services.BookingRequestMeta{
		IPAddress: c.ClientIP(),
	}

	if userCtx, ok := middleware.GetUserContext(c); ok {
		id := userCtx.UserID.String()
		meta.UserID = &id
	}

	if uaHeader := c.GetHeader("User-Agent"); uaHeader != "" {
		ua := user_agent.New(uaHeader)
		meta.DeviceOS = ua.OS()
		browser, _ := ua.Browser()
		meta.DeviceBrowser = browser
		meta.IsMobile = ua.Mobile()
	}

	return meta
}

// assembleBooking builds the success payload from a pipeline outcome
func (h *BookingHandler) assembleBooking(outcome *services.PipelineOutcome) *models.ConfirmedBooking {
	booking := confirmedFromAttempt(outcome.Booking)
	booking.TotalPrice = outcome.TotalPrice

	if outcome.Payment != nil {
		booking.PaymentIntentID = outcome.Payment.IntentID
		booking.ClientSecret = outcome.Payment.ClientSecret
	}

	return booking
}

func confirmedFromAttempt(b *models.BookingAttempt) *models.ConfirmedBooking {
	out := &models.ConfirmedBooking{
		ID:                      b.ID,
		BookingReference:        b.BookingReference,
		SourceAPI:               b.SourceAPI,
		PNR:                     b.PNR(),
		Status:                  b.BookingStatus,
		PaymentStatus:           b.PaymentStatus,
		TotalPrice:              b.CustomerPrice,
		Currency:                b.Currency,
		IsHold:                  b.IsHold,
		HoldExpiresAt:           b.HoldExpiresAt,
		RequiresManualTicketing: b.RequiresManualTicketing(),
		TicketingStatus:         b.TicketingStatus,
	}
	if b.PaymentIntentID != nil {
		out.PaymentIntentID = *b.PaymentIntentID
	}
	return out
}

// respondFailure renders a classified failure with the taxonomy status code
func (h *BookingHandler) respondFailure(c *gin.Context, be *models.BookingError, recovery *models.RecoveryInfo) {
	resp := models.BookingFailureResponse{
		Success:     false,
		Error:       string(be.Code),
		Message:     be.UserMessage(),
		PriceChange: be.PriceChange,
	}

	// Staleness rejections point the customer back to search
	if be.Code == models.ErrCodeSoldOut || be.Code == models.ErrCodeOfferExpired ||
		be.Code == models.ErrCodePriceChanged {
		resp.SearchURL = h.searchURL
	}

	// Orphaned bookings hand the customer the same identifiers operators got
	if be.Recovery != nil {
		resp.Booking = be.Recovery
	} else if recovery != nil && be.Code == models.ErrCodeBookingFailed {
		resp.Booking = recovery
	}

	h.logger.WithFields(logrus.Fields{
		"error_code": be.Code,
		"status":     be.HTTPStatus(),
	}).Info("Booking request rejected")

	c.JSON(be.HTTPStatus(), resp)
}
