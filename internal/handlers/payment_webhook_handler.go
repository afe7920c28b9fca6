package handlers

import (
	"io"
	"net/http"

	"github.com/airvoya/booking-backend/internal/database"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/airvoya/booking-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentWebhookHandler reconciles asynchronous processor events with
// bookings. The intent metadata carries the booking reference, so no
// processor-side lookup is needed.
type PaymentWebhookHandler struct {
	payments    *services.PaymentService
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler
func NewPaymentWebhookHandler(
	payments *services.PaymentService,
	bookingRepo *database.BookingRepository,
	logger *logrus.Logger,
) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		payments:    payments,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// HandleWebhook processes a processor event
// @Summary Payment processor webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid signature or payload"
// @Router /webhooks/payment [post]
func (h *PaymentWebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	event, err := h.payments.VerifyWebhook(payload, c.GetHeader("X-Webhook-Signature"))
	if err != nil {
		h.logger.WithError(err).Warn("Webhook rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	reference := event.Metadata["bookingReference"]
	if reference == "" {
		h.logger.WithField("event_id", event.ID).Warn("Webhook event carries no booking reference")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	switch event.Type {
	case models.WebhookPaymentSucceeded:
		// A successful charge completes the lifecycle: paid and confirmed
		err = h.bookingRepo.MarkPaymentSucceeded(reference)
	case models.WebhookPaymentFailed:
		err = h.bookingRepo.UpdatePaymentStatus(reference, models.PaymentStatusFailed)
	default:
		h.logger.WithFields(logrus.Fields{
			"event_type": event.Type,
			"event_id":   event.ID,
		}).Debug("Ignoring unhandled webhook event")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":        event.Type,
			"booking_reference": reference,
		}).Error("Failed to apply webhook event")
		// 500 so the processor retries delivery
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply event"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"event_type":        event.Type,
		"booking_reference": reference,
	}).Info("Payment webhook applied")

	c.JSON(http.StatusOK, gin.H{"received": true})
}
