package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/airvoya/booking-backend/internal/models"
	"github.com/airvoya/booking-backend/pkg/queue"
	"github.com/airvoya/booking-backend/pkg/telegram"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const alertTaskType = "operator_alert"

// AlertService fans operator alerts out to the admin Telegram chats through
// a Redis queue. Alerting is strictly best-effort: no failure here may ever
// fail the booking that raised the alert.
type AlertService struct {
	queue        *queue.RedisQueue
	bot          *telegram.Bot
	adminChatIDs []string
	logger       *logrus.Logger
}

// NewAlertService creates a new AlertService. The queue may be nil, in which
// case alerts are delivered synchronously.
func NewAlertService(q *queue.RedisQueue, bot *telegram.Bot, adminChatIDs []string, logger *logrus.Logger) *AlertService {
	return &AlertService{
		queue:        q,
		bot:          bot,
		adminChatIDs: adminChatIDs,
		logger:       logger,
	}
}

// Notify queues an alert for delivery. When the queue is unavailable the
// alert is sent synchronously as a fallback. Errors are logged and swallowed.
func (s *AlertService) Notify(ctx context.Context, alert models.Alert) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if alert.Priority == "" {
		alert.Priority = models.AlertPriorityNormal
	}

	s.logger.WithFields(logrus.Fields{
		"alert_kind":        alert.Kind,
		"alert_priority":    alert.Priority,
		"booking_reference": alert.BookingReference,
	}).Info("Operator alert raised")

	if s.queue != nil {
		err := s.queue.Publish(ctx, alertTaskType, alert)
		if err == nil {
			return
		}
		s.logger.WithError(err).Warn("Alert queue unavailable, delivering synchronously")
	}

	s.deliver(alert)
}

// Run consumes queued alerts until the context is cancelled
func (s *AlertService) Run(ctx context.Context) {
	if s.queue == nil {
		return
	}
	s.queue.Run(ctx, func(ctx context.Context, task *queue.Task) error {
		if task.Type != alertTaskType {
			s.logger.WithField("task_type", task.Type).Warn("Skipping unknown task type")
			return nil
		}
		var alert models.Alert
		if err := json.Unmarshal(task.Payload, &alert); err != nil {
			return fmt.Errorf("failed to decode alert payload: %w", err)
		}
		return s.deliverErr(alert)
	})
}

func (s *AlertService) deliver(alert models.Alert) {
	if err := s.deliverErr(alert); err != nil {
		s.logger.WithError(err).WithField("alert_kind", alert.Kind).
			Error("Failed to deliver operator alert")
	}
}

func (s *AlertService) deliverErr(alert models.Alert) error {
	if s.bot == nil || !s.bot.IsConfigured() || len(s.adminChatIDs) == 0 {
		s.logger.WithField("alert_kind", alert.Kind).
			Debug("Telegram not configured, alert logged only")
		return nil
	}

	text := formatAlert(alert)

	var firstErr error
	for _, chatID := range s.adminChatIDs {
		if err := s.bot.SendMessage(chatID, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// formatAlert renders the operator-facing message text
func formatAlert(alert models.Alert) string {
	var b strings.Builder

	switch alert.Priority {
	case models.AlertPriorityCritical:
		b.WriteString("🚨 CRITICAL")
	case models.AlertPriorityUrgent:
		b.WriteString("⚠️ URGENT")
	case models.AlertPriorityHigh:
		b.WriteString("❗ HIGH")
	default:
		b.WriteString("ℹ️")
	}

	b.WriteString(" [" + alert.Kind + "]\n")
	b.WriteString(alert.Message)

	if alert.BookingReference != "" {
		b.WriteString("\nReference: " + alert.BookingReference)
	}
	for k, v := range alert.Details {
		b.WriteString(fmt.Sprintf("\n%s: %s", k, v))
	}

	return b.String()
}
