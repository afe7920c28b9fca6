package database

import (
	"database/sql"
	"fmt"

	"github.com/airvoya/booking-backend/internal/models"
	"github.com/google/uuid"
)

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, booking_reference, user_id, source_api, channel, routing_reason,
	provider_order_id, record_locator, booking_status, payment_status,
	ticketing_status, payment_intent_id, net_price, customer_price,
	markup_amount, currency, is_hold, hold_fee, hold_expires_at,
	contact_email, contact_phone, passenger_count, offer_id,
	origin_airport, dest_airport, created_at, updated_at`

// Upsert inserts a booking or updates the existing row with the same
// booking reference. The reference is the stable identity across retries,
// so a retried persist never produces a duplicate row.
func (r *BookingRepository) Upsert(booking *models.BookingAttempt) error {
	query := `
		INSERT INTO bookings (
			id, booking_reference, user_id, source_api, channel, routing_reason,
			provider_order_id, record_locator, booking_status, payment_status,
			ticketing_status, payment_intent_id, net_price, customer_price,
			markup_amount, currency, is_hold, hold_fee, hold_expires_at,
			contact_email, contact_phone, passenger_count, offer_id,
			origin_airport, dest_airport
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		ON CONFLICT (booking_reference) DO UPDATE SET
			provider_order_id = EXCLUDED.provider_order_id,
			record_locator = EXCLUDED.record_locator,
			booking_status = EXCLUDED.booking_status,
			payment_status = EXCLUDED.payment_status,
			ticketing_status = EXCLUDED.ticketing_status,
			payment_intent_id = EXCLUDED.payment_intent_id,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	// Generate ID if not provided
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		booking.ID, booking.BookingReference, booking.UserID, booking.SourceAPI,
		booking.Channel, booking.RoutingReason, booking.ProviderOrderID,
		booking.RecordLocator, booking.BookingStatus, booking.PaymentStatus,
		booking.TicketingStatus, booking.PaymentIntentID, booking.NetPrice,
		booking.CustomerPrice, booking.MarkupAmount, booking.Currency,
		booking.IsHold, booking.HoldFee, booking.HoldExpiresAt,
		booking.ContactEmail, booking.ContactPhone, booking.PassengerCount,
		booking.OfferID, booking.OriginAirport, booking.DestAirport,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	return err
}

// GetByReference retrieves a booking by its customer-facing reference
func (r *BookingRepository) GetByReference(reference string) (*models.BookingAttempt, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE booking_reference = $1
	`

	return r.scanBooking(r.db.QueryRow(query, reference))
}

// GetByPaymentIntentID retrieves a booking by the processor's intent id,
// used by the webhook reconciler
func (r *BookingRepository) GetByPaymentIntentID(intentID string) (*models.BookingAttempt, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE payment_intent_id = $1
	`

	return r.scanBooking(r.db.QueryRow(query, intentID))
}

// GetByUserID retrieves all bookings for a user
func (r *BookingRepository) GetByUserID(userID string) ([]models.BookingAttempt, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// MarkPaymentSucceeded records a successful charge and confirms the booking
func (r *BookingRepository) MarkPaymentSucceeded(reference string) error {
	query := `
		UPDATE bookings
		SET payment_status = $2, booking_status = $3, updated_at = NOW()
		WHERE booking_reference = $1
	`

	result, err := r.db.Exec(query, reference, models.PaymentStatusPaid, models.BookingStatusConfirmed)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("booking not found: %s", reference)
	}

	return nil
}

// UpdatePaymentStatus transitions the payment status by reference
func (r *BookingRepository) UpdatePaymentStatus(reference string, status models.PaymentStatus) error {
	query := `
		UPDATE bookings
		SET payment_status = $2, updated_at = NOW()
		WHERE booking_reference = $1
	`

	result, err := r.db.Exec(query, reference, status)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("booking not found: %s", reference)
	}

	return nil
}

// CompleteTicketing records the real PNR for a consolidator booking once a
// human agent has issued the ticket, confirming the booking
func (r *BookingRepository) CompleteTicketing(reference, recordLocator string) error {
	query := `
		UPDATE bookings
		SET record_locator = $2, ticketing_status = $3, booking_status = $4, updated_at = NOW()
		WHERE booking_reference = $1
		  AND ticketing_status = $5
	`

	result, err := r.db.Exec(query, reference, recordLocator,
		models.TicketingStatusNone, models.BookingStatusConfirmed, models.TicketingStatusPending)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("booking not awaiting ticketing: %s", reference)
	}

	return nil
}

// ExistsByReference reports whether a reference is already taken
func (r *BookingRepository) ExistsByReference(reference string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_reference = $1)`

	err := r.db.Get(&exists, query, reference)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// scanBooking scans a single booking row
func (r *BookingRepository) scanBooking(row *sql.Row) (*models.BookingAttempt, error) {
	var b models.BookingAttempt

	err := row.Scan(
		&b.ID, &b.BookingReference, &b.UserID, &b.SourceAPI, &b.Channel,
		&b.RoutingReason, &b.ProviderOrderID, &b.RecordLocator,
		&b.BookingStatus, &b.PaymentStatus, &b.TicketingStatus,
		&b.PaymentIntentID, &b.NetPrice, &b.CustomerPrice, &b.MarkupAmount,
		&b.Currency, &b.IsHold, &b.HoldFee, &b.HoldExpiresAt,
		&b.ContactEmail, &b.ContactPhone, &b.PassengerCount, &b.OfferID,
		&b.OriginAirport, &b.DestAirport, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// scanBookings scans multiple booking rows
func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.BookingAttempt, error) {
	var bookings []models.BookingAttempt

	for rows.Next() {
		var b models.BookingAttempt

		err := rows.Scan(
			&b.ID, &b.BookingReference, &b.UserID, &b.SourceAPI, &b.Channel,
			&b.RoutingReason, &b.ProviderOrderID, &b.RecordLocator,
			&b.BookingStatus, &b.PaymentStatus, &b.TicketingStatus,
			&b.PaymentIntentID, &b.NetPrice, &b.CustomerPrice, &b.MarkupAmount,
			&b.Currency, &b.IsHold, &b.HoldFee, &b.HoldExpiresAt,
			&b.ContactEmail, &b.ContactPhone, &b.PassengerCount, &b.OfferID,
			&b.OriginAirport, &b.DestAirport, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}
