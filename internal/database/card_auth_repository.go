package database

import (
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/google/uuid"
)

// CardAuthRepository stores masked card authorization records captured for
// manual payment flows. Rows carry fraud signals only, never card numbers.
type CardAuthRepository struct {
	db DB
}

// NewCardAuthRepository creates a new CardAuthRepository
func NewCardAuthRepository(db DB) *CardAuthRepository {
	return &CardAuthRepository{db: db}
}

// Create records a card authorization
func (r *CardAuthRepository) Create(auth *models.CardAuthorization) error {
	query := `
		INSERT INTO card_authorizations (
			id, booking_reference, cardholder_name, card_last_four,
			card_brand, ip_address, device_os, device_browser, is_mobile
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING created_at
	`

	if auth.ID == "" {
		auth.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		auth.ID, auth.BookingReference, auth.CardholderName, auth.CardLastFour,
		auth.CardBrand, auth.IPAddress, auth.DeviceOS, auth.DeviceBrowser,
		auth.IsMobile,
	).Scan(&auth.CreatedAt)

	return err
}
