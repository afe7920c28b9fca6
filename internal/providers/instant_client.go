package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// InstantClient integrates with the instant-ticketing provider's order API
type InstantClient struct {
	baseURL string
	apiKey  string
	logger  *logrus.Logger
	client  *http.Client
}

// NewInstantClient creates a new instant-ticketing provider client
func NewInstantClient(cfg config.ProviderConfig, logger *logrus.Logger) *InstantClient {
	return &InstantClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type instantOrderRequest struct {
	Data instantOrderData `json:"data"`
}

type instantOrderData struct {
	Type           string             `json:"type"` // "instant" or "hold"
	SelectedOffers []string           `json:"selected_offers"`
	Passengers     []instantPassenger `json:"passengers"`
	Metadata       map[string]string  `json:"metadata,omitempty"`
}

type instantPassenger struct {
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	BornOn      string `json:"born_on,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

// instantOrderEnvelope covers the response shapes the provider has been
// observed to return: identifiers under "data", under "order", or at the
// top level. At most one shape carries values on any given response.
type instantOrderEnvelope struct {
	Data  *instantOrderBody `json:"data,omitempty"`
	Order *instantOrderBody `json:"order,omitempty"`
	instantOrderBody
}

type instantOrderBody struct {
	ID               string `json:"id,omitempty"`
	BookingReference string `json:"booking_reference,omitempty"`
}

type instantErrorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateOrder books an offer with the instant provider. Hold requests
// reserve without payment until the given expiry.
func (c *InstantClient) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	orderType := "instant"
	if req.Hold {
		orderType = "hold"
	}

	passengers := make([]instantPassenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, instantPassenger{
			GivenName:   p.FirstName,
			FamilyName:  p.LastName,
			BornOn:      p.DateOfBirth,
			Gender:      p.Gender,
			Email:       req.ContactEmail,
			PhoneNumber: req.ContactPhone,
		})
	}

	payload := instantOrderRequest{
		Data: instantOrderData{
			Type:           orderType,
			SelectedOffers: []string{req.Offer.ID},
			Passengers:     passengers,
			Metadata: map[string]string{
				"booking_reference": req.BookingReference,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/air/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, models.NewBookingError(models.ErrCodeBookingFailed, "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, c.mapError(resp.StatusCode, respBody)
	}

	result, err := extractInstantOrder(respBody)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":       result.OrderID,
		"record_locator": result.RecordLocator,
		"order_type":     orderType,
	}).Info("Instant provider order created")

	return result, nil
}

// extractInstantOrder pulls the order id and record locator out of whichever
// response shape the provider used. A response carrying neither identifier
// is ErrUnrecognizedOrderShape.
func extractInstantOrder(body []byte) (*OrderResult, error) {
	var envelope instantOrderEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	candidates := []*instantOrderBody{envelope.Data, envelope.Order, &envelope.instantOrderBody}
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if c.ID != "" || c.BookingReference != "" {
			return &OrderResult{
				OrderID:       c.ID,
				RecordLocator: c.BookingReference,
			}, nil
		}
	}

	return nil, ErrUnrecognizedOrderShape
}

// mapError classifies a provider error response into the booking taxonomy
func (c *InstantClient) mapError(status int, body []byte) error {
	var errResp instantErrorResponse
	_ = json.Unmarshal(body, &errResp)

	detail := ""
	code := ""
	if len(errResp.Errors) > 0 {
		code = errResp.Errors[0].Code
		detail = errResp.Errors[0].Message
		if detail == "" {
			detail = errResp.Errors[0].Title
		}
	}

	c.logger.WithFields(logrus.Fields{
		"status":   status,
		"api_code": code,
	}).Warn("Instant provider order failed")

	cause := fmt.Errorf("instant provider: %s (status %d)", detail, status)

	switch {
	case code == "offer_no_longer_available" || status == http.StatusGone:
		return models.NewBookingError(models.ErrCodeSoldOut, "", cause)
	case code == "offer_expired":
		return models.NewBookingError(models.ErrCodeOfferExpired, "", cause)
	case code == "offer_price_changed" || status == http.StatusConflict:
		return models.NewBookingError(models.ErrCodePriceChanged, "", cause)
	case code == "validation_error" || status == http.StatusBadRequest ||
		status == http.StatusUnprocessableEntity:
		return models.NewBookingError(models.ErrCodeInvalidData, detail, cause)
	case status == http.StatusTooManyRequests:
		return models.NewBookingError(models.ErrCodeRateLimited, "", cause)
	default:
		return models.NewBookingError(models.ErrCodeBookingFailed, "", cause)
	}
}
