package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// GDSClient integrates with the GDS flight-orders and pricing APIs
type GDSClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	logger    *logrus.Logger
	client    *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewGDSClient creates a new GDS client
func NewGDSClient(cfg config.ProviderConfig, logger *logrus.Logger) *GDSClient {
	return &GDSClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		logger:    logger,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

type gdsTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// getAccessToken returns a cached OAuth token, refreshing when it is within
// a minute of expiry
func (c *GDSClient) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.apiKey)
	form.Set("client_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/security/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get GDS access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GDS token endpoint returned status %d", resp.StatusCode)
	}

	var tok gdsTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode GDS token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	return c.accessToken, nil
}

type gdsOrderRequest struct {
	Data gdsOrderData `json:"data"`
}

type gdsOrderData struct {
	Type         string          `json:"type"`
	FlightOffers []*models.Offer `json:"flightOffers"`
	Travelers    []gdsTraveler   `json:"travelers"`
	Remarks      *gdsRemarks     `json:"remarks,omitempty"`
}

type gdsTraveler struct {
	ID          string        `json:"id"`
	DateOfBirth string        `json:"dateOfBirth,omitempty"`
	Name        gdsName       `json:"name"`
	Gender      string        `json:"gender,omitempty"`
	Contact     *gdsContact   `json:"contact,omitempty"`
	Documents   []gdsDocument `json:"documents,omitempty"`
}

type gdsName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type gdsContact struct {
	EmailAddress string     `json:"emailAddress,omitempty"`
	Phones       []gdsPhone `json:"phones,omitempty"`
}

type gdsPhone struct {
	DeviceType string `json:"deviceType"`
	Number     string `json:"number"`
}

type gdsDocument struct {
	DocumentType string `json:"documentType"`
	Number       string `json:"number"`
	Nationality  string `json:"nationality,omitempty"`
}

type gdsRemarks struct {
	General []gdsRemark `json:"general,omitempty"`
}

type gdsRemark struct {
	SubType string `json:"subType"`
	Text    string `json:"text"`
}

type gdsOrderResponse struct {
	Data struct {
		ID                string `json:"id"`
		AssociatedRecords []struct {
			Reference string `json:"reference"`
		} `json:"associatedRecords"`
	} `json:"data"`
}

type gdsErrorResponse struct {
	Errors []struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// CreateOrder books an offer through the GDS flight-orders endpoint
func (c *GDSClient) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, models.NewBookingError(models.ErrCodeBookingFailed, "", err)
	}

	travelers := make([]gdsTraveler, 0, len(req.Passengers))
	for i, p := range req.Passengers {
		t := gdsTraveler{
			ID:          strconv.Itoa(i + 1),
			DateOfBirth: p.DateOfBirth,
			Name:        gdsName{FirstName: p.FirstName, LastName: p.LastName},
			Gender:      p.Gender,
		}
		if i == 0 {
			t.Contact = &gdsContact{
				EmailAddress: req.ContactEmail,
				Phones: []gdsPhone{
					{DeviceType: "MOBILE", Number: req.ContactPhone},
				},
			}
		}
		if p.PassportNumber != "" {
			t.Documents = []gdsDocument{
				{DocumentType: "PASSPORT", Number: p.PassportNumber, Nationality: p.Nationality},
			}
		}
		travelers = append(travelers, t)
	}

	payload := gdsOrderRequest{
		Data: gdsOrderData{
			Type:         "flight-order",
			FlightOffers: []*models.Offer{req.Offer},
			Travelers:    travelers,
			Remarks: &gdsRemarks{
				General: []gdsRemark{
					{SubType: "GENERAL_MISCELLANEOUS", Text: "REF " + req.BookingReference},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flight order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/booking/flight-orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
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
		return nil, c.mapOrderError(resp.StatusCode, respBody)
	}

	var order gdsOrderResponse
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to decode flight order response: %w", err)
	}

	result := &OrderResult{OrderID: order.Data.ID}
	if len(order.Data.AssociatedRecords) > 0 {
		result.RecordLocator = order.Data.AssociatedRecords[0].Reference
	}
	if result.OrderID == "" && result.RecordLocator == "" {
		return nil, ErrUnrecognizedOrderShape
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":       result.OrderID,
		"record_locator": result.RecordLocator,
	}).Info("GDS flight order created")

	return result, nil
}

type gdsPricingRequest struct {
	Data struct {
		Type         string          `json:"type"`
		FlightOffers []*models.Offer `json:"flightOffers"`
	} `json:"data"`
}

type gdsPricingResponse struct {
	Data struct {
		FlightOffers []struct {
			Price struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"price"`
		} `json:"flightOffers"`
	} `json:"data"`
}

// ConfirmPrice re-prices an offer against live GDS availability
func (c *GDSClient) ConfirmPrice(ctx context.Context, offer *models.Offer) (*PriceConfirmation, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var payload gdsPricingRequest
	payload.Data.Type = "flight-offers-pricing"
	payload.Data.FlightOffers = []*models.Offer{offer}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/shopping/flight-offers/pricing", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("price confirmation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("price confirmation returned status %d", resp.StatusCode)
	}

	var priced gdsPricingResponse
	if err := json.NewDecoder(resp.Body).Decode(&priced); err != nil {
		return nil, fmt.Errorf("failed to decode pricing response: %w", err)
	}

	if len(priced.Data.FlightOffers) == 0 {
		return nil, fmt.Errorf("pricing response contained no offers")
	}

	total, err := strconv.ParseFloat(priced.Data.FlightOffers[0].Price.Total, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmed price: %w", err)
	}

	return &PriceConfirmation{
		NetPrice: total,
		Currency: priced.Data.FlightOffers[0].Price.Currency,
	}, nil
}

// mapOrderError classifies a GDS order failure into the booking taxonomy.
// The GDS reports most booking problems as 400s with an error list, so the
// list is inspected before the status code.
func (c *GDSClient) mapOrderError(status int, body []byte) error {
	var errResp gdsErrorResponse
	_ = json.Unmarshal(body, &errResp)

	c.logger.WithFields(logrus.Fields{
		"status": status,
		"errors": len(errResp.Errors),
	}).Warn("GDS flight order failed")

	for _, e := range errResp.Errors {
		text := strings.ToLower(e.Title + " " + e.Detail)
		cause := fmt.Errorf("gds: %s %s (code %s)", e.Title, e.Detail, e.Code)

		switch {
		case e.Code == "SEGMENT SOLD OUT" || strings.Contains(text, "sold out"):
			return models.NewBookingError(models.ErrCodeSoldOut, "", cause)
		case e.Code == "PRICE DISCREPANCY" || strings.Contains(text, "price"):
			return models.NewBookingError(models.ErrCodePriceChanged, "", cause)
		case e.Code == "INVALID FORMAT" || strings.Contains(text, "invalid"):
			return models.NewBookingError(models.ErrCodeInvalidData, e.Detail, cause)
		}
	}

	cause := fmt.Errorf("gds order failed with status %d", status)
	switch status {
	case http.StatusTooManyRequests:
		return models.NewBookingError(models.ErrCodeRateLimited, "", cause)
	default:
		return models.NewBookingError(models.ErrCodeBookingFailed, "", cause)
	}
}
