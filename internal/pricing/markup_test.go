package pricing

import (
	"testing"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func testOffer(net float64) *models.Offer {
	return &models.Offer{
		ID:     "off_123",
		Source: models.SourceGDS,
		Price:  models.OfferPrice{Total: net, Currency: "USD"},
	}
}

func TestApply_PercentageMarkup(t *testing.T) {
	engine := NewEngine(config.MarkupConfig{Percentage: 0.07})

	priced := engine.Apply(testOffer(300.00))

	assert.Equal(t, 300.00, priced.NetPrice)
	assert.Equal(t, 21.00, priced.MarkupAmount)
	assert.Equal(t, 321.00, priced.CustomerPrice)
	assert.Equal(t, "USD", priced.Currency)
}

func TestApply_PercentagePlusFlatFee(t *testing.T) {
	engine := NewEngine(config.MarkupConfig{Percentage: 0.07, FlatFee: 5.00})

	priced := engine.Apply(testOffer(100.00))

	assert.Equal(t, 12.00, priced.MarkupAmount)
	assert.Equal(t, 112.00, priced.CustomerPrice)
}

func TestApply_RoundsToCents(t *testing.T) {
	engine := NewEngine(config.MarkupConfig{Percentage: 0.07})

	priced := engine.Apply(testOffer(333.33))

	// 333.33 * 0.07 = 23.3331 -> 23.33
	assert.Equal(t, 23.33, priced.MarkupAmount)
	assert.Equal(t, 356.66, priced.CustomerPrice)
}

func TestApply_InvariantCustomerEqualsNetPlusMarkup(t *testing.T) {
	engine := NewEngine(config.MarkupConfig{Percentage: 0.07, FlatFee: 2.50})

	for _, net := range []float64{0, 0.01, 49.99, 500.00, 12345.67} {
		priced := engine.Apply(testOffer(net))
		assert.InDelta(t, priced.NetPrice+priced.MarkupAmount, priced.CustomerPrice, 0.001)
		assert.GreaterOrEqual(t, priced.MarkupAmount, 0.0)
	}
}

func TestNewEngine_NegativeConfigClampsToZero(t *testing.T) {
	engine := NewEngine(config.MarkupConfig{Percentage: -0.05, FlatFee: -10})

	priced := engine.Apply(testOffer(200.00))

	assert.Equal(t, 0.0, priced.MarkupAmount)
	assert.Equal(t, 200.00, priced.CustomerPrice)
}

func TestReprice_PreservesMarkupRule(t *testing.T) {
	engine := NewEngine(config.MarkupConfig{Percentage: 0.07})

	priced := engine.Apply(testOffer(300.00))
	repriced := engine.Reprice(priced, 310.00)

	assert.Equal(t, 310.00, repriced.NetPrice)
	assert.Equal(t, 21.70, repriced.MarkupAmount)
	assert.Equal(t, 331.70, repriced.CustomerPrice)
	// Original is untouched
	assert.Equal(t, 300.00, priced.NetPrice)
}
