package booking

import (
	"testing"

	"github.com/civicpulse/service-emergency/internal/domain"
	"github.com/civicpulse/service-emergency/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ambulanceService() *catalog.ServiceType {
	return &catalog.ServiceType{
		ID:       "ambulance",
		Name:     "Ambulance Dispatch",
		BaseFee:  150.00,
		Currency: "USD",
		AddOns: []catalog.AddOnService{
			{ID: "advanced-life-support", Name: "Advanced Life Support", Fee: 75.00},
			{ID: "medical-escort", Name: "Medical Escort", Fee: 25.00},
		},
	}
}

func TestCalculate_HighUrgencyWithAddOn(t *testing.T) {
	calc := NewStandardFeeCalculator()

	// 150.00 * 1.5 + 25.00 = 250.00; tax 20.00; total 270.00
	fee, err := calc.Calculate(ambulanceService(), UrgencyHigh, false, []string{"medical-escort"})
	require.NoError(t, err)

	assert.Equal(t, 150.00, fee.BaseFee)
	assert.Equal(t, 1.5, fee.UrgencyMultiplier)
	assert.Equal(t, 25.00, fee.AdditionalServicesCost)
	assert.Equal(t, 0.0, fee.LocationSurcharge)
	assert.InDelta(t, 250.00, fee.Subtotal, 1e-9)
	assert.InDelta(t, 20.00, fee.Tax, 1e-9)
	assert.Equal(t, 270.00, fee.TotalAmount)
	assert.Equal(t, "USD", fee.Currency)
}

func TestCalculate_RemoteAreaSurcharge(t *testing.T) {
	calc := NewStandardFeeCalculator()

	fee, err := calc.Calculate(ambulanceService(), UrgencyLow, true, nil)
	require.NoError(t, err)

	// Surcharge applies to the base fee before the multiplier.
	assert.InDelta(t, 150.00*0.15, fee.LocationSurcharge, 1e-9)
	assert.InDelta(t, 150.00+22.50, fee.Subtotal, 1e-9)
}

func TestCalculate_UrgencyMonotonicity(t *testing.T) {
	calc := NewStandardFeeCalculator()
	svc := ambulanceService()

	var prev float64
	for _, u := range []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical} {
		fee, err := calc.Calculate(svc, u, false, nil)
		require.NoError(t, err)
		assert.Greater(t, fee.TotalAmount, prev, "total must strictly increase with urgency %s", u)
		prev = fee.TotalAmount
	}
}

func TestCalculate_RoundsTotalOnlyOnce(t *testing.T) {
	// Base fee chosen so the unrounded total carries more than two decimals.
	svc := &catalog.ServiceType{ID: "test", BaseFee: 33.33, Currency: "USD"}
	calc := NewStandardFeeCalculator()

	fee, err := calc.Calculate(svc, UrgencyMedium, false, nil)
	require.NoError(t, err)

	// subtotal = 33.33 * 1.25 = 41.6625 stays unrounded
	assert.InDelta(t, 41.6625, fee.Subtotal, 1e-9)
	assert.InDelta(t, 41.6625*0.08, fee.Tax, 1e-9)
	// total = 45.0; round-half-up(44.9955) = 45.00
	assert.Equal(t, 45.00, fee.TotalAmount)
}

func TestCalculate_UnknownAddOnRejected(t *testing.T) {
	calc := NewStandardFeeCalculator()

	_, err := calc.Calculate(ambulanceService(), UrgencyLow, false, []string{"helicopter"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestCalculate_DuplicateAddOnRejected(t *testing.T) {
	calc := NewStandardFeeCalculator()

	// A repeated id must not be billed twice; the selection is a set.
	_, err := calc.Calculate(ambulanceService(), UrgencyHigh, false, []string{"medical-escort", "medical-escort"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
	assert.Contains(t, err.Error(), "more than once")
}

func TestCalculate_InvalidUrgencyRejected(t *testing.T) {
	calc := NewStandardFeeCalculator()

	_, err := calc.Calculate(ambulanceService(), Urgency("extreme"), false, nil)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestCalculate_NilServiceRejected(t *testing.T) {
	calc := NewStandardFeeCalculator()

	_, err := calc.Calculate(nil, UrgencyLow, false, nil)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 270.00, roundHalfUp(269.996, 2))
	assert.Equal(t, 1.24, roundHalfUp(1.244, 2))
	assert.Equal(t, 3.0, roundHalfUp(2.5, 0))
	assert.Equal(t, 100.00, roundHalfUp(100.00, 2))
}
