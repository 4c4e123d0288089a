package booking

import (
	"fmt"
	"math"

	"github.com/civicpulse/service-emergency/internal/domain"
	"github.com/civicpulse/service-emergency/internal/domain/catalog"
)

// FeeBreakdown is the itemized pricing snapshot attached to a booking at
// creation time. It is computed once and never recomputed: later catalog
// changes must not alter an existing booking's price.
type FeeBreakdown struct {
	BaseFee                float64 `json:"base_fee"`
	UrgencyMultiplier      float64 `json:"urgency_multiplier"`
	AdditionalServicesCost float64 `json:"additional_services_cost"`
	LocationSurcharge      float64 `json:"location_surcharge"`
	Subtotal               float64 `json:"subtotal"`
	Tax                    float64 `json:"tax"`
	TotalAmount            float64 `json:"total_amount"`
	Currency               string  `json:"currency"`
}

// FeeCalculator prices a booking request. Pure and deterministic: multipliers
// and rates are fixed tables, not computed from free input.
type FeeCalculator struct {
	urgencyMultipliers  map[Urgency]float64
	remoteSurchargeRate float64
	taxRate             float64
}

// NewFeeCalculator creates a calculator with explicit rate tables.
func NewFeeCalculator(multipliers map[Urgency]float64, remoteSurchargeRate, taxRate float64) *FeeCalculator {
	return &FeeCalculator{
		urgencyMultipliers:  multipliers,
		remoteSurchargeRate: remoteSurchargeRate,
		taxRate:             taxRate,
	}
}

// StandardUrgencyMultipliers returns the municipal default urgency table:
// low=1.0, medium=1.25, high=1.5, critical=2.0.
func StandardUrgencyMultipliers() map[Urgency]float64 {
	return map[Urgency]float64{
		UrgencyLow:      1.0,
		UrgencyMedium:   1.25,
		UrgencyHigh:     1.5,
		UrgencyCritical: 2.0,
	}
}

// NewStandardFeeCalculator creates a calculator with the municipal defaults:
// standard multipliers, 15% remote-area surcharge on the base fee, 8% tax.
func NewStandardFeeCalculator() *FeeCalculator {
	return NewFeeCalculator(StandardUrgencyMultipliers(), 0.15, 0.08)
}

// Calculate prices a request against the given service type.
//
// subtotal = baseFee*urgencyMultiplier + sum(add-on fees) + locationSurcharge
// tax      = subtotal * taxRate
// total    = round-half-up(subtotal + tax) to 2 decimals
//
// Rounding happens exactly once, on the total. Add-on ids form a set: unknown
// or repeated ids and unknown urgencies are validation errors; the chosen
// service type must already be resolved by the caller.
func (c *FeeCalculator) Calculate(svc *catalog.ServiceType, urgency Urgency, remoteArea bool, addOnIDs []string) (FeeBreakdown, error) {
	if svc == nil {
		return FeeBreakdown{}, domain.NewValidationError("unknown service type")
	}

	multiplier, ok := c.urgencyMultipliers[urgency]
	if !ok {
		return FeeBreakdown{}, domain.NewValidationError(fmt.Sprintf("invalid urgency: %s", urgency))
	}

	var addOnsCost float64
	seen := make(map[string]struct{}, len(addOnIDs))
	for _, id := range addOnIDs {
		if _, dup := seen[id]; dup {
			return FeeBreakdown{}, domain.NewValidationError(
				fmt.Sprintf("add-on %q selected more than once", id))
		}
		seen[id] = struct{}{}
		addOn, ok := svc.AddOn(id)
		if !ok {
			return FeeBreakdown{}, domain.NewValidationError(
				fmt.Sprintf("add-on %q is not offered by service type %q", id, svc.ID))
		}
		addOnsCost += addOn.Fee
	}

	var surcharge float64
	if remoteArea {
		surcharge = svc.BaseFee * c.remoteSurchargeRate
	}

	subtotal := svc.BaseFee*multiplier + addOnsCost + surcharge
	tax := subtotal * c.taxRate

	return FeeBreakdown{
		BaseFee:                svc.BaseFee,
		UrgencyMultiplier:      multiplier,
		AdditionalServicesCost: addOnsCost,
		LocationSurcharge:      surcharge,
		Subtotal:               subtotal,
		Tax:                    tax,
		TotalAmount:            roundHalfUp(subtotal+tax, 2),
		Currency:               svc.Currency,
	}, nil
}

// roundHalfUp rounds to the given number of decimal places, ties away from zero.
func roundHalfUp(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Floor(v*shift+0.5) / shift
}
