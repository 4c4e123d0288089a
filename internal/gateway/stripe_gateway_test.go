package gateway

import (
	"testing"

	"github.com/civicpulse/service-emergency/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(27000), toMinorUnits(270.00))
	assert.Equal(t, int64(24300), toMinorUnits(243.00))
	// 19.99 is not exactly representable; rounding must still land on 1999.
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
	assert.Equal(t, int64(1), toMinorUnits(0.01))
}

func TestMapSessionStatus(t *testing.T) {
	cases := []struct {
		name     string
		session  *stripe.CheckoutSession
		expected payment.Status
	}{
		{
			"open session is pending",
			&stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusOpen},
			payment.StatusPending,
		},
		{
			"complete and paid",
			&stripe.CheckoutSession{
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
			},
			payment.StatusPaid,
		},
		{
			"complete but awaiting async payment",
			&stripe.CheckoutSession{
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
			},
			payment.StatusPending,
		},
		{
			"expired",
			&stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusExpired},
			payment.StatusExpired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, mapSessionStatus(tc.session))
		})
	}
}
