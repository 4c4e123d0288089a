package booking

import (
	"strings"
	"testing"

	"github.com/civicpulse/service-emergency/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	bk, err := NewBooking(
		uuid.New(),
		"ambulance",
		UrgencyHigh,
		Location{Address: "12 Elm Street"},
		"chest pain",
		ContactInfo{Phone: "+15550100"},
		[]string{"medical-escort"},
		FeeBreakdown{BaseFee: 150, UrgencyMultiplier: 1.5, Subtotal: 250, Tax: 20, TotalAmount: 270, Currency: "USD"},
	)
	require.NoError(t, err)
	return bk
}

func TestNewBooking(t *testing.T) {
	bk := newTestBooking(t)

	assert.Equal(t, StatusPendingPayment, bk.Status())
	assert.True(t, strings.HasPrefix(bk.BookingNumber(), "EM-"))
	assert.Len(t, bk.BookingNumber(), 9)
	assert.Equal(t, int64(1), bk.Version())
	assert.Nil(t, bk.PaymentSessionID())

	history := bk.StatusHistory()
	require.Len(t, history, 1)
	assert.Equal(t, StatusPendingPayment, history[0].Status)
	assert.Equal(t, SourceSystem, history[0].Source)
}

func TestNewBooking_Validation(t *testing.T) {
	fee := FeeBreakdown{TotalAmount: 270, Currency: "USD"}

	cases := []struct {
		name string
		fn   func() (*Booking, error)
	}{
		{"missing owner", func() (*Booking, error) {
			return NewBooking(uuid.Nil, "ambulance", UrgencyHigh, Location{Address: "x"}, "", ContactInfo{Phone: "1"}, nil, fee)
		}},
		{"missing service type", func() (*Booking, error) {
			return NewBooking(uuid.New(), "", UrgencyHigh, Location{Address: "x"}, "", ContactInfo{Phone: "1"}, nil, fee)
		}},
		{"invalid urgency", func() (*Booking, error) {
			return NewBooking(uuid.New(), "ambulance", Urgency("extreme"), Location{Address: "x"}, "", ContactInfo{Phone: "1"}, nil, fee)
		}},
		{"missing location", func() (*Booking, error) {
			return NewBooking(uuid.New(), "ambulance", UrgencyHigh, Location{}, "", ContactInfo{Phone: "1"}, nil, fee)
		}},
		{"missing phone", func() (*Booking, error) {
			return NewBooking(uuid.New(), "ambulance", UrgencyHigh, Location{Address: "x"}, "", ContactInfo{}, nil, fee)
		}},
		{"non-positive fee", func() (*Booking, error) {
			return NewBooking(uuid.New(), "ambulance", UrgencyHigh, Location{Address: "x"}, "", ContactInfo{Phone: "1"}, nil, FeeBreakdown{})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.fn()
			require.Error(t, err)
			assert.True(t, domain.IsCode(err, domain.CodeValidation))
		})
	}
}

func TestAttachPaymentSession_OnlyOnce(t *testing.T) {
	bk := newTestBooking(t)

	require.NoError(t, bk.AttachPaymentSession("cs_test_123"))
	require.NotNil(t, bk.PaymentSessionID())
	assert.Equal(t, "cs_test_123", *bk.PaymentSessionID())

	err := bk.AttachPaymentSession("cs_test_456")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeConflict))
	assert.Equal(t, "cs_test_123", *bk.PaymentSessionID())
}

func TestTransitionTo_AppendsHistory(t *testing.T) {
	bk := newTestBooking(t)

	require.NoError(t, bk.TransitionTo(StatusConfirmed, "payment-provider", SourceWebhook, "provider reported paid"))
	assert.Equal(t, StatusConfirmed, bk.Status())

	history := bk.StatusHistory()
	require.Len(t, history, 2)
	assert.Equal(t, StatusConfirmed, history[1].Status)
	assert.Equal(t, SourceWebhook, history[1].Source)
	assert.Equal(t, "provider reported paid", history[1].Note)
}

func TestTransitionTo_IllegalEdgeLeavesBookingUnchanged(t *testing.T) {
	bk := newTestBooking(t)

	err := bk.TransitionTo(StatusCompleted, "admin", SourceAdmin, "skip ahead")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))
	assert.Equal(t, StatusPendingPayment, bk.Status())
	assert.Len(t, bk.StatusHistory(), 1)
}

func TestOverridePaymentOutcome(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(StatusPaymentFailed, "payment-provider", SourcePoll, "poll reported failed"))

	require.NoError(t, bk.OverridePaymentOutcome(StatusConfirmed, "webhook result confirmed overrides poll-reported payment_failed"))
	assert.Equal(t, StatusConfirmed, bk.Status())

	history := bk.StatusHistory()
	require.Len(t, history, 3)
	assert.Equal(t, SourceWebhook, history[2].Source)
}

func TestOverridePaymentOutcome_RejectedOutsidePaymentOutcomes(t *testing.T) {
	bk := newTestBooking(t)

	// Still pending_payment, nothing to override.
	err := bk.OverridePaymentOutcome(StatusConfirmed, "n/a")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))
}

func TestRecordConflict_KeepsStatus(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(StatusConfirmed, "payment-provider", SourceWebhook, "provider reported paid"))

	bk.RecordConflict(SourcePoll, "conflicting poll report payment_failed ignored")

	assert.Equal(t, StatusConfirmed, bk.Status())
	history := bk.StatusHistory()
	require.Len(t, history, 3)
	assert.Equal(t, StatusConfirmed, history[2].Status)
	assert.Equal(t, SourcePoll, history[2].Source)
}

func TestLastPaymentOutcomeSource(t *testing.T) {
	bk := newTestBooking(t)
	assert.Equal(t, TransitionSource(""), bk.LastPaymentOutcomeSource())

	require.NoError(t, bk.TransitionTo(StatusConfirmed, "payment-provider", SourcePoll, "poll reported paid"))
	assert.Equal(t, SourcePoll, bk.LastPaymentOutcomeSource())
}

func TestStatusHistory_ReturnsCopy(t *testing.T) {
	bk := newTestBooking(t)

	history := bk.StatusHistory()
	history[0].Note = "tampered"

	assert.Equal(t, "booking created", bk.StatusHistory()[0].Note)
}
