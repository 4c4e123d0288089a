//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/civicpulse/service-emergency/internal/application"
	bookingDomain "github.com/civicpulse/service-emergency/internal/domain/booking"
	"github.com/civicpulse/service-emergency/internal/domain/payment"
	"github.com/civicpulse/service-emergency/internal/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPaymentWebhook_ConfirmsBooking runs the full payment lifecycle against
// real Postgres and Kafka: create a booking with a checkout session, apply a
// paid webhook outcome, and verify the booking row and the confirmation event.
func TestPaymentWebhook_ConfirmsBooking(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	ctx := context.Background()
	ownerID := uuid.New()

	dto, err := stack.Service.CreateBooking(ctx, ownerID, validIntegrationRequest())
	require.NoError(t, err)
	require.NotNil(t, dto.PaymentSessionID)
	require.Equal(t, string(bookingDomain.StatusPendingPayment), dto.Status)

	// The provider notifies us the session was paid.
	_, err = stack.Service.ApplyPaymentOutcome(ctx, *dto.PaymentSessionID, payment.StatusPaid, bookingDomain.SourceWebhook)
	require.NoError(t, err)

	// Assert: booking row transitions to "confirmed".
	model := waitForBookingStatus(t, infra.DB, dto.ID, "confirmed", 15*time.Second)
	assert.Equal(t, int64(3), model.Version)

	// Assert: booking.confirmed event on booking.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicBookingEvents,
		events.BookingConfirmed, 15*time.Second)

	var confirmed events.BookingStatusChangedEvent
	require.NoError(t, ce.ParseData(&confirmed))
	assert.Equal(t, dto.ID, confirmed.BookingID)
	assert.Equal(t, ownerID, confirmed.OwnerID)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.Equal(t, "webhook", confirmed.Source)
}

// TestConflictingReports_WebhookWins verifies the reconciliation rule end to
// end: a poll-sourced failure followed by a webhook paid report leaves the
// booking confirmed with the conflict in its audit trail.
func TestConflictingReports_WebhookWins(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	ctx := context.Background()
	dto, err := stack.Service.CreateBooking(ctx, uuid.New(), validIntegrationRequest())
	require.NoError(t, err)
	sessionID := *dto.PaymentSessionID

	// Poll reports a failure first.
	stack.Gateway.Status = payment.StatusFailed
	status, err := stack.Service.PollPaymentStatus(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusFailed, status)
	waitForBookingStatus(t, infra.DB, dto.ID, "payment_failed", 15*time.Second)

	// The webhook then reports paid and wins.
	result, err := stack.Service.ApplyPaymentOutcome(ctx, sessionID, payment.StatusPaid, bookingDomain.SourceWebhook)
	require.NoError(t, err)
	assert.Equal(t, string(bookingDomain.StatusConfirmed), result.Status)

	model := waitForBookingStatus(t, infra.DB, dto.ID, "confirmed", 15*time.Second)
	assert.Contains(t, string(model.StatusHistory), "overrides")
}

func validIntegrationRequest() application.CreateBookingRequest {
	return application.CreateBookingRequest{
		ServiceTypeID: "ambulance",
		Urgency:       "high",
		Location:      bookingDomain.Location{Address: "12 Elm Street"},
		Description:   "integration test",
		ContactInfo:   bookingDomain.ContactInfo{Phone: "+15550100", Email: "citizen@example.org"},
		AddOnIDs:      []string{"medical-escort"},
	}
}
