package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicBookingEvents carries every committed booking lifecycle transition.
// Downstream consumers (notification service, dashboard) subscribe here.
const TopicBookingEvents = "booking.events"

// Event types published on TopicBookingEvents.
const (
	BookingCreated       = "booking.created"
	BookingConfirmed     = "booking.confirmed"
	BookingPaymentFailed = "booking.payment_failed"
	BookingInProgress    = "booking.in_progress"
	BookingCompleted     = "booking.completed"
	BookingCancelled     = "booking.cancelled"
)

// BookingCreatedEvent is published when a booking is persisted.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	OwnerID       uuid.UUID `json:"owner_id"`
	ServiceTypeID string    `json:"service_type_id"`
	Urgency       string    `json:"urgency"`
	TotalAmount   float64   `json:"total_amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingStatusChangedEvent is published for every committed transition.
type BookingStatusChangedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Status        string    `json:"status"`
	Actor         string    `json:"actor"`
	Source        string    `json:"source"`
	Note          string    `json:"note,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
