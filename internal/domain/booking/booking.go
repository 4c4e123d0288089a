package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/civicpulse/service-emergency/internal/domain"
	"github.com/google/uuid"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for the emergency service booking domain.
// The fee breakdown is an immutable snapshot and the status history is
// append-only; status only moves along the legal edges in booking_status.go.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	ownerID       uuid.UUID
	serviceTypeID string
	urgency       Urgency
	location      Location
	description   string
	contactInfo   ContactInfo
	addOnIDs      []string

	fee              FeeBreakdown
	status           BookingStatus
	paymentSessionID *string
	statusHistory    []StatusChange

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "EM-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "EM-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=pending_payment.
func NewBooking(
	ownerID uuid.UUID,
	serviceTypeID string,
	urgency Urgency,
	location Location,
	description string,
	contactInfo ContactInfo,
	addOnIDs []string,
	fee FeeBreakdown,
) (*Booking, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if serviceTypeID == "" {
		return nil, domain.NewValidationError("service type is required")
	}
	if !urgency.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid urgency: %s", urgency))
	}
	if location.Address == "" {
		return nil, domain.NewValidationError("location is required")
	}
	if contactInfo.Phone == "" {
		return nil, domain.NewValidationError("contact phone is required")
	}
	if fee.TotalAmount <= 0 {
		return nil, domain.NewValidationError("fee total must be positive")
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		ownerID:       ownerID,
		serviceTypeID: serviceTypeID,
		urgency:       urgency,
		location:      location,
		description:   description,
		contactInfo:   contactInfo,
		addOnIDs:      append([]string(nil), addOnIDs...),
		fee:           fee,
		status:        StatusPendingPayment,
		statusHistory: []StatusChange{{
			Status: StatusPendingPayment,
			Actor:  ownerID.String(),
			Source: SourceSystem,
			Note:   "booking created",
			At:     now,
		}},
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	ownerID uuid.UUID,
	serviceTypeID string,
	urgency Urgency,
	location Location,
	description string,
	contactInfo ContactInfo,
	addOnIDs []string,
	fee FeeBreakdown,
	status BookingStatus,
	paymentSessionID *string,
	statusHistory []StatusChange,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:               id,
		bookingNumber:    bookingNumber,
		ownerID:          ownerID,
		serviceTypeID:    serviceTypeID,
		urgency:          urgency,
		location:         location,
		description:      description,
		contactInfo:      contactInfo,
		addOnIDs:         addOnIDs,
		fee:              fee,
		status:           status,
		paymentSessionID: paymentSessionID,
		statusHistory:    statusHistory,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// OwnerID returns the requesting citizen's user ID.
func (b *Booking) OwnerID() uuid.UUID { return b.ownerID }

// ServiceTypeID returns the booked service type id.
func (b *Booking) ServiceTypeID() string { return b.serviceTypeID }

// Urgency returns the requested urgency.
func (b *Booking) Urgency() Urgency { return b.urgency }

// Location returns where the service is needed.
func (b *Booking) Location() Location { return b.location }

// Description returns the incident description.
func (b *Booking) Description() string { return b.description }

// ContactInfo returns the requester's contact details.
func (b *Booking) ContactInfo() ContactInfo { return b.contactInfo }

// AddOnIDs returns the selected add-on service ids.
func (b *Booking) AddOnIDs() []string { return append([]string(nil), b.addOnIDs...) }

// Fee returns the immutable fee breakdown snapshot.
func (b *Booking) Fee() FeeBreakdown { return b.fee }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// PaymentSessionID returns the linked payment session id, or nil before one exists.
func (b *Booking) PaymentSessionID() *string { return b.paymentSessionID }

// StatusHistory returns the append-only audit trail, oldest first.
func (b *Booking) StatusHistory() []StatusChange {
	return append([]StatusChange(nil), b.statusHistory...)
}

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// AttachPaymentSession links the checkout session created for this booking.
// A booking gets exactly one session.
func (b *Booking) AttachPaymentSession(sessionID string) error {
	if b.paymentSessionID != nil {
		return domain.NewConflictError("booking already has a payment session")
	}
	b.paymentSessionID = &sessionID
	b.updatedAt = time.Now().UTC()
	return nil
}

// TransitionTo moves the booking along a legal edge and appends an audit
// entry. An illegal target fails with an invalid-state error and leaves the
// booking unchanged.
func (b *Booking) TransitionTo(target BookingStatus, actor string, source TransitionSource, note string) error {
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}
	now := time.Now().UTC()
	b.status = target
	b.statusHistory = append(b.statusHistory, StatusChange{
		Status: target,
		Actor:  actor,
		Source: source,
		Note:   note,
		At:     now,
	})
	b.updatedAt = now
	return nil
}

// OverridePaymentOutcome replaces a poll-sourced payment outcome with the
// authoritative webhook outcome. Only payment-outcome statuses may be
// overridden, and only by a webhook report; the conflict is recorded in the
// audit trail rather than silently overwritten.
func (b *Booking) OverridePaymentOutcome(target BookingStatus, note string) error {
	if !b.status.IsPaymentOutcome() || !target.IsPaymentOutcome() {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}
	now := time.Now().UTC()
	b.status = target
	b.statusHistory = append(b.statusHistory, StatusChange{
		Status: target,
		Actor:  "payment-provider",
		Source: SourceWebhook,
		Note:   note,
		At:     now,
	})
	b.updatedAt = now
	return nil
}

// RecordConflict appends an audit entry for a conflicting reconciliation
// report that was not applied. The status is unchanged.
func (b *Booking) RecordConflict(source TransitionSource, note string) {
	now := time.Now().UTC()
	b.statusHistory = append(b.statusHistory, StatusChange{
		Status: b.status,
		Actor:  "payment-provider",
		Source: source,
		Note:   note,
		At:     now,
	})
	b.updatedAt = now
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

// LastPaymentOutcomeSource returns the source of the most recent
// payment-outcome history entry, or empty if none exists.
func (b *Booking) LastPaymentOutcomeSource() TransitionSource {
	for i := len(b.statusHistory) - 1; i >= 0; i-- {
		if b.statusHistory[i].Status.IsPaymentOutcome() {
			return b.statusHistory[i].Source
		}
	}
	return ""
}
