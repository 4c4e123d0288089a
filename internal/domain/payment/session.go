package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the provider-side state of a checkout session.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// IsValid returns true if the status is recognized.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// IsSettled returns true once the provider has reported a final outcome.
func (s Status) IsSettled() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusExpired
}

// Session is the checkout record linked 1:1 to a booking. The booking side
// holds only the session id; the session owns the provider state.
type Session struct {
	ID            string     `json:"id"`
	BookingID     uuid.UUID  `json:"booking_id"`
	CheckoutURL   string     `json:"checkout_url"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// CreateSessionParams carries what the provider needs to open a checkout.
type CreateSessionParams struct {
	BookingID     uuid.UUID
	BookingNumber string
	ServiceName   string
	Amount        float64
	Currency      string
	CustomerEmail string
}

// WebhookEvent is a verified payment notification from the provider.
type WebhookEvent struct {
	SessionID string
	BookingID uuid.UUID
	Status    Status
}

// Gateway wraps the external payment provider. Webhook verification rejects
// payloads whose signature does not match before any payload field is trusted.
type Gateway interface {
	// CreateSession opens a checkout session for a priced booking.
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)

	// GetStatus queries the provider for the session's current status.
	GetStatus(ctx context.Context, sessionID string) (Status, error)

	// VerifyWebhook checks the payload signature and extracts the status
	// update. An unverifiable signature fails without any state change.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// SessionRepository defines the persistence contract for payment sessions.
type SessionRepository interface {
	// Save persists a new session. A second session for the same booking
	// fails with a conflict error.
	Save(ctx context.Context, session *Session) error

	// FindByID retrieves a session by its provider-assigned identifier.
	FindByID(ctx context.Context, id string) (*Session, error)

	// FindByBookingID retrieves the session linked to a booking, if any.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Session, error)

	// UpdateStatus records the latest provider status and check time.
	UpdateStatus(ctx context.Context, id string, status Status, checkedAt time.Time) error
}
