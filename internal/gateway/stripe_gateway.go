package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/civicpulse/service-emergency/internal/domain"
	"github.com/civicpulse/service-emergency/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// Checkout sessions not settled within this window expire provider-side.
const sessionTTL = 24 * time.Hour

// StripeGateway implements payment.Gateway on Stripe Checkout. One checkout
// session per booking; the booking id travels as the client reference.
type StripeGateway struct {
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        *zap.Logger
}

// NewStripeGateway creates a StripeGateway. The Stripe API key is installed
// globally by the caller (stripe.Key) before any session call.
func NewStripeGateway(webhookSecret, successURL, cancelURL string, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
		logger:        logger,
	}
}

// CreateSession opens a Stripe Checkout session for the priced booking.
func (g *StripeGateway) CreateSession(ctx context.Context, p payment.CreateSessionParams) (*payment.Session, error) {
	expiresAt := time.Now().UTC().Add(sessionTTL)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(p.BookingID.String()),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ExpiresAt:         stripe.Int64(expiresAt.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(p.Currency)),
				UnitAmount: stripe.Int64(toMinorUnits(p.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(p.ServiceName),
					Description: stripe.String(fmt.Sprintf("Emergency service booking %s", p.BookingNumber)),
				},
			},
		}},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		g.logger.Error("stripe checkout session creation failed",
			zap.String("booking_id", p.BookingID.String()),
			zap.Error(err),
		)
		return nil, domain.NewUnavailableError("payment provider unavailable")
	}

	return &payment.Session{
		ID:          sess.ID,
		BookingID:   p.BookingID,
		CheckoutURL: sess.URL,
		Status:      payment.StatusPending,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   &expiresAt,
	}, nil
}

// GetStatus queries Stripe for the checkout session's current status.
func (g *StripeGateway) GetStatus(ctx context.Context, sessionID string) (payment.Status, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return "", domain.NewUnavailableError("payment provider unavailable")
	}
	return mapSessionStatus(sess), nil
}

// VerifyWebhook checks the Stripe-Signature header and extracts the status
// update. Events unrelated to checkout sessions verify successfully but
// yield nil.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, domain.NewUnauthorizedError("webhook signature verification failed")
	}

	var status payment.Status
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		status = payment.StatusPaid
	case "checkout.session.async_payment_failed":
		status = payment.StatusFailed
	case "checkout.session.expired":
		status = payment.StatusExpired
	default:
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse webhook session payload: %w", err)
	}

	// A completed session that is still unpaid (delayed payment methods)
	// settles later via async_payment_succeeded.
	if status == payment.StatusPaid && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		status = payment.StatusPending
	}

	bookingID, err := uuid.Parse(sess.ClientReferenceID)
	if err != nil {
		return nil, fmt.Errorf("webhook session has invalid booking reference: %w", err)
	}

	return &payment.WebhookEvent{
		SessionID: sess.ID,
		BookingID: bookingID,
		Status:    status,
	}, nil
}

func mapSessionStatus(sess *stripe.CheckoutSession) payment.Status {
	switch sess.Status {
	case stripe.CheckoutSessionStatusExpired:
		return payment.StatusExpired
	case stripe.CheckoutSessionStatusComplete:
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return payment.StatusPending
		}
		return payment.StatusPaid
	default:
		return payment.StatusPending
	}
}

// toMinorUnits converts a currency amount to its minor-unit representation.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
