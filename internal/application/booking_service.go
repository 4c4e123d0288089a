package application

import (
	"context"
	"fmt"
	"time"

	"github.com/civicpulse/service-emergency/internal/domain"
	bookingDomain "github.com/civicpulse/service-emergency/internal/domain/booking"
	"github.com/civicpulse/service-emergency/internal/domain/catalog"
	"github.com/civicpulse/service-emergency/internal/domain/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// transition-apply retries when the optimistic lock detects a concurrent writer.
const applyRetries = 3

const providerActor = "payment-provider"

// EventPublisher emits booking lifecycle events for downstream consumers.
type EventPublisher interface {
	BookingCreated(ctx context.Context, bk *bookingDomain.Booking)
	StatusChanged(ctx context.Context, bk *bookingDomain.Booking, actor string, source bookingDomain.TransitionSource, note string)
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	ServiceTypeID string                    `json:"service_type_id" binding:"required"`
	Urgency       string                    `json:"urgency" binding:"required"`
	Location      bookingDomain.Location    `json:"location" binding:"required"`
	Description   string                    `json:"description"`
	ContactInfo   bookingDomain.ContactInfo `json:"contact_info" binding:"required"`
	AddOnIDs      []string                  `json:"add_on_ids"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID               uuid.UUID                    `json:"id"`
	BookingNumber    string                       `json:"booking_number"`
	OwnerID          uuid.UUID                    `json:"owner_id"`
	ServiceTypeID    string                       `json:"service_type_id"`
	Urgency          string                       `json:"urgency"`
	Location         bookingDomain.Location       `json:"location"`
	Description      string                       `json:"description,omitempty"`
	ContactInfo      bookingDomain.ContactInfo    `json:"contact_info"`
	AddOnIDs         []string                     `json:"add_on_ids,omitempty"`
	Fee              bookingDomain.FeeBreakdown   `json:"fee_breakdown"`
	Status           string                       `json:"status"`
	PaymentSessionID *string                      `json:"payment_session_id,omitempty"`
	CheckoutURL      string                       `json:"checkout_url,omitempty"`
	StatusHistory    []bookingDomain.StatusChange `json:"status_history"`
	Version          int64                        `json:"version"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

// BookingService is the lifecycle controller: it validates requests, prices
// them, persists bookings, opens payment sessions, and applies every status
// transition through one serialized path.
type BookingService struct {
	repo      bookingDomain.BookingRepository
	sessions  payment.SessionRepository
	gateway   payment.Gateway
	catalog   *catalog.Catalog
	fees      *bookingDomain.FeeCalculator
	publisher EventPublisher
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	sessions payment.SessionRepository,
	gateway payment.Gateway,
	cat *catalog.Catalog,
	fees *bookingDomain.FeeCalculator,
	publisher EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		sessions:  sessions,
		gateway:   gateway,
		catalog:   cat,
		fees:      fees,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateBooking validates and prices a request, persists the booking in
// pending_payment, and opens a checkout session. Validation failures reject
// before anything is persisted. A provider failure after persistence still
// returns the created booking, just without a checkout URL; the caller
// obtains one later via EnsureCheckoutSession.
func (s *BookingService) CreateBooking(ctx context.Context, ownerID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	svc, ok := s.catalog.Get(req.ServiceTypeID)
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown service type: %s", req.ServiceTypeID))
	}

	urgency := bookingDomain.Urgency(req.Urgency)
	fee, err := s.fees.Calculate(svc, urgency, req.Location.RemoteArea, req.AddOnIDs)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		ownerID,
		svc.ID,
		urgency,
		req.Location,
		req.Description,
		req.ContactInfo,
		req.AddOnIDs,
		fee,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}
	s.publisher.BookingCreated(ctx, bk)

	sess, err := s.openSession(ctx, bk, svc)
	if err != nil {
		s.logger.Warn("checkout session creation failed, booking remains pending_payment",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		dto := toBookingDTO(bk, nil)
		return &dto, nil
	}

	dto := toBookingDTO(bk, sess)
	return &dto, nil
}

// EnsureCheckoutSession returns the booking's checkout session, creating one
// if an earlier attempt failed. A booking never gets a second session.
func (s *BookingService) EnsureCheckoutSession(ctx context.Context, ownerID, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.OwnerID() != ownerID {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}

	if bk.PaymentSessionID() != nil {
		sess, err := s.sessions.FindByID(ctx, *bk.PaymentSessionID())
		if err != nil {
			return nil, err
		}
		dto := toBookingDTO(bk, sess)
		return &dto, nil
	}

	if bk.Status() != bookingDomain.StatusPendingPayment {
		return nil, domain.NewConflictError("booking is not awaiting payment")
	}

	svc, ok := s.catalog.Get(bk.ServiceTypeID())
	if !ok {
		return nil, domain.NewNotFoundError("ServiceType", bk.ServiceTypeID())
	}

	sess, err := s.openSession(ctx, bk, svc)
	if err != nil {
		return nil, err
	}
	dto := toBookingDTO(bk, sess)
	return &dto, nil
}

// openSession creates the provider checkout session and links it to the booking.
func (s *BookingService) openSession(ctx context.Context, bk *bookingDomain.Booking, svc *catalog.ServiceType) (*payment.Session, error) {
	sess, err := s.gateway.CreateSession(ctx, payment.CreateSessionParams{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		ServiceName:   svc.Name,
		Amount:        bk.Fee().TotalAmount,
		Currency:      bk.Fee().Currency,
		CustomerEmail: bk.ContactInfo().Email,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	if err := bk.AttachPaymentSession(sess.ID); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}
	return sess, nil
}

// ApplyPaymentOutcome is the single serialized apply path for payment
// reconciliation, shared by the webhook and the client poll. It is
// idempotent: an outcome matching the current state is a no-op success.
// Conflicting outcomes resolve in the webhook's favor; the losing report is
// recorded in the audit trail, never silently dropped.
func (s *BookingService) ApplyPaymentOutcome(ctx context.Context, sessionID string, status payment.Status, source bookingDomain.TransitionSource) (*BookingDTO, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var target bookingDomain.BookingStatus
	switch status {
	case payment.StatusPaid:
		target = bookingDomain.StatusConfirmed
	case payment.StatusFailed, payment.StatusExpired:
		target = bookingDomain.StatusPaymentFailed
	default:
		// Nothing to apply for a still-pending session.
		bk, err := s.repo.FindByID(ctx, sess.BookingID)
		if err != nil {
			return nil, err
		}
		dto := toBookingDTO(bk, sess)
		return &dto, nil
	}
	note := fmt.Sprintf("provider reported %s via %s", status, source)

	var lastErr error
	for attempt := 0; attempt < applyRetries; attempt++ {
		bk, err := s.repo.FindByID(ctx, sess.BookingID)
		if err != nil {
			return nil, err
		}

		applied, err := s.reconcile(bk, target, source, note)
		if err != nil {
			return nil, err
		}
		if !applied {
			dto := toBookingDTO(bk, sess)
			return &dto, nil
		}

		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			// Another trigger won the conditional update; re-read and re-apply.
			if domain.IsCode(err, domain.CodeConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		if bk.Status() == target {
			s.publisher.StatusChanged(ctx, bk, providerActor, source, note)
		}
		if err := s.sessions.UpdateStatus(ctx, sess.ID, status, time.Now().UTC()); err != nil {
			s.logger.Warn("failed to record session status",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		}
		dto := toBookingDTO(bk, sess)
		return &dto, nil
	}
	return nil, fmt.Errorf("failed to apply payment outcome after %d attempts: %w", applyRetries, lastErr)
}

// reconcile mutates the aggregate for one reconciliation report and reports
// whether anything changed. Resolution rules:
//   - target equals current status: idempotent no-op.
//   - booking still pending_payment: apply the transition.
//   - conflicting payment outcome: webhook overrides a poll-sourced state;
//     anything else is recorded as a conflict without changing status.
//   - booking already past payment (in_progress and beyond): a late paid
//     report is a no-op; a conflicting failure report is recorded.
func (s *BookingService) reconcile(bk *bookingDomain.Booking, target bookingDomain.BookingStatus, source bookingDomain.TransitionSource, note string) (bool, error) {
	switch {
	case bk.Status() == target:
		return false, nil

	case bk.Status() == bookingDomain.StatusPendingPayment:
		if err := bk.TransitionTo(target, providerActor, source, note); err != nil {
			return false, err
		}
		return true, nil

	case bk.Status().IsPaymentOutcome():
		if source == bookingDomain.SourceWebhook && bk.LastPaymentOutcomeSource() == bookingDomain.SourcePoll {
			conflictNote := fmt.Sprintf("webhook result %s overrides poll-reported %s", target, bk.Status())
			if err := bk.OverridePaymentOutcome(target, conflictNote); err != nil {
				return false, err
			}
			s.logger.Warn("conflicting payment reports resolved in webhook's favor",
				zap.String("booking_id", bk.ID().String()),
				zap.String("applied", string(target)),
			)
			return true, nil
		}
		bk.RecordConflict(source, fmt.Sprintf("conflicting %s report %s ignored; %s is authoritative", source, target, bk.Status()))
		return true, nil

	default:
		if target == bookingDomain.StatusConfirmed && hasHistoryEntry(bk, bookingDomain.StatusConfirmed) {
			// Payment fact already applied before the booking advanced.
			return false, nil
		}
		bk.RecordConflict(source, fmt.Sprintf("late %s report %s ignored in status %s", source, target, bk.Status()))
		return true, nil
	}
}

// PollPaymentStatus queries the provider for the session's status, applies a
// settled outcome through the serialized path, and returns the provider
// status. A transient provider failure changes nothing and is retryable.
func (s *BookingService) PollPaymentStatus(ctx context.Context, sessionID string) (payment.Status, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return "", err
	}

	status, err := s.gateway.GetStatus(ctx, sess.ID)
	if err != nil {
		return "", err
	}

	if err := s.sessions.UpdateStatus(ctx, sess.ID, status, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to record session status",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}

	if status.IsSettled() {
		if _, err := s.ApplyPaymentOutcome(ctx, sessionID, status, bookingDomain.SourcePoll); err != nil {
			return "", err
		}
	}
	return status, nil
}

// HandleWebhook verifies a provider notification and applies it. The nil
// return that acknowledges the delivery happens only after the transition is
// durably applied, so provider redelivery stays safe under the idempotent
// apply.
func (s *BookingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		return err
	}
	if evt == nil || !evt.Status.IsSettled() {
		return nil
	}
	_, err = s.ApplyPaymentOutcome(ctx, evt.SessionID, evt.Status, bookingDomain.SourceWebhook)
	return err
}

// UpdateStatusByAdmin forces a transition on behalf of an operator. The same
// legal-edge table applies; the actor and note land in the audit trail.
func (s *BookingService) UpdateStatusByAdmin(ctx context.Context, bookingID uuid.UUID, targetStatus string, actorID uuid.UUID, note string) (*BookingDTO, error) {
	target, err := bookingDomain.ParseBookingStatus(targetStatus)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.TransitionTo(target, actorID.String(), bookingDomain.SourceAdmin, note); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publisher.StatusChanged(ctx, bk, actorID.String(), bookingDomain.SourceAdmin, note)

	dto := toBookingDTO(bk, nil)
	return &dto, nil
}

// GetBooking retrieves a single booking; citizens may only see their own.
func (s *BookingService) GetBooking(ctx context.Context, requesterID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && bk.OwnerID() != requesterID {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}

	var sess *payment.Session
	if bk.PaymentSessionID() != nil {
		if found, err := s.sessions.FindByID(ctx, *bk.PaymentSessionID()); err == nil {
			sess = found
		}
	}
	dto := toBookingDTO(bk, sess)
	return &dto, nil
}

// GetOwnerBookings retrieves paginated bookings for a specific owner.
func (s *BookingService) GetOwnerBookings(ctx context.Context, ownerID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByOwnerID(ctx, ownerID, page, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk, nil)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// ListServiceTypes returns the catalog for the booking UI.
func (s *BookingService) ListServiceTypes() []catalog.ServiceType {
	return s.catalog.List()
}

// --- Admin queries ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk, nil)
	}
	return dtos, total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

// --- Expiry sweep ---

// ExpireStalePendingPayments reconciles bookings stuck in pending_payment
// past the window. Sessions the provider settled are applied normally; a
// session the provider still reports pending past the window, or a booking
// that never obtained one, fails with a session-expired note.
func (s *BookingService) ExpireStalePendingPayments(ctx context.Context, window time.Duration, batchSize int) (int, error) {
	cutoff := time.Now().UTC().Add(-window)
	stale, err := s.repo.FindStalePendingPayment(ctx, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale bookings: %w", err)
	}

	expired := 0
	for _, bk := range stale {
		if bk.PaymentSessionID() == nil {
			if err := s.failExpired(ctx, bk, "no payment session created within expiry window"); err != nil {
				s.logger.Error("failed to expire sessionless booking",
					zap.String("booking_id", bk.ID().String()),
					zap.Error(err),
				)
				continue
			}
			expired++
			continue
		}

		status, err := s.gateway.GetStatus(ctx, *bk.PaymentSessionID())
		if err != nil {
			// Provider unreachable: leave the booking for the next sweep.
			s.logger.Warn("provider status check failed during expiry sweep",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}

		if status.IsSettled() {
			if _, err := s.ApplyPaymentOutcome(ctx, *bk.PaymentSessionID(), status, bookingDomain.SourceSystem); err != nil {
				s.logger.Error("failed to apply settled outcome during expiry sweep",
					zap.String("booking_id", bk.ID().String()),
					zap.Error(err),
				)
				continue
			}
			expired++
			continue
		}

		if err := s.failExpired(ctx, bk, "payment session expired without settlement"); err != nil {
			s.logger.Error("failed to expire stale booking",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *BookingService) failExpired(ctx context.Context, bk *bookingDomain.Booking, note string) error {
	if err := bk.TransitionTo(bookingDomain.StatusPaymentFailed, "expiry-sweep", bookingDomain.SourceSystem, note); err != nil {
		return err
	}
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return err
	}
	s.publisher.StatusChanged(ctx, bk, "expiry-sweep", bookingDomain.SourceSystem, note)
	return nil
}

// --- Helpers ---

func hasHistoryEntry(bk *bookingDomain.Booking, status bookingDomain.BookingStatus) bool {
	for _, h := range bk.StatusHistory() {
		if h.Status == status {
			return true
		}
	}
	return false
}

func toBookingDTO(bk *bookingDomain.Booking, sess *payment.Session) BookingDTO {
	dto := BookingDTO{
		ID:               bk.ID(),
		BookingNumber:    bk.BookingNumber(),
		OwnerID:          bk.OwnerID(),
		ServiceTypeID:    bk.ServiceTypeID(),
		Urgency:          string(bk.Urgency()),
		Location:         bk.Location(),
		Description:      bk.Description(),
		ContactInfo:      bk.ContactInfo(),
		AddOnIDs:         bk.AddOnIDs(),
		Fee:              bk.Fee(),
		Status:           string(bk.Status()),
		PaymentSessionID: bk.PaymentSessionID(),
		StatusHistory:    bk.StatusHistory(),
		Version:          bk.Version(),
		CreatedAt:        bk.CreatedAt(),
		UpdatedAt:        bk.UpdatedAt(),
	}
	if sess != nil {
		dto.CheckoutURL = sess.CheckoutURL
	}
	return dto
}
