package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicpulse/service-emergency/internal/domain"
	"github.com/civicpulse/service-emergency/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PaymentSessionModel is the GORM model for the payment_sessions table.
type PaymentSessionModel struct {
	ID            string     `gorm:"primaryKey;size:100"`
	BookingID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	CheckoutURL   string     `gorm:"not null;size:2000"`
	Status        string     `gorm:"not null;size:20;index"`
	CreatedAt     time.Time  `gorm:"not null"`
	LastCheckedAt *time.Time `gorm:""`
	ExpiresAt     *time.Time `gorm:""`
}

// TableName returns the table name for the GORM model.
func (PaymentSessionModel) TableName() string {
	return "payment_sessions"
}

// GormSessionRepository is the GORM-based implementation of SessionRepository.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Save persists a new session. The unique index on booking_id enforces the
// one-session-per-booking invariant.
func (r *GormSessionRepository) Save(ctx context.Context, sess *payment.Session) error {
	model := toSessionModel(sess)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.NewConflictError("payment session already exists for booking")
		}
		return fmt.Errorf("failed to save payment session: %w", err)
	}
	return nil
}

// FindByID retrieves a session by its provider-assigned identifier.
func (r *GormSessionRepository) FindByID(ctx context.Context, id string) (*payment.Session, error) {
	var model PaymentSessionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PaymentSession", id)
		}
		return nil, fmt.Errorf("failed to find payment session: %w", err)
	}
	return toDomainSession(&model), nil
}

// FindByBookingID retrieves the session linked to a booking, if any.
func (r *GormSessionRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Session, error) {
	var model PaymentSessionModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PaymentSession", bookingID.String())
		}
		return nil, fmt.Errorf("failed to find payment session by booking: %w", err)
	}
	return toDomainSession(&model), nil
}

// UpdateStatus records the latest provider status and check time.
func (r *GormSessionRepository) UpdateStatus(ctx context.Context, id string, status payment.Status, checkedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&PaymentSessionModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          string(status),
			"last_checked_at": checkedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update payment session status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("PaymentSession", id)
	}
	return nil
}

// --- Conversion helpers ---

func toSessionModel(s *payment.Session) *PaymentSessionModel {
	return &PaymentSessionModel{
		ID:            s.ID,
		BookingID:     s.BookingID,
		CheckoutURL:   s.CheckoutURL,
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt,
		LastCheckedAt: s.LastCheckedAt,
		ExpiresAt:     s.ExpiresAt,
	}
}

func toDomainSession(m *PaymentSessionModel) *payment.Session {
	return &payment.Session{
		ID:            m.ID,
		BookingID:     m.BookingID,
		CheckoutURL:   m.CheckoutURL,
		Status:        payment.Status(m.Status),
		CreatedAt:     m.CreatedAt,
		LastCheckedAt: m.LastCheckedAt,
		ExpiresAt:     m.ExpiresAt,
	}
}
