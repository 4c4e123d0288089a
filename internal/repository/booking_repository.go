package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/civicpulse/service-emergency/internal/domain"
	bookingDomain "github.com/civicpulse/service-emergency/internal/domain/booking"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber    string          `gorm:"uniqueIndex;not null;size:20"`
	OwnerID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	ServiceTypeID    string          `gorm:"not null;size:50;index"`
	Urgency          string          `gorm:"not null;size:20"`
	Location         json.RawMessage `gorm:"type:jsonb;not null"`
	Description      string          `gorm:"size:2000"`
	ContactInfo      json.RawMessage `gorm:"type:jsonb;not null"`
	AddOnIDs         json.RawMessage `gorm:"type:jsonb"`
	FeeBreakdown     json.RawMessage `gorm:"type:jsonb;not null"`
	Status           string          `gorm:"not null;size:30;index"`
	PaymentSessionID *string         `gorm:"size:100;index"`
	StatusHistory    json.RawMessage `gorm:"type:jsonb;not null"`
	Version          int64           `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null;index"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", number)
		}
		return nil, fmt.Errorf("failed to find booking by number: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByOwnerID retrieves bookings for a specific owner with pagination.
func (r *GormBookingRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count owner bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find owner bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// FindStalePendingPayment retrieves pending_payment bookings created before the cutoff.
func (r *GormBookingRepository) FindStalePendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(bookingDomain.StatusPendingPayment), cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find stale pending bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
// The conditional write on the previous version is the serialization point
// for concurrent transition application on the same booking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":             model.Status,
			"payment_session_id": model.PaymentSessionID,
			"status_history":     model.StatusHistory,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// --- Conversion helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	locationJSON, err := json.Marshal(bk.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal location: %w", err)
	}
	contactJSON, err := json.Marshal(bk.ContactInfo())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contact info: %w", err)
	}
	addOnsJSON, err := json.Marshal(bk.AddOnIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal add-on ids: %w", err)
	}
	feeJSON, err := json.Marshal(bk.Fee())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fee breakdown: %w", err)
	}
	historyJSON, err := json.Marshal(bk.StatusHistory())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status history: %w", err)
	}

	return &BookingModel{
		ID:               bk.ID(),
		BookingNumber:    bk.BookingNumber(),
		OwnerID:          bk.OwnerID(),
		ServiceTypeID:    bk.ServiceTypeID(),
		Urgency:          string(bk.Urgency()),
		Location:         locationJSON,
		Description:      bk.Description(),
		ContactInfo:      contactJSON,
		AddOnIDs:         addOnsJSON,
		FeeBreakdown:     feeJSON,
		Status:           string(bk.Status()),
		PaymentSessionID: bk.PaymentSessionID(),
		StatusHistory:    historyJSON,
		Version:          bk.Version(),
		CreatedAt:        bk.CreatedAt(),
		UpdatedAt:        bk.UpdatedAt(),
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var location bookingDomain.Location
	if err := json.Unmarshal(m.Location, &location); err != nil {
		return nil, fmt.Errorf("failed to unmarshal location: %w", err)
	}
	var contact bookingDomain.ContactInfo
	if err := json.Unmarshal(m.ContactInfo, &contact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact info: %w", err)
	}
	var addOnIDs []string
	if len(m.AddOnIDs) > 0 {
		if err := json.Unmarshal(m.AddOnIDs, &addOnIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal add-on ids: %w", err)
		}
	}
	var fee bookingDomain.FeeBreakdown
	if err := json.Unmarshal(m.FeeBreakdown, &fee); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fee breakdown: %w", err)
	}
	var history []bookingDomain.StatusChange
	if err := json.Unmarshal(m.StatusHistory, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status history: %w", err)
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.OwnerID,
		m.ServiceTypeID,
		bookingDomain.Urgency(m.Urgency),
		location,
		m.Description,
		contact,
		addOnIDs,
		fee,
		status,
		m.PaymentSessionID,
		history,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel, total int64) ([]*bookingDomain.Booking, int64, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}
