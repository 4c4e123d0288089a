package events

import (
	"context"
	"time"

	bookingDomain "github.com/civicpulse/service-emergency/internal/domain/booking"
	"github.com/civicpulse/service-emergency/internal/platform/kafka"
	"go.uber.org/zap"
)

const eventSource = "service-emergency"

// statusEventTypes maps a committed booking status to its event type.
var statusEventTypes = map[bookingDomain.BookingStatus]string{
	bookingDomain.StatusConfirmed:     BookingConfirmed,
	bookingDomain.StatusPaymentFailed: BookingPaymentFailed,
	bookingDomain.StatusInProgress:    BookingInProgress,
	bookingDomain.StatusCompleted:     BookingCompleted,
	bookingDomain.StatusCancelled:     BookingCancelled,
}

// Publisher emits booking lifecycle events to Kafka. Publish failures are
// logged and never block the transition that produced them.
type Publisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewPublisher creates a Publisher over the given producer.
func NewPublisher(producer *kafka.Producer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// BookingCreated publishes a BookingCreatedEvent.
func (p *Publisher) BookingCreated(ctx context.Context, bk *bookingDomain.Booking) {
	evt := BookingCreatedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OwnerID:       bk.OwnerID(),
		ServiceTypeID: bk.ServiceTypeID(),
		Urgency:       string(bk.Urgency()),
		TotalAmount:   bk.Fee().TotalAmount,
		Currency:      bk.Fee().Currency,
		OccurredAt:    time.Now().UTC(),
	}
	p.publish(ctx, BookingCreated, bk.ID().String(), evt)
}

// StatusChanged publishes the event matching the booking's new status.
func (p *Publisher) StatusChanged(ctx context.Context, bk *bookingDomain.Booking, actor string, source bookingDomain.TransitionSource, note string) {
	eventType, ok := statusEventTypes[bk.Status()]
	if !ok {
		return
	}
	evt := BookingStatusChangedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		OwnerID:       bk.OwnerID(),
		Status:        string(bk.Status()),
		Actor:         actor,
		Source:        string(source),
		Note:          note,
		OccurredAt:    time.Now().UTC(),
	}
	p.publish(ctx, eventType, bk.ID().String(), evt)
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, data interface{}) {
	ce, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	if err := p.producer.PublishEvent(ctx, TopicBookingEvents, key, ce); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", TopicBookingEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
