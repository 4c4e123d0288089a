package jobs

import (
	"context"
	"time"

	"github.com/civicpulse/service-emergency/internal/application"
	"github.com/civicpulse/service-emergency/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Each sweep run gets its own deadline so a slow provider cannot pile
// runs on top of each other.
const sweepTimeout = 5 * time.Minute

// ExpirySweeper periodically reconciles bookings stuck in pending_payment
// past the configured window.
type ExpirySweeper struct {
	cron    *cron.Cron
	service *application.BookingService
	cfg     config.ExpiryConfig
	logger  *zap.Logger
}

// NewExpirySweeper creates the sweeper and registers the sweep on the
// configured cron schedule.
func NewExpirySweeper(service *application.BookingService, cfg config.ExpiryConfig, logger *zap.Logger) (*ExpirySweeper, error) {
	s := &ExpirySweeper{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(cfg.CronSpec, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the cron schedule.
func (s *ExpirySweeper) Start() {
	s.logger.Info("starting payment expiry sweeper",
		zap.String("cron", s.cfg.CronSpec),
		zap.Duration("window", s.cfg.Window),
	)
	s.cron.Start()
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *ExpirySweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("payment expiry sweeper stopped")
}

func (s *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	expired, err := s.service.ExpireStalePendingPayments(ctx, s.cfg.Window, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("payment expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("payment expiry sweep completed", zap.Int("expired", expired))
	}
}
