package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/config"
	"github.com/dokzlo13/smartpanel/internal/ledger"
	"github.com/dokzlo13/smartpanel/internal/scheduler"
)

// SchedulerService wraps the timer engine and related periodic tasks.
type SchedulerService struct {
	cfg      *config.Config
	Engine   *scheduler.Engine
	registry *scheduler.Registry
	clock    scheduler.Clock
	ledger   *ledger.Ledger
}

// NewSchedulerService creates a new SchedulerService. Timer commands are
// delivered through the dispatcher tagged with the timer source.
func NewSchedulerService(
	cfg *config.Config,
	registry *scheduler.Registry,
	dispatcher *actuator.Dispatcher,
	clock scheduler.Clock,
	l *ledger.Ledger,
) *SchedulerService {
	return &SchedulerService{
		cfg:      cfg,
		Engine:   scheduler.NewEngine(registry, dispatcher.WithSource(actuator.SourceTimer), clock, cfg.Scheduler.TickSpec),
		registry: registry,
		clock:    clock,
		ledger:   l,
	}
}

// Start restores persisted timers, then begins ticking.
func (s *SchedulerService) Start(ctx context.Context, wg *sync.WaitGroup, onFatalError func(error)) {
	if err := s.registry.Restore(); err != nil {
		log.Warn().Err(err).Msg("Timer settings unreadable, starting with defaults")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Engine.Run(ctx); err != nil {
			onFatalError(err)
		}
	}()

	go s.runLedgerCleanup(ctx)

	if interval := s.cfg.Log.PrintTimers.Duration(); interval > 0 {
		go s.runTimerPrinter(ctx, interval)
	}
}

// runLedgerCleanup periodically cleans up old ledger entries.
func (s *SchedulerService) runLedgerCleanup(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// runTimerPrinter logs the timer table on an interval.
func (s *SchedulerService) runTimerPrinter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Info().Msg("Timers:\n" + scheduler.FormatTimers(s.registry.Entries(), s.clock.Now()))
		}
	}
}
