package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/config"
	"github.com/dokzlo13/smartpanel/internal/db"
	"github.com/dokzlo13/smartpanel/internal/eventbus"
	"github.com/dokzlo13/smartpanel/internal/ledger"
	"github.com/dokzlo13/smartpanel/internal/scheduler"
	"github.com/dokzlo13/smartpanel/internal/store"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus
	Store  store.Store
	Clock  scheduler.Clock

	// Timers and delivery
	Transport  *TransportService
	Dispatcher *actuator.Dispatcher
	Registry   *scheduler.Registry

	// High-level services
	Scheduler *SchedulerService
	Events    *EventService
	API       *APIService

	wg sync.WaitGroup
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	// Initialize ledger
	s.Ledger = ledger.New(database.DB)

	// Initialize event bus
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.Workers, cfg.EventBus.QueueSize)

	s.Store, err = newStore(cfg, database)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Clock, err = scheduler.NewSystemClock(cfg.Scheduler.Timezone)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}

	// Transports and appliance routing
	s.Transport = NewTransportService(cfg, s.Bus)
	s.Dispatcher = actuator.NewDispatcher(
		s.Transport.Router,
		s.Bus,
		s.Ledger,
		cfg.Actuation.RateLimitRPS,
		cfg.Actuation.Timeout.Duration(),
	)

	s.Registry = scheduler.NewRegistry(s.Store, s.Transport.Router, s.Bus)
	s.Scheduler = NewSchedulerService(cfg, s.Registry, s.Dispatcher, s.Clock, s.Ledger)
	s.Events = NewEventService(s.Bus, s.Ledger)
	s.API = NewAPIService(cfg, s)

	return s, nil
}

// newStore selects the timer settings backend.
func newStore(cfg *config.Config, database *db.DB) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreFile:
		return store.NewOSFileStore(cfg.Store.Path), nil
	case config.StoreSQLite:
		return store.NewSQLiteStore(database.DB), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a background service cannot continue.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Subscribers first so no event published during startup is lost
	s.Events.Start()
	s.Dispatcher.Start(ctx)

	if err := s.Transport.Start(ctx); err != nil {
		return err
	}

	s.Scheduler.Start(ctx, &s.wg, onFatalError)
	s.API.Start(ctx, &s.wg, onFatalError)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.wg.Wait()
	s.Close()
	return nil
}

// Close releases all resources. The bus is drained before the database closes
// so pending ledger writes can finish.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.Transport != nil {
		s.Transport.Close()
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
