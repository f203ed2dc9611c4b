package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/api"
	"github.com/dokzlo13/smartpanel/internal/config"
)

// APIService runs the panel HTTP API.
type APIService struct {
	cfg    *config.Config
	server *api.Server
}

// NewAPIService wires the API server to the timer registry, the engine and the transports.
func NewAPIService(cfg *config.Config, s *Services) *APIService {
	if !cfg.API.Enabled {
		return &APIService{cfg: cfg}
	}

	deps := api.Deps{
		Registry: s.Registry,
		Engine:   s.Scheduler.Engine,
		Catalog:  s.Transport.Router,
		Manual:   s.Dispatcher.WithSource(actuator.SourceManual),
		Clock:    s.Clock,
		Bus:      s.Bus,
		Checks: map[string]func() bool{
			"mqtt":     s.Transport.Connected,
			"database": func() bool { return s.DB.Ping() == nil },
		},
	}
	if s.Transport.Telemetry != nil {
		deps.Telemetry = s.Transport.Telemetry
	}

	return &APIService{
		cfg:    cfg,
		server: api.NewServer(cfg.API.Addr(), deps),
	}
}

// Start runs the server in the background until ctx is cancelled.
func (s *APIService) Start(ctx context.Context, wg *sync.WaitGroup, onFatalError func(error)) {
	if s.server == nil {
		log.Info().Msg("API server is disabled")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			onFatalError(err)
		}
	}()
}
