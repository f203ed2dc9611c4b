// Package api serves the panel front-end: timer CRUD, manual appliance control,
// live telemetry and a WebSocket stream of changes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/eventbus"
	"github.com/dokzlo13/smartpanel/internal/scheduler"
	"github.com/dokzlo13/smartpanel/internal/telemetry"
)

// Catalog lists appliances and their schedulability. *actuator.Router satisfies it.
type Catalog interface {
	Appliances() []actuator.Appliance
	Appliance(applianceID string) (actuator.Appliance, bool)
	Schedulable(applianceID string) bool
}

// Ticker runs an immediate timer evaluation. *scheduler.Engine satisfies it.
type Ticker interface {
	Tick() int
}

// TelemetrySource returns the latest sensor reading. *telemetry.Receiver satisfies it.
type TelemetrySource interface {
	Latest() (telemetry.Reading, bool)
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Registry  *scheduler.Registry
	Engine    Ticker
	Catalog   Catalog
	Manual    actuator.Sender // commands from the panel toggles
	Telemetry TelemetrySource // optional
	Clock     scheduler.Clock
	Bus       *eventbus.Bus // optional; feeds the WebSocket stream
	Checks    map[string]func() bool
}

// Server is the HTTP API server.
type Server struct {
	addr       string
	deps       Deps
	hub        *Hub
	httpServer *http.Server
}

// NewServer creates a server listening on addr.
func NewServer(addr string, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = scheduler.SystemClock{}
	}
	return &Server{
		addr: addr,
		deps: deps,
		hub:  NewHub(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(Logging)
	r.Use(Recovery)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	api.HandleFunc("/appliances", s.handleListAppliances).Methods(http.MethodGet)
	api.HandleFunc("/appliances/{id}/state", s.handleSetState).Methods(http.MethodPost)

	api.HandleFunc("/timers", s.handleListTimers).Methods(http.MethodGet)
	api.HandleFunc("/timers/{id}", s.handleGetTimer).Methods(http.MethodGet)
	api.HandleFunc("/timers/{id}", s.handleSaveTimer).Methods(http.MethodPut)
	api.HandleFunc("/timers/{id}", s.handleCancelTimer).Methods(http.MethodDelete)

	api.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodGet)

	return r
}

// Run starts the server and the WebSocket hub. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	go s.hub.Run(ctx)
	if readings := s.forwardEvents(); readings != nil {
		defer readings.Close()
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// forwardEvents relays timer changes directly and telemetry at most twice per second.
// The returned collector must be closed when the server stops.
func (s *Server) forwardEvents() *LatestCollector {
	if s.deps.Bus == nil {
		return nil
	}

	readings := NewLatestCollector(500*time.Millisecond, func(e eventbus.Event) {
		s.hub.BroadcastEvent(e)
	})

	s.deps.Bus.Subscribe(eventbus.EventTypeTimer, s.hub.BroadcastEvent)
	s.deps.Bus.Subscribe(eventbus.EventTypeTelemetry, readings.Add)
	return readings
}
