package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/scheduler"
	"github.com/dokzlo13/smartpanel/internal/timer"
)

// Error codes
const (
	errNotFound    = "not_found"
	errBadRequest  = "bad_request"
	errValidation  = "validation_error"
	errUnavailable = "timer_unavailable"
	errInternal    = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	// Available is false when the appliance cannot have a timer.
	Available *bool `json:"available,omitempty"`
}

// TimerView is the API form of a timer entry.
type TimerView struct {
	ApplianceID string `json:"appliance_id"`
	Name        string `json:"name"`
	timer.Settings
	OverrideDisabled bool   `json:"override_disabled"`
	NextAction       string `json:"next_action,omitempty"`
	NextAt           string `json:"next_at,omitempty"`
	SecondsUntil     *int   `json:"seconds_until,omitempty"`
	Status           string `json:"status"`
	Countdown        string `json:"countdown,omitempty"`
}

// ApplianceView is the API form of a catalog entry.
type ApplianceView struct {
	actuator.Appliance
	Schedulable bool       `json:"schedulable"`
	Timer       *TimerView `json:"timer,omitempty"`
}

// StateRequest is the body of a manual toggle.
type StateRequest struct {
	State string `json:"state"`
}

// StateResponse reports a manual toggle.
type StateResponse struct {
	ApplianceID   string `json:"appliance_id"`
	State         string `json:"state"`
	TimerDisabled bool   `json:"timer_disabled"`
	Status        string `json:"status,omitempty"`
}

func newTimerView(e timer.Entry, now time.Time) TimerView {
	v := TimerView{
		ApplianceID:      e.ApplianceID,
		Name:             e.Name,
		Settings:         e.Settings(),
		OverrideDisabled: e.OverrideDisabled,
		Status:           e.Describe(now),
		Countdown:        e.Countdown(now),
	}
	if e.Enabled {
		action, at := e.NextAction(now)
		secs := e.SecondsUntil(now)
		v.NextAction = string(action)
		v.NextAt = at.String()
		v.SecondsUntil = &secs
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]bool, len(s.deps.Checks))
	healthy := true
	for name, check := range s.deps.Checks {
		ok := check()
		checks[name] = ok
		healthy = healthy && ok
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"checks":     checks,
		"ws_clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleListAppliances(w http.ResponseWriter, r *http.Request) {
	now := s.deps.Clock.Now()

	appliances := s.deps.Catalog.Appliances()
	out := make([]ApplianceView, 0, len(appliances))
	for _, a := range appliances {
		v := ApplianceView{Appliance: a, Schedulable: s.deps.Catalog.Schedulable(a.ID)}
		if e, ok := s.deps.Registry.Get(a.ID); ok {
			tv := newTimerView(e, now)
			v.Timer = &tv
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request) {
	now := s.deps.Clock.Now()

	entries := s.deps.Registry.Entries()
	out := make([]TimerView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newTimerView(e, now))
	}
	writeJSON(w, http.StatusOK, out)
}

// lookup resolves the {id} path variable to a known appliance, writing 404 if unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (actuator.Appliance, bool) {
	id := mux.Vars(r)["id"]
	a, ok := s.deps.Catalog.Appliance(id)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound, "unknown appliance "+id)
		return actuator.Appliance{}, false
	}
	return a, true
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}

	entry, err := s.deps.Registry.GetOrCreate(a.ID, a.Name)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimerView(entry, s.deps.Clock.Now()))
}

func (s *Server) handleSaveTimer(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}

	settings := timer.DefaultSettings()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if _, err := s.deps.Registry.Save(a.ID, settings); err != nil {
		s.writeRegistryError(w, err)
		return
	}

	// a timer saved during its own minute fires right away
	if s.deps.Engine != nil {
		s.deps.Engine.Tick()
	}

	entry, _ := s.deps.Registry.Get(a.ID)
	writeJSON(w, http.StatusOK, newTimerView(entry, s.deps.Clock.Now()))
}

func (s *Server) handleCancelTimer(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}

	entry, err := s.deps.Registry.Cancel(a.ID)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimerView(entry, s.deps.Clock.Now()))
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	state, err := actuator.ParseState(req.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}
	if !s.deps.Catalog.Schedulable(a.ID) {
		writeError(w, http.StatusConflict, errUnavailable, "appliance has no transport")
		return
	}

	s.deps.Manual.Send(a.ID, state)
	disabled := s.deps.Registry.DisableForOverride(a.ID)

	resp := StateResponse{ApplianceID: a.ID, State: string(state), TimerDisabled: disabled}
	if disabled {
		resp.Status = timer.StatusOverride
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if s.deps.Telemetry == nil {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	reading, ok := s.deps.Telemetry.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "reading": reading})
}

func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrUnschedulable):
		available := false
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     errUnavailable,
			Message:   "timer unavailable",
			Available: &available,
		})
	case errors.Is(err, scheduler.ErrUnknownEntry):
		writeError(w, http.StatusNotFound, errNotFound, err.Error())
	default:
		// Activate only fails on invalid settings
		writeError(w, http.StatusBadRequest, errValidation, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
