package actuator

import "sync"

// Appliance is an entry of the panel's appliance catalog.
type Appliance struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Room string `json:"room,omitempty"`
}

type binding struct {
	appliance Appliance
	driver    Driver
	target    string
}

// Router maps appliance ids to a driver and target. An appliance registered
// without a driver is listed but cannot be actuated or scheduled.
type Router struct {
	mu       sync.RWMutex
	bindings map[string]binding
	order    []string
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{bindings: make(map[string]binding)}
}

// Register adds or replaces an appliance. driver may be nil.
func (r *Router) Register(appliance Appliance, driver Driver, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bindings[appliance.ID]; !exists {
		r.order = append(r.order, appliance.ID)
	}
	if appliance.Name == "" {
		appliance.Name = appliance.ID
	}
	r.bindings[appliance.ID] = binding{appliance: appliance, driver: driver, target: target}
}

// Route returns the driver and target for an appliance.
func (r *Router) Route(applianceID string) (Driver, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[applianceID]
	if !ok || b.driver == nil {
		return nil, "", false
	}
	return b.driver, b.target, true
}

// Schedulable reports whether the appliance has a transport binding.
func (r *Router) Schedulable(applianceID string) bool {
	_, _, ok := r.Route(applianceID)
	return ok
}

// DisplayName returns the catalog name, or the id for unknown appliances.
func (r *Router) DisplayName(applianceID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.bindings[applianceID]; ok {
		return b.appliance.Name
	}
	return applianceID
}

// Appliance returns a catalog entry.
func (r *Router) Appliance(applianceID string) (Appliance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[applianceID]
	return b.appliance, ok
}

// Appliances returns the catalog in registration order.
func (r *Router) Appliances() []Appliance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appliance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.bindings[id].appliance)
	}
	return out
}
