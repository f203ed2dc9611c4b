package app

import (
	"context"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/config"
	"github.com/dokzlo13/smartpanel/internal/db"
	"github.com/dokzlo13/smartpanel/internal/ledger"
	"github.com/dokzlo13/smartpanel/internal/scheduler"
	"github.com/dokzlo13/smartpanel/internal/store"
	"github.com/dokzlo13/smartpanel/internal/timer"
)

// ApplianceInfo describes one configured appliance for offline listing.
type ApplianceInfo struct {
	actuator.Appliance
	Transport   string
	Schedulable bool
}

// Inspector reads persisted state without starting any service.
// The database is opened only when a query needs it.
type Inspector struct {
	cfg *config.Config
	db  *db.DB
}

// NewInspector creates an Inspector for cfg.
func NewInspector(cfg *config.Config) *Inspector {
	return &Inspector{cfg: cfg}
}

func (i *Inspector) database() (*db.DB, error) {
	if i.db != nil {
		return i.db, nil
	}
	database, err := db.Open(i.cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	i.db = database
	return database, nil
}

// Appliances lists the configured appliances with the transport that would serve them.
func (i *Inspector) Appliances() []ApplianceInfo {
	router := i.router()

	infos := make([]ApplianceInfo, 0, len(i.cfg.Appliances))
	for _, a := range router.Appliances() {
		info := ApplianceInfo{Appliance: a, Transport: "-"}
		if driver, target, ok := router.Route(a.ID); ok {
			info.Transport = driver.Name() + " " + target
			info.Schedulable = true
		}
		infos = append(infos, info)
	}
	return infos
}

// router binds the catalog the way the daemon does, with offline drivers
// standing in for the configured transports.
func (i *Inspector) router() *actuator.Router {
	var mqttDriver, hueDriver actuator.Driver
	if i.cfg.MQTT.Enabled {
		mqttDriver = offlineDriver("mqtt")
	}
	if i.cfg.Hue.Bridge != "" {
		hueDriver = offlineDriver("hue")
	}
	return BuildRouter(i.cfg.Appliances, mqttDriver, hueDriver)
}

// Timers restores the persisted timers the way the daemon would at startup.
func (i *Inspector) Timers() ([]timer.Entry, error) {
	st, err := i.store()
	if err != nil {
		return nil, err
	}

	registry := scheduler.NewRegistry(st, i.router(), nil)
	if err := registry.Restore(); err != nil {
		return nil, err
	}
	return registry.Entries(), nil
}

// History returns recent ledger entries, newest first. Empty applianceID or
// eventType match everything.
func (i *Inspector) History(applianceID string, eventType ledger.EventType, limit int) ([]*ledger.Entry, error) {
	database, err := i.database()
	if err != nil {
		return nil, err
	}
	l := ledger.New(database.DB)
	if eventType == "" {
		return l.Recent(applianceID, limit)
	}

	entries, err := l.GetByType(eventType, limit)
	if err != nil || applianceID == "" {
		return entries, err
	}
	filtered := entries[:0]
	for _, e := range entries {
		if e.ApplianceID == applianceID {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Close releases the database if it was opened.
func (i *Inspector) Close() error {
	if i.db == nil {
		return nil
	}
	return i.db.Close()
}

func (i *Inspector) store() (store.Store, error) {
	if i.cfg.Store.Backend == config.StoreFile {
		return store.NewOSFileStore(i.cfg.Store.Path), nil
	}
	database, err := i.database()
	if err != nil {
		return nil, err
	}
	return newStore(i.cfg, database)
}

// offlineDriver names a transport without connecting to it.
type offlineDriver string

func (d offlineDriver) Name() string { return string(d) }

func (d offlineDriver) Connected() bool { return false }

func (d offlineDriver) Switch(context.Context, string, actuator.State) error {
	return actuator.ErrNotConnected
}
