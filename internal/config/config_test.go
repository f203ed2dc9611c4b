package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"log level", cfg.Log.Level, "debug"},
		{"database path", cfg.Database.Path, "./smartpanel.sqlite"},
		{"store backend", cfg.Store.Backend, StoreFile},
		{"store path", cfg.Store.Path, "timer_settings.json"},
		{"tick spec", cfg.Scheduler.TickSpec, "0 * * * * *"},
		{"broker", cfg.MQTT.Broker, "tcp://broker.hivemq.com:1883"},
		{"telemetry topic", cfg.MQTT.TelemetryTopic, "home/light/current"},
		{"rate limit", cfg.Actuation.RateLimitRPS, 10.0},
		{"api addr", cfg.API.Addr(), "0.0.0.0:8080"},
		{"retention", cfg.Ledger.RetentionDays, 30},
		{"shutdown", cfg.ShutdownTimeout.Duration(), 5 * time.Second},
		{"appliances", len(cfg.Appliances), 8},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	bound := map[string]string{}
	for _, a := range DefaultAppliances() {
		if a.Bound() {
			bound[a.ID] = a.MQTTTopic
		}
	}

	want := map[string]string{
		"living_light_1": "home/light/light_1",
		"living_light_2": "home/light/light_2",
		"living_plug_1":  "home/light/light_3",
		"living_plug_2":  "home/light/light_4",
	}
	if len(bound) != len(want) {
		t.Fatalf("bound appliances = %v, want %v", bound, want)
	}
	for id, topic := range want {
		if bound[id] != topic {
			t.Errorf("%s topic = %q, want %q", id, bound[id], topic)
		}
	}
}

func TestLoadFs(t *testing.T) {
	t.Setenv("PANEL_BROKER", "tcp://10.0.0.2:1883")

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/etc/smartpanel.yaml", []byte(`
mqtt:
  enabled: true
  broker: ${PANEL_BROKER}
  client_id: ${PANEL_CLIENT:kitchen-panel}
  connect_timeout: 3s
store:
  backend: sqlite
scheduler:
  timezone: UTC
appliances:
  - id: kitchen_light
    name: Kitchen
    mqtt_topic: home/kitchen/light
  - id: kitchen_fan
    name: Fan
`), 0o644)

	cfg, err := LoadFs(fs, "/etc/smartpanel.yaml")
	if err != nil {
		t.Fatalf("LoadFs() error = %v", err)
	}
	if cfg.MQTT.Broker != "tcp://10.0.0.2:1883" {
		t.Errorf("Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.ClientID != "kitchen-panel" {
		t.Errorf("ClientID = %q, want default from expression", cfg.MQTT.ClientID)
	}
	if cfg.MQTT.ConnectTimeout.Duration() != 3*time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.MQTT.ConnectTimeout.Duration())
	}
	if cfg.Store.Backend != StoreSQLite {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}
	if len(cfg.Appliances) != 2 || !cfg.Appliances[0].Bound() || cfg.Appliances[1].Bound() {
		t.Errorf("Appliances = %+v", cfg.Appliances)
	}

	if _, err := LoadFs(fs, "/missing.yaml"); err == nil {
		t.Error("LoadFs() of missing file error = nil")
	}
}

func TestLoadOrDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/panel.yaml", []byte("api:\n  port: 9090\n"), 0o644)

	tests := []struct {
		name     string
		path     string
		wantPort int
		wantMQTT bool
	}{
		{"empty path", "", 8080, true},
		{"missing file", "/absent.yaml", 8080, true},
		{"file present", "/panel.yaml", 9090, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadOrDefault(fs, tt.path)
			if err != nil {
				t.Fatalf("LoadOrDefault() error = %v", err)
			}
			if cfg.API.Port != tt.wantPort {
				t.Errorf("API.Port = %d, want %d", cfg.API.Port, tt.wantPort)
			}
			if cfg.MQTT.Enabled != tt.wantMQTT {
				t.Errorf("MQTT.Enabled = %v, want %v", cfg.MQTT.Enabled, tt.wantMQTT)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown backend", "store:\n  backend: redis\n", "unknown backend"},
		{"bad timezone", "scheduler:\n  timezone: Mars/Olympus\n", "scheduler.timezone"},
		{"duplicate id", "appliances:\n  - id: a\n  - id: a\n", "duplicate id"},
		{"missing id", "appliances:\n  - name: x\n", "missing id"},
		{"two bindings", "hue:\n  bridge: 10.0.0.3\nappliances:\n  - id: a\n    mqtt_topic: t\n    hue_light: 1\n", "both"},
		{"hue without bridge", "appliances:\n  - id: a\n    hue_light: 1\n", "hue.bridge"},
		{"bad duration", "shutdown_timeout: soon\n", "duration"},
		{"negative cleanup interval", "ledger:\n  cleanup_interval: -1h\n", "ledger.cleanup_interval"},
		{"negative actuation timeout", "actuation:\n  timeout: -5s\n", "actuation.timeout"},
		{"negative print interval", "log:\n  print_timers: -1m\n", "log.print_timers"},
		{"negative retention", "ledger:\n  retention_days: -3\n", "ledger.retention_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PANEL_SET", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"${PANEL_SET}", "value"},
		{"${PANEL_UNSET:fallback}", "fallback"},
		{"${PANEL_UNSET}", ""},
		{"${PANEL_UNSET:tcp://host:1883}", "tcp://host:1883"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := expandEnvVars(tt.in); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
