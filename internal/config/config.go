package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig         `yaml:"log"`
	Database        DatabaseConfig    `yaml:"database"`
	Store           StoreConfig       `yaml:"store"`
	Scheduler       SchedulerConfig   `yaml:"scheduler"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Hue             HueConfig         `yaml:"hue"`
	Actuation       ActuationConfig   `yaml:"actuation"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	API             APIConfig         `yaml:"api"`
	Appliances      []ApplianceConfig `yaml:"appliances"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level       string   `yaml:"level"`
	Colors      bool     `yaml:"colors"`
	JSON        bool     `yaml:"json"`
	PrintTimers Duration `yaml:"print_timers"` // Interval to print the timer table (0 = disabled)
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// StoreConfig selects where timer settings are persisted
type StoreConfig struct {
	Backend string `yaml:"backend"` // "file" (default) or "sqlite"
	Path    string `yaml:"path"`    // settings file for the file backend
}

// SchedulerConfig contains timer engine settings
type SchedulerConfig struct {
	Timezone string `yaml:"timezone"`
	TickSpec string `yaml:"tick_spec"` // cron expression with seconds
}

// MQTTConfig contains broker connection settings
type MQTTConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Broker         string   `yaml:"broker"`
	ClientID       string   `yaml:"client_id"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	PublishTimeout Duration `yaml:"publish_timeout"`
	TelemetryTopic string   `yaml:"telemetry_topic"`
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge string `yaml:"bridge"` // empty disables the Hue driver
	Token  string `yaml:"token"`
}

// ActuationConfig controls command delivery
type ActuationConfig struct {
	RateLimitRPS float64  `yaml:"rate_limit_rps"`
	Timeout      Duration `yaml:"timeout"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 2)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 64)
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// APIConfig contains HTTP API server settings
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Addr returns host:port
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ApplianceConfig is one catalog entry. At most one transport binding may be set;
// an appliance without one is listed but cannot have a timer.
type ApplianceConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Room      string `yaml:"room"`
	MQTTTopic string `yaml:"mqtt_topic"`
	HueLight  int    `yaml:"hue_light"`
}

// Bound reports whether the appliance has a transport binding.
func (a ApplianceConfig) Bound() bool {
	return a.MQTTTopic != "" || a.HueLight > 0
}

// DefaultAppliances is the living room catalog used when none is configured.
func DefaultAppliances() []ApplianceConfig {
	return []ApplianceConfig{
		{ID: "living_light_1", Name: "Light 1", Room: "living", MQTTTopic: "home/light/light_1"},
		{ID: "living_light_2", Name: "Light 2", Room: "living", MQTTTopic: "home/light/light_2"},
		{ID: "living_light_3", Name: "Light 3", Room: "living"},
		{ID: "living_light_4", Name: "Light 4", Room: "living"},
		{ID: "living_fan_1", Name: "Fan 1", Room: "living"},
		{ID: "living_fan_2", Name: "Fan 2", Room: "living"},
		{ID: "living_plug_1", Name: "Plug 1", Room: "living", MQTTTopic: "home/light/light_3"},
		{ID: "living_plug_2", Name: "Plug 2", Room: "living", MQTTTopic: "home/light/light_4"},
	}
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads the configuration from fs
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadOrDefault loads path from fs, falling back to Default when path is empty
// or the file does not exist.
func LoadOrDefault(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return Default(), nil
	}
	return LoadFs(fs, path)
}

// Parse expands environment variables in data, decodes it and applies defaults
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var cfg Config
	cfg.MQTT.Enabled = true
	cfg.API.Enabled = true
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./smartpanel.sqlite"
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreFile
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "timer_settings.json"
	}

	// Scheduler defaults
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Local"
	}
	if cfg.Scheduler.TickSpec == "" {
		cfg.Scheduler.TickSpec = "0 * * * * *"
	}

	// MQTT defaults
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://broker.hivemq.com:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "smartpanel"
	}
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = Duration(10 * time.Second)
	}
	if cfg.MQTT.PublishTimeout == 0 {
		cfg.MQTT.PublishTimeout = Duration(5 * time.Second)
	}
	if cfg.MQTT.TelemetryTopic == "" {
		cfg.MQTT.TelemetryTopic = "home/light/current"
	}

	// Actuation defaults
	if cfg.Actuation.RateLimitRPS == 0 {
		cfg.Actuation.RateLimitRPS = 10.0 // 10 commands per second
	}
	if cfg.Actuation.Timeout == 0 {
		cfg.Actuation.Timeout = Duration(5 * time.Second)
	}

	// Event bus defaults
	if cfg.EventBus.Workers <= 0 {
		cfg.EventBus.Workers = 2
	}
	if cfg.EventBus.QueueSize <= 0 {
		cfg.EventBus.QueueSize = 64
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// API defaults
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}

	if len(cfg.Appliances) == 0 {
		cfg.Appliances = DefaultAppliances()
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks settings that defaults cannot repair
func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Store.Backend {
	case StoreFile, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", cfg.Store.Backend))
	}

	if cfg.Scheduler.Timezone != "Local" {
		if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}

	positive := []struct {
		name  string
		value Duration
	}{
		{"mqtt.connect_timeout", cfg.MQTT.ConnectTimeout},
		{"mqtt.publish_timeout", cfg.MQTT.PublishTimeout},
		{"actuation.timeout", cfg.Actuation.Timeout},
		{"ledger.cleanup_interval", cfg.Ledger.CleanupInterval},
		{"shutdown_timeout", cfg.ShutdownTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %s", p.name, p.value.Duration()))
		}
	}
	if cfg.Log.PrintTimers < 0 {
		errs = append(errs, fmt.Errorf("log.print_timers: must not be negative, got %s", cfg.Log.PrintTimers.Duration()))
	}
	if cfg.Ledger.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("ledger.retention_days: must not be negative, got %d", cfg.Ledger.RetentionDays))
	}
	if cfg.Actuation.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("actuation.rate_limit_rps: must not be negative, got %v", cfg.Actuation.RateLimitRPS))
	}

	seen := make(map[string]bool, len(cfg.Appliances))
	for i, a := range cfg.Appliances {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("appliances[%d]: missing id", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("appliances[%d]: duplicate id %q", i, a.ID))
		}
		seen[a.ID] = true
		if a.MQTTTopic != "" && a.HueLight > 0 {
			errs = append(errs, fmt.Errorf("appliances[%d]: %s has both mqtt_topic and hue_light", i, a.ID))
		}
		if a.HueLight > 0 && cfg.Hue.Bridge == "" {
			errs = append(errs, fmt.Errorf("appliances[%d]: %s uses hue_light but hue.bridge is empty", i, a.ID))
		}
	}

	return errors.Join(errs...)
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
