package app

import (
	"context"
	"strconv"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartpanel/internal/actuator"
	"github.com/dokzlo13/smartpanel/internal/config"
	"github.com/dokzlo13/smartpanel/internal/eventbus"
	"github.com/dokzlo13/smartpanel/internal/mqtt"
	"github.com/dokzlo13/smartpanel/internal/telemetry"
)

// TransportService owns the broker and bridge connections and the appliance router.
type TransportService struct {
	cfg *config.Config

	MQTT      *mqtt.Client        // nil when mqtt.enabled is false
	Bridge    *huego.Bridge       // nil when no bridge is configured
	Telemetry *telemetry.Receiver // nil without MQTT
	Router    *actuator.Router
}

// NewTransportService creates the transports and binds every configured appliance.
// Nothing connects until Start.
func NewTransportService(cfg *config.Config, bus *eventbus.Bus) *TransportService {
	s := &TransportService{cfg: cfg}

	var mqttDriver, hueDriver actuator.Driver

	if cfg.MQTT.Enabled {
		s.MQTT = mqtt.NewClient(mqtt.Options{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			ConnectTimeout: cfg.MQTT.ConnectTimeout.Duration(),
			PublishTimeout: cfg.MQTT.PublishTimeout.Duration(),
		})
		mqttDriver = actuator.NewMQTTDriver(s.MQTT)
		s.Telemetry = telemetry.NewReceiver(cfg.MQTT.TelemetryTopic, bus)
	}

	if cfg.Hue.Bridge != "" {
		s.Bridge = huego.New(cfg.Hue.Bridge, cfg.Hue.Token)
		hueDriver = actuator.NewHueDriver(s.Bridge)
	}

	s.Router = BuildRouter(cfg.Appliances, mqttDriver, hueDriver)
	return s
}

// BuildRouter registers each appliance against the driver its binding names.
// A binding whose transport is unavailable leaves the appliance unschedulable.
func BuildRouter(appliances []config.ApplianceConfig, mqttDriver, hueDriver actuator.Driver) *actuator.Router {
	router := actuator.NewRouter()

	for _, a := range appliances {
		appliance := actuator.Appliance{ID: a.ID, Name: a.Name, Room: a.Room}

		switch {
		case a.MQTTTopic != "" && mqttDriver != nil:
			router.Register(appliance, mqttDriver, a.MQTTTopic)
		case a.HueLight > 0 && hueDriver != nil:
			router.Register(appliance, hueDriver, strconv.Itoa(a.HueLight))
		default:
			if a.Bound() {
				log.Warn().Str("appliance", a.ID).Msg("Appliance transport disabled, timers unavailable")
			}
			router.Register(appliance, nil, "")
		}
	}

	return router
}

// Start connects to the broker and subscribes to telemetry.
// An unreachable broker is not fatal; the client keeps retrying in the background.
func (s *TransportService) Start(ctx context.Context) error {
	if s.MQTT == nil {
		log.Info().Msg("MQTT disabled")
		return nil
	}

	if err := s.MQTT.Connect(ctx); err != nil {
		log.Error().Err(err).Str("broker", s.cfg.MQTT.Broker).Msg("MQTT connect failed, retrying in background")
	}
	s.Telemetry.Start(s.MQTT)

	log.Info().
		Str("broker", s.cfg.MQTT.Broker).
		Str("telemetry_topic", s.cfg.MQTT.TelemetryTopic).
		Msg("MQTT transport started")
	return nil
}

// Connected reports whether the broker connection is up. Without MQTT it is always true.
func (s *TransportService) Connected() bool {
	if s.MQTT == nil {
		return true
	}
	return s.MQTT.IsConnected()
}

// Close disconnects from the broker.
func (s *TransportService) Close() {
	if s.MQTT != nil {
		if err := s.MQTT.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close MQTT client")
		}
	}
}
