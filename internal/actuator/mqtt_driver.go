package actuator

import (
	"context"
	"fmt"
)

// Publisher is the part of the MQTT client the driver needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// MQTTDriver publishes the raw state ("ON"/"OFF") to the appliance topic.
type MQTTDriver struct {
	client Publisher
}

// NewMQTTDriver creates a driver over a connected or reconnecting client.
func NewMQTTDriver(client Publisher) *MQTTDriver {
	return &MQTTDriver{client: client}
}

func (d *MQTTDriver) Name() string { return "mqtt" }

func (d *MQTTDriver) Connected() bool { return d.client.IsConnected() }

// Switch publishes state to target. The paho client enforces its own timeout.
func (d *MQTTDriver) Switch(ctx context.Context, target string, state State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.client.IsConnected() {
		return ErrNotConnected
	}
	if err := d.client.Publish(target, []byte(state)); err != nil {
		return fmt.Errorf("mqtt %s: %w", target, err)
	}
	return nil
}
