package actuator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amimof/huego"
)

// LightSetter is the part of *huego.Bridge the driver needs.
type LightSetter interface {
	SetLightStateContext(ctx context.Context, id int, state huego.State) (*huego.Response, error)
}

// HueDriver switches Hue lights addressed by their numeric bridge id.
type HueDriver struct {
	bridge LightSetter
}

// NewHueDriver creates a driver. Pass huego.New(address, user).
func NewHueDriver(bridge LightSetter) *HueDriver {
	return &HueDriver{bridge: bridge}
}

func (d *HueDriver) Name() string { return "hue" }

func (d *HueDriver) Connected() bool { return d.bridge != nil }

// Switch sets the light's on state. target is the light id as a decimal string.
func (d *HueDriver) Switch(ctx context.Context, target string, state State) error {
	if d.bridge == nil {
		return ErrNotConnected
	}
	id, err := strconv.Atoi(target)
	if err != nil {
		return fmt.Errorf("hue light id %q: %w", target, err)
	}

	if _, err := d.bridge.SetLightStateContext(ctx, id, huego.State{On: state == On}); err != nil {
		return fmt.Errorf("hue light %d: %w", id, err)
	}
	return nil
}
