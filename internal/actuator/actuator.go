// Package actuator delivers ON/OFF commands to appliances over their configured transport.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// State is the commanded appliance state.
type State string

const (
	On  State = "ON"
	Off State = "OFF"
)

// ParseState accepts "ON"/"OFF" in any case.
func ParseState(s string) (State, error) {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case On:
		return On, nil
	case Off:
		return Off, nil
	default:
		return "", fmt.Errorf("invalid state %q, want ON or OFF", s)
	}
}

// ErrNotConnected is returned by a driver whose transport link is down.
var ErrNotConnected = errors.New("transport not connected")

// Sender emits a command for an appliance. Delivery is best-effort: Send never
// blocks and never reports failure to the caller.
type Sender interface {
	Send(applianceID string, state State)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(applianceID string, state State)

// Send calls f.
func (f SenderFunc) Send(applianceID string, state State) { f(applianceID, state) }

// Driver switches a transport-specific target.
type Driver interface {
	Name() string
	Connected() bool
	Switch(ctx context.Context, target string, state State) error
}
