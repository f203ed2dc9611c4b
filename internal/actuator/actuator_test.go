package actuator

import (
	"context"
	"errors"
	"testing"

	"github.com/amimof/huego"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		in      string
		want    State
		wantErr bool
	}{
		{"ON", On, false},
		{"off", Off, false},
		{" On ", On, false},
		{"toggle", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseState(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseState(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseState(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRouter(t *testing.T) {
	driver := &FakeDriver{}
	r := NewRouter()
	r.Register(Appliance{ID: "living_light_1", Name: "Light 1", Room: "living"}, driver, "home/light/light_1")
	r.Register(Appliance{ID: "living_fan_1", Name: "Fan 1", Room: "living"}, nil, "")
	r.Register(Appliance{ID: "living_plug_1"}, driver, "home/light/light_3")

	if !r.Schedulable("living_light_1") {
		t.Error("Schedulable(living_light_1) = false, want true")
	}
	if r.Schedulable("living_fan_1") {
		t.Error("Schedulable(living_fan_1) = true, want false")
	}
	if r.Schedulable("unknown") {
		t.Error("Schedulable(unknown) = true, want false")
	}

	_, target, ok := r.Route("living_light_1")
	if !ok || target != "home/light/light_1" {
		t.Errorf("Route(living_light_1) = %q, %v", target, ok)
	}

	if got := r.DisplayName("living_plug_1"); got != "living_plug_1" {
		t.Errorf("DisplayName() without name = %q, want id", got)
	}
	if got := r.DisplayName("living_fan_1"); got != "Fan 1" {
		t.Errorf("DisplayName(living_fan_1) = %q, want Fan 1", got)
	}

	// re-registering keeps catalog position
	r.Register(Appliance{ID: "living_light_1", Name: "Ceiling"}, driver, "home/light/light_1")
	all := r.Appliances()
	if len(all) != 3 || all[0].ID != "living_light_1" || all[0].Name != "Ceiling" {
		t.Errorf("Appliances() = %+v", all)
	}
}

type fakePublisher struct {
	connected bool
	err       error
	topic     string
	payload   string
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.topic, f.payload = topic, string(payload)
	return f.err
}

func (f *fakePublisher) IsConnected() bool { return f.connected }

func TestMQTTDriver(t *testing.T) {
	pub := &fakePublisher{connected: true}
	d := NewMQTTDriver(pub)

	if err := d.Switch(context.Background(), "home/light/light_2", Off); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}
	if pub.topic != "home/light/light_2" || pub.payload != "OFF" {
		t.Errorf("published %q to %q, want OFF to home/light/light_2", pub.payload, pub.topic)
	}

	pub.connected = false
	if err := d.Switch(context.Background(), "home/light/light_2", On); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Switch() while disconnected error = %v, want ErrNotConnected", err)
	}

	pub.connected = true
	pub.err = errors.New("broker gone")
	if err := d.Switch(context.Background(), "home/light/light_2", On); err == nil {
		t.Error("Switch() error = nil, want publish error")
	}
}

type fakeBridge struct {
	id    int
	state huego.State
	err   error
}

func (f *fakeBridge) SetLightStateContext(_ context.Context, id int, state huego.State) (*huego.Response, error) {
	f.id, f.state = id, state
	return &huego.Response{}, f.err
}

func TestHueDriver(t *testing.T) {
	bridge := &fakeBridge{}
	d := NewHueDriver(bridge)

	if err := d.Switch(context.Background(), "7", On); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}
	if bridge.id != 7 || !bridge.state.On {
		t.Errorf("bridge got id=%d on=%v, want 7 true", bridge.id, bridge.state.On)
	}

	if err := d.Switch(context.Background(), "7", Off); err != nil {
		t.Fatal(err)
	}
	if bridge.state.On {
		t.Error("state.On = true after Off")
	}

	if err := d.Switch(context.Background(), "lamp", On); err == nil {
		t.Error("Switch() with non-numeric id error = nil")
	}
}
