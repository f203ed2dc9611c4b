package actuator

import (
	"context"
	"sync"
)

// Call is one recorded Switch or Send.
type Call struct {
	ApplianceID string // set by RecordingSender
	Target      string // set by FakeDriver
	State       State
}

// FakeDriver records switches for tests.
type FakeDriver struct {
	mu    sync.Mutex
	calls []Call

	// Err, if set, is returned by Switch after recording.
	Err error
	// Offline makes Connected report false.
	Offline bool
}

func (f *FakeDriver) Name() string { return "fake" }

func (f *FakeDriver) Connected() bool { return !f.Offline }

func (f *FakeDriver) Switch(_ context.Context, target string, state State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Target: target, State: state})
	return f.Err
}

// Calls returns a copy of the recorded switches.
func (f *FakeDriver) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// RecordingSender records Send calls for tests.
type RecordingSender struct {
	mu    sync.Mutex
	calls []Call
}

func (r *RecordingSender) Send(applianceID string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{ApplianceID: applianceID, State: state})
}

// Calls returns a copy of the recorded sends.
func (r *RecordingSender) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
