package debounce

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oshokin/camera-funnel/internal/domain/camera"
	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

var errTestSink = errors.New("test sink error")

// mapRegistry is a map-backed Registry.
type mapRegistry map[string]*camera.Config

// Camera returns a copy of the named camera.
func (m mapRegistry) Camera(name string) (*camera.Config, bool) {
	c, ok := m[name]
	if !ok {
		return nil, false
	}

	return c.Clone(), true
}

// fakePresence is a settable PresencePolicy; delay simulates a slow lookup.
type fakePresence struct {
	mu       sync.Mutex
	presence *camera.Presence
	err      error
	delay    time.Duration
}

// Presence returns the configured policy after the configured delay.
func (f *fakePresence) Presence(context.Context) (*camera.Presence, error) {
	f.mu.Lock()
	p, err, delay := f.presence.Clone(), f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	return p, err
}

func (f *fakePresence) set(p *camera.Presence) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.presence = p
}

// recordingSink stores every forwarded event.
type recordingSink struct {
	mu     sync.Mutex
	events []trigger.Event
	err    error
}

// Handle records the event or returns the configured error.
// A done context fails the write the way the journal does.
func (s *recordingSink) Handle(ctx context.Context, event trigger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.events = append(s.events, event)

	return nil
}

func (s *recordingSink) all() []trigger.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]trigger.Event(nil), s.events...)
}

// recordingNotifier stores every notified trigger.
type recordingNotifier struct {
	mu       sync.Mutex
	triggers []trigger.Trigger
}

// Notify records the trigger.
func (n *recordingNotifier) Notify(_ context.Context, t trigger.Trigger) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.triggers = append(n.triggers, t)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.triggers)
}

// countingRecorder counts outcomes.
type countingRecorder struct {
	mu     sync.Mutex
	counts map[trigger.Outcome]int
}

// Observe counts one outcome.
func (c *countingRecorder) Observe(_ trigger.Channel, outcome trigger.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counts == nil {
		c.counts = make(map[trigger.Outcome]int)
	}

	c.counts[outcome]++
}

func (c *countingRecorder) get(outcome trigger.Outcome) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[outcome]
}

// fixture wires a resolver with fakes around a small camera set.
type fixture struct {
	resolver *Resolver
	presence *fakePresence
	sink     *recordingSink
	notifier *recordingNotifier
	recorder *countingRecorder
}

func newFixture() *fixture {
	f := &fixture{
		presence: &fakePresence{presence: camera.NewPresence(false)},
		sink:     new(recordingSink),
		notifier: new(recordingNotifier),
		recorder: new(countingRecorder),
	}

	registry := mapRegistry{
		"Garage":  {Name: "Garage", RecordOnMovement: true, MotionTimeout: 10},
		"Porch":   {Name: "Porch", RecordOnMovement: true, MotionTimeout: 0},
		"Attic":   {Name: "Attic", RecordOnMovement: true, MotionTimeout: -3},
		"Hallway": {Name: "Hallway", RecordOnMovement: false, MotionTimeout: 10},
	}

	f.resolver = New(
		context.Background(),
		registry,
		f.presence,
		f.sink,
		WithNotifier(f.notifier),
		WithRecorder(f.recorder),
	)

	return f
}

func motion(cameraName string, state bool) trigger.Trigger {
	return trigger.Trigger{Type: trigger.Motion, Camera: cameraName, State: state, Channel: trigger.ChannelHTTP}
}
