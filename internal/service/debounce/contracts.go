package debounce

import (
	"context"

	"github.com/oshokin/camera-funnel/internal/domain/camera"
	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

// Registry looks cameras up by name.
type Registry interface {
	Camera(name string) (*camera.Config, bool)
}

// PresencePolicy returns the current at-home policy.
type PresencePolicy interface {
	Presence(ctx context.Context) (*camera.Presence, error)
}

// Sink receives forwarded events.
type Sink interface {
	Handle(ctx context.Context, event trigger.Event) error
}

// Notifier receives every trigger that passed the presence policy.
type Notifier interface {
	Notify(ctx context.Context, t trigger.Trigger)
}

// Recorder observes resolution outcomes, typically for metrics.
type Recorder interface {
	Observe(channel trigger.Channel, outcome trigger.Outcome)
}
