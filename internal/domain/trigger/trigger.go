package trigger

import (
	"fmt"
	"time"
)

// Type is the canonical trigger kind.
type Type string

const (
	// Motion is a motion start or, with State false, a motion reset.
	Motion Type = "motion"
	// Doorbell is a doorbell press; it is always a positive trigger.
	Doorbell Type = "doorbell"
)

// Channel names the ingress channel a trigger arrived on.
type Channel string

// Ingress channels.
const (
	ChannelHTTP Channel = "http"
	ChannelMQTT Channel = "mqtt"
	ChannelSMTP Channel = "smtp"
)

// HeaderChannel marks an HTTP trigger relayed on behalf of another channel.
const HeaderChannel = "X-Trigger-Channel"

// Trigger is a normalized signal: (type, camera, state) plus its origin.
type Trigger struct {
	// Type is the canonical trigger kind.
	Type Type
	// Camera is the camera name the trigger refers to.
	Camera string
	// State is true for a positive trigger and false for a reset.
	State bool
	// Channel is the ingress channel that produced the trigger.
	Channel Channel
}

// String renders the trigger for log lines.
func (t Trigger) String() string {
	return fmt.Sprintf("%s/%s state=%t via %s", t.Type, t.Camera, t.State, t.Channel)
}

// Event is what the event sink receives for a forwarded trigger.
type Event struct {
	Type      Type
	Camera    string
	State     bool
	Channel   Channel
	CreatedAt time.Time
}

// NewEvent stamps a trigger as a forwarded event.
func NewEvent(t Trigger, at time.Time) Event {
	return Event{
		Type:      t.Type,
		Camera:    t.Camera,
		State:     t.State,
		Channel:   t.Channel,
		CreatedAt: at,
	}
}
