package camera

import "time"

const (
	// DefaultMotionMessage is the MQTT payload meaning "motion started".
	DefaultMotionMessage = "ON"
	// DefaultMotionResetMessage is the MQTT payload meaning "motion ended".
	DefaultMotionResetMessage = "OFF"
)

// Config describes one camera known to the registry.
type Config struct {
	// Name is the unique camera name used by every ingress channel.
	Name string
	// RecordOnMovement enables the debounced forward to the event sink.
	RecordOnMovement bool
	// MotionTimeout is the debounce window in seconds; zero or negative disables it.
	MotionTimeout int
}

// DebounceWindow returns the debounce window as a duration, or zero when disabled.
func (c *Config) DebounceWindow() time.Duration {
	if c.MotionTimeout <= 0 {
		return 0
	}

	return time.Duration(c.MotionTimeout) * time.Second
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}

// TopicMapping binds an MQTT topic to a camera and a trigger kind.
type TopicMapping struct {
	// Camera is the camera name the topic belongs to.
	Camera string
	// Motion is true for motion topics and false for doorbell topics.
	Motion bool
	// Reset marks a dedicated motion-reset topic.
	Reset bool
	// MotionMessage is the payload meaning motion started.
	MotionMessage string
	// MotionResetMessage is the payload meaning motion ended.
	MotionResetMessage string
}

// Presence is the at-home suppression policy state.
type Presence struct {
	// AtHome is the global "somebody is at home" flag.
	AtHome bool
	// ExcludedCameras keeps triggering while AtHome is set.
	ExcludedCameras map[string]struct{}
}

// NewPresence builds a Presence from a flag and a list of excluded camera names.
func NewPresence(atHome bool, excluded ...string) *Presence {
	p := &Presence{
		AtHome:          atHome,
		ExcludedCameras: make(map[string]struct{}, len(excluded)),
	}

	for _, name := range excluded {
		p.ExcludedCameras[name] = struct{}{}
	}

	return p
}

// Suppresses reports whether triggers of the named camera must be dropped.
func (p *Presence) Suppresses(cameraName string) bool {
	if p == nil || !p.AtHome {
		return false
	}

	_, excluded := p.ExcludedCameras[cameraName]

	return !excluded
}

// Excluded returns the excluded camera names in unspecified order.
func (p *Presence) Excluded() []string {
	if p == nil {
		return nil
	}

	names := make([]string, 0, len(p.ExcludedCameras))
	for name := range p.ExcludedCameras {
		names = append(names, name)
	}

	return names
}

// Clone returns a deep copy of the presence state.
func (p *Presence) Clone() *Presence {
	if p == nil {
		return nil
	}

	return NewPresence(p.AtHome, p.Excluded()...)
}
