package normalize

import (
	"fmt"

	"github.com/oshokin/camera-funnel/internal/domain/camera"
	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

// TopicLookup resolves an exact MQTT topic to its mapping.
type TopicLookup interface {
	Topic(topic string) (camera.TopicMapping, bool)
}

// MQTT normalizes a (topic, payload) pair using the topic table.
func MQTT(topics TopicLookup, topic string, payload []byte) (trigger.Trigger, error) {
	mapping, ok := topics.Topic(topic)
	if !ok {
		return trigger.Trigger{}, fmt.Errorf("%w: %s", ErrUnmappedTopic, topic)
	}

	result := trigger.Trigger{
		Type:    trigger.Doorbell,
		Camera:  mapping.Camera,
		State:   true,
		Channel: trigger.ChannelMQTT,
	}

	if !mapping.Motion {
		return result, nil
	}

	result.Type = trigger.Motion
	message := string(payload)

	switch {
	case mapping.Reset && message == mapping.MotionResetMessage:
		result.State = false
	case mapping.Reset:
		return trigger.Trigger{}, unresolved(topic, message)
	case message == mapping.MotionMessage:
		result.State = true
	case message == mapping.MotionResetMessage:
		result.State = false
	default:
		return trigger.Trigger{}, unresolved(topic, message)
	}

	return result, nil
}

func unresolved(topic, message string) error {
	return fmt.Errorf("%w: topic %s, message %q", ErrUnresolvedState, topic, message)
}
