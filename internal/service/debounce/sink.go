package debounce

import (
	"context"
	"errors"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
	"github.com/oshokin/camera-funnel/internal/logger"
)

// Sinks fans a forwarded event out to several sinks. Every sink is called;
// their errors are joined.
type Sinks []Sink

// Handle calls every sink in order.
func (s Sinks) Handle(ctx context.Context, event trigger.Event) error {
	var errs []error

	for _, sink := range s {
		if err := sink.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// LogSink writes every forwarded event to the context logger.
type LogSink struct{}

// Handle logs the event.
func (LogSink) Handle(ctx context.Context, event trigger.Event) error {
	logger.InfoKV(
		ctx,
		"Event",
		"type", event.Type,
		"camera", event.Camera,
		"state", event.State,
		"channel", event.Channel,
	)

	return nil
}
