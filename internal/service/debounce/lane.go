package debounce

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/camera-funnel/internal/domain/camera"
	"github.com/oshokin/camera-funnel/internal/domain/trigger"
	"github.com/oshokin/camera-funnel/internal/logger"
)

// request is one trigger waiting for its lane.
type request struct {
	ctx     context.Context //nolint:containedctx // Carries the caller's values into the lane.
	trigger trigger.Trigger
	reply   chan trigger.Result
}

// lane serializes one camera's triggers and owns its debounce timer.
// No field below camera is touched outside run.
type lane struct {
	resolver *Resolver
	camera   *camera.Config
	requests chan request
	queries  chan chan time.Time

	// timer is nil while IDLE and running while ARMED.
	timer    *time.Timer
	deadline time.Time
}

func (l *lane) run(ctx context.Context) {
	defer l.disarm()

	for {
		var expired <-chan time.Time
		if l.timer != nil {
			expired = l.timer.C
		}

		select {
		case <-ctx.Done():
			return
		case <-expired:
			l.timer = nil
			l.deadline = time.Time{}

			logger.DebugKV(ctx, "Debounce window expired")
		case req := <-l.requests:
			// A caller that stops waiting must not leave the sink and the timer out of step.
			reqCtx := logger.WithKV(context.WithoutCancel(req.ctx), "camera", l.camera.Name)
			res := l.resolve(reqCtx, req.trigger)
			l.resolver.recorder.Observe(req.trigger.Channel, res.Outcome)
			req.reply <- res
		case reply := <-l.queries:
			reply <- l.deadline
		}
	}
}

// resolve applies presence, broadcast and debounce rules to one trigger.
func (l *lane) resolve(ctx context.Context, t trigger.Trigger) trigger.Result {
	r := l.resolver

	presence, err := r.presence.Presence(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Presence lookup failed", "error", err)

		return trigger.Failed(fmt.Errorf("read presence: %w", err))
	}

	if presence.Suppresses(t.Camera) {
		logger.InfoKV(ctx, "Trigger suppressed, at home", "trigger", t.String())

		return trigger.SuppressedAtHome(t.Camera)
	}

	r.notifier.Notify(ctx, t)

	if !l.camera.RecordOnMovement {
		return trigger.Result{
			Message:  trigger.MessageExternController,
			Outcome:  trigger.OutcomeNotified,
			Notified: true,
		}
	}

	if l.armed() {
		if t.State {
			logger.DebugKV(ctx, "Trigger suppressed, timeout active", "deadline", l.deadline)

			return trigger.Result{
				Message:  trigger.MessageTimeoutActive,
				Outcome:  trigger.OutcomeSuppressedTimeout,
				Notified: true,
			}
		}

		l.disarm()

		return l.forward(ctx, t, trigger.OutcomeReset)
	}

	res := l.forward(ctx, t, trigger.OutcomeForwarded)
	if res.Error || !t.State {
		return res
	}

	if window := l.camera.DebounceWindow(); window > 0 {
		l.arm(window)
		logger.DebugKV(ctx, "Debounce window armed", "deadline", l.deadline)
	}

	return res
}

func (l *lane) forward(ctx context.Context, t trigger.Trigger, outcome trigger.Outcome) trigger.Result {
	if err := l.resolver.sink.Handle(ctx, trigger.NewEvent(t, time.Now())); err != nil {
		logger.ErrorKV(ctx, "Event sink failed", "trigger", t.String(), "error", err)

		res := trigger.Failed(fmt.Errorf("forward event: %w", err))
		res.Notified = true

		return res
	}

	logger.InfoKV(ctx, "Trigger forwarded", "trigger", t.String(), "outcome", outcome.String())

	return trigger.Result{
		Message:  trigger.MessageInternController,
		Outcome:  outcome,
		Notified: true,
	}
}

// armed reports ARMED, dropping a window whose deadline has passed but whose
// expiry has not been received yet.
func (l *lane) armed() bool {
	if l.timer == nil {
		return false
	}

	if time.Now().Before(l.deadline) {
		return true
	}

	l.disarm()

	return false
}

func (l *lane) arm(window time.Duration) {
	l.deadline = time.Now().Add(window)
	l.timer = time.NewTimer(window)
}

func (l *lane) disarm() {
	if l.timer != nil {
		l.timer.Stop()
	}

	l.timer = nil
	l.deadline = time.Time{}
}
