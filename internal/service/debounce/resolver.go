package debounce

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oshokin/camera-funnel/internal/domain/camera"
	"github.com/oshokin/camera-funnel/internal/domain/trigger"
	"github.com/oshokin/camera-funnel/internal/logger"
)

// ErrClosed is reported once the resolver has been closed.
var ErrClosed = errors.New("resolver is closed")

// ArmedCamera describes a camera whose debounce window is running.
type ArmedCamera struct {
	Camera   string    `json:"camera"`
	Deadline time.Time `json:"deadline"`
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNotifier sets the broadcast notifier.
func WithNotifier(n Notifier) Option {
	return func(r *Resolver) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// Resolver is the per-camera debounce state machine.
type Resolver struct {
	registry Registry
	presence PresencePolicy
	sink     Sink
	notifier Notifier
	recorder Recorder

	// ctx scopes every lane; canceled by Close.
	ctx    context.Context //nolint:containedctx // Lanes outlive any single request.
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu protects lanes and closed.
	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
}

// New creates a resolver. The context provides the base logger of every lane.
func New(ctx context.Context, registry Registry, presence PresencePolicy, sink Sink, opts ...Option) *Resolver {
	laneCtx, cancel := context.WithCancel(logger.WithName(ctx, "resolver"))

	r := &Resolver{
		registry: registry,
		presence: presence,
		sink:     sink,
		notifier: nopNotifier{},
		recorder: nopRecorder{},
		ctx:      laneCtx,
		cancel:   cancel,
		lanes:    make(map[string]*lane),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve runs a normalized trigger through the state machine and waits for the answer.
func (r *Resolver) Resolve(ctx context.Context, t trigger.Trigger) trigger.Result {
	cam, ok := r.registry.Camera(t.Camera)
	if !ok {
		logger.WarnKV(ctx, "Camera not found", "camera", t.Camera, "channel", t.Channel)

		return r.finish(t, trigger.NotFound(t.Camera))
	}

	l, err := r.laneFor(cam)
	if err != nil {
		return r.finish(t, trigger.Failed(err))
	}

	req := request{
		ctx:     ctx,
		trigger: t,
		reply:   make(chan trigger.Result, 1),
	}

	select {
	case l.requests <- req:
	case <-ctx.Done():
		return r.finish(t, trigger.Failed(ctx.Err()))
	case <-r.ctx.Done():
		return r.finish(t, trigger.Failed(ErrClosed))
	}

	select {
	case res := <-req.reply:
		return res
	case <-ctx.Done():
		return trigger.Failed(ctx.Err())
	case <-r.ctx.Done():
		return trigger.Failed(ErrClosed)
	}
}

// Armed lists the cameras whose debounce window is running, sorted by name.
func (r *Resolver) Armed(ctx context.Context) ([]ArmedCamera, error) {
	r.mu.Lock()
	lanes := make([]*lane, 0, len(r.lanes))

	for _, l := range r.lanes {
		lanes = append(lanes, l)
	}
	r.mu.Unlock()

	result := make([]ArmedCamera, 0, len(lanes))

	for _, l := range lanes {
		reply := make(chan time.Time, 1)

		select {
		case l.queries <- reply:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.ctx.Done():
			return nil, ErrClosed
		}

		select {
		case deadline := <-reply:
			if !deadline.IsZero() {
				result = append(result, ArmedCamera{Camera: l.camera.Name, Deadline: deadline})
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.ctx.Done():
			return nil, ErrClosed
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Camera < result[j].Camera
	})

	return result, nil
}

// Close stops every lane and drops all debounce windows. It is idempotent.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

// laneFor returns the camera's lane, starting it on first use.
func (r *Resolver) laneFor(cam *camera.Config) (*lane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	if l, ok := r.lanes[cam.Name]; ok {
		return l, nil
	}

	l := &lane{
		resolver: r,
		camera:   cam,
		requests: make(chan request),
		queries:  make(chan chan time.Time),
	}

	r.lanes[cam.Name] = l
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		l.run(logger.WithKV(r.ctx, "camera", cam.Name))
	}()

	return l, nil
}

func (r *Resolver) finish(t trigger.Trigger, res trigger.Result) trigger.Result {
	r.recorder.Observe(t.Channel, res.Outcome)

	return res
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, trigger.Trigger) {}

type nopRecorder struct{}

func (nopRecorder) Observe(trigger.Channel, trigger.Outcome) {}
