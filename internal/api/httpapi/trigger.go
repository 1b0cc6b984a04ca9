package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
	"github.com/oshokin/camera-funnel/internal/logger"
	"github.com/oshokin/camera-funnel/internal/normalize"
)

// Resolver resolves a normalized trigger.
type Resolver interface {
	Resolve(ctx context.Context, t trigger.Trigger) trigger.Result
}

// Recorder observes outcomes decided before the resolver is reached.
type Recorder interface {
	Observe(channel trigger.Channel, outcome trigger.Outcome)
}

// TriggerAPI serves the HTTP ingress channel.
type TriggerAPI struct {
	resolver Resolver
	recorder Recorder
}

// NewTriggerAPI creates the HTTP ingress handler set.
func NewTriggerAPI(resolver Resolver, recorder Recorder) *TriggerAPI {
	return &TriggerAPI{resolver: resolver, recorder: recorder}
}

// Handler builds the router. Every GET path is a trigger.
func (a *TriggerAPI) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger("http"))
	r.Use(RecoverJSON)

	r.Get("/*", a.trigger)

	return r
}

func (a *TriggerAPI) trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channel := requestChannel(r)

	t, err := normalize.HTTP(r.URL.Path, r.URL.RawQuery)
	if err != nil {
		res := trigger.Malformed("Malformed URL %s", r.URL.RequestURI())
		logger.WarnKV(ctx, "Rejected HTTP trigger", "url", r.URL.RequestURI(), "channel", channel, "error", err)

		if a.recorder != nil {
			a.recorder.Observe(channel, res.Outcome)
		}

		writeResult(w, res)

		return
	}

	t.Channel = channel

	writeResult(w, a.resolver.Resolve(ctx, t))
}

// requestChannel returns smtp for requests relayed by the mail adapter and http otherwise.
func requestChannel(r *http.Request) trigger.Channel {
	if trigger.Channel(r.Header.Get(trigger.HeaderChannel)) == trigger.ChannelSMTP {
		return trigger.ChannelSMTP
	}

	return trigger.ChannelHTTP
}

// writeResult answers 200 on success and 500 on error, always with {error, message}.
func writeResult(w http.ResponseWriter, res trigger.Result) {
	status := http.StatusOK
	if res.Error {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, res)
}
