package trigger

import "fmt"

// Outcome classifies how a trigger was resolved.
type Outcome int

// Possible outcomes.
const (
	// OutcomeFailed means resolution could not complete (collaborator fault, shutdown).
	OutcomeFailed Outcome = iota
	// OutcomeMalformed means the channel payload could not be normalized.
	OutcomeMalformed
	// OutcomeNotFound means the camera is not in the registry.
	OutcomeNotFound
	// OutcomeSuppressedAtHome means the presence policy dropped the trigger.
	OutcomeSuppressedAtHome
	// OutcomeNotified means only the broadcast ran; the camera does not record on movement.
	OutcomeNotified
	// OutcomeSuppressedTimeout means a debounce window was already running.
	OutcomeSuppressedTimeout
	// OutcomeForwarded means the trigger reached the event sink.
	OutcomeForwarded
	// OutcomeReset means a running debounce window was cleared and the reset forwarded.
	OutcomeReset
)

var outcomeNames = map[Outcome]string{ //nolint:gochecknoglobals // Lookup table.
	OutcomeFailed:            "failed",
	OutcomeMalformed:         "malformed",
	OutcomeNotFound:          "not_found",
	OutcomeSuppressedAtHome:  "suppressed_at_home",
	OutcomeNotified:          "notified",
	OutcomeSuppressedTimeout: "suppressed_timeout",
	OutcomeForwarded:         "forwarded",
	OutcomeReset:             "reset",
}

// String returns the metric-friendly name of the outcome.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}

	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result messages shared by the resolver and the adapters.
const (
	MessageInternController = "Handled through intern controller"
	MessageExternController = "Handled through extern controller"
	MessageTimeoutActive    = "Skip motion event, timeout active!"
)

// Result is the diagnostic answer handed back to an adapter.
// Only Error and Message go over the wire.
type Result struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`

	// Outcome tells the resolved path apart where Message alone cannot.
	Outcome Outcome `json:"-"`
	// Notified is set when the broadcast notification ran for this trigger.
	Notified bool `json:"-"`
}

// Forwarded reports whether the trigger reached the event sink.
func (r Result) Forwarded() bool {
	return r.Outcome == OutcomeForwarded || r.Outcome == OutcomeReset
}

// Malformed builds the rejection for unparsable channel input.
func Malformed(format string, args ...any) Result {
	return Result{Error: true, Message: fmt.Sprintf(format, args...), Outcome: OutcomeMalformed}
}

// NotFound builds the unknown-camera rejection.
func NotFound(cameraName string) Result {
	return Result{Error: true, Message: fmt.Sprintf("Camera '%s' not found", cameraName), Outcome: OutcomeNotFound}
}

// SuppressedAtHome builds the presence-policy answer. It is not an error.
func SuppressedAtHome(cameraName string) Result {
	return Result{
		Message: fmt.Sprintf("Skip motion trigger. At Home is active and %s is not excluded!", cameraName),
		Outcome: OutcomeSuppressedAtHome,
	}
}

// Failed builds the answer for a resolution that could not complete.
func Failed(err error) Result {
	return Result{Error: true, Message: err.Error(), Outcome: OutcomeFailed}
}
