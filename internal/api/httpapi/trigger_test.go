package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

// stubResolver answers with a fixed result and records what it saw.
type stubResolver struct {
	mu     sync.Mutex
	seen   []trigger.Trigger
	result trigger.Result
}

// Resolve records the trigger and returns the configured result.
func (s *stubResolver) Resolve(_ context.Context, t trigger.Trigger) trigger.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = append(s.seen, t)

	return s.result
}

func (s *stubResolver) triggers() []trigger.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]trigger.Trigger(nil), s.seen...)
}

// countingRecorder counts observed outcomes.
type countingRecorder struct {
	mu     sync.Mutex
	counts map[trigger.Outcome]int
}

// Observe counts the outcome.
func (c *countingRecorder) Observe(_ trigger.Channel, outcome trigger.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counts == nil {
		c.counts = map[trigger.Outcome]int{}
	}

	c.counts[outcome]++
}

type wireResult struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func doGet(t *testing.T, h http.Handler, target string) (int, wireResult) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body wireResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return rec.Code, body
}

// TestTriggerAPI_Motion checks that a motion path reaches the resolver decoded.
func TestTriggerAPI_Motion(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{result: trigger.Result{
		Message: trigger.MessageInternController,
		Outcome: trigger.OutcomeForwarded,
	}}
	h := NewTriggerAPI(resolver, nil).Handler()

	status, body := doGet(t, h, "/motion?Front%20Door")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, wireResult{Message: "Handled through intern controller"}, body)

	require.Equal(t, []trigger.Trigger{{
		Type:    trigger.Motion,
		Camera:  "Front Door",
		State:   true,
		Channel: trigger.ChannelHTTP,
	}}, resolver.triggers())
}

// TestTriggerAPI_RelayedChannel accounts relayed mail triggers to smtp and ignores unknown tags.
func TestTriggerAPI_RelayedChannel(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{result: trigger.Result{Message: trigger.MessageInternController}}
	h := NewTriggerAPI(resolver, nil).Handler()

	for _, tag := range []string{"smtp", "mqtt"} {
		req := httptest.NewRequest(http.MethodGet, "/motion?Garage", nil)
		req.Header.Set(trigger.HeaderChannel, tag)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	seen := resolver.triggers()
	require.Len(t, seen, 2)
	require.Equal(t, trigger.ChannelSMTP, seen[0].Channel)
	require.Equal(t, trigger.ChannelHTTP, seen[1].Channel)
}

// TestTriggerAPI_Reset checks that /reset resolves to a motion-off trigger.
func TestTriggerAPI_Reset(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{result: trigger.Result{Message: trigger.MessageInternController}}
	h := NewTriggerAPI(resolver, nil).Handler()

	status, _ := doGet(t, h, "/motion/reset?Garage")
	require.Equal(t, http.StatusOK, status)

	seen := resolver.triggers()
	require.Len(t, seen, 1)
	require.Equal(t, trigger.Motion, seen[0].Type)
	require.False(t, seen[0].State)
	require.Equal(t, "Garage", seen[0].Camera)
}

// TestTriggerAPI_Doorbell checks that the doorbell type is kept.
func TestTriggerAPI_Doorbell(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{result: trigger.Result{Message: trigger.MessageInternController}}
	h := NewTriggerAPI(resolver, nil).Handler()

	status, _ := doGet(t, h, "/doorbell?Porch")
	require.Equal(t, http.StatusOK, status)

	seen := resolver.triggers()
	require.Len(t, seen, 1)
	require.Equal(t, trigger.Doorbell, seen[0].Type)
	require.True(t, seen[0].State)
}

// TestTriggerAPI_Malformed checks that unparsable requests never reach the resolver.
func TestTriggerAPI_Malformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		target  string
		message string
	}{
		{name: "missing camera", target: "/motion", message: "Malformed URL /motion"},
		{name: "empty camera", target: "/motion?", message: "Malformed URL /motion?"},
		{name: "unknown type", target: "/siren?Garage", message: "Malformed URL /siren?Garage"},
		{name: "root", target: "/", message: "Malformed URL /"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resolver := &stubResolver{}
			recorder := &countingRecorder{}
			h := NewTriggerAPI(resolver, recorder).Handler()

			status, body := doGet(t, h, tc.target)
			require.Equal(t, http.StatusInternalServerError, status)
			require.True(t, body.Error)
			require.Equal(t, tc.message, body.Message)
			require.Empty(t, resolver.triggers())

			recorder.mu.Lock()
			defer recorder.mu.Unlock()
			require.Equal(t, 1, recorder.counts[trigger.OutcomeMalformed])
		})
	}
}

// TestTriggerAPI_ErrorResult checks that resolver errors map to status 500.
func TestTriggerAPI_ErrorResult(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{result: trigger.NotFound("Attic")}
	h := NewTriggerAPI(resolver, nil).Handler()

	status, body := doGet(t, h, "/motion?Attic")
	require.Equal(t, http.StatusInternalServerError, status)
	require.True(t, body.Error)
	require.Contains(t, body.Message, "Attic")
}

// TestRecoverJSON checks that a panicking handler still answers with the JSON shape.
func TestRecoverJSON(t *testing.T) {
	t.Parallel()

	h := RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	status, body := doGet(t, h, "/motion?Garage")
	require.Equal(t, http.StatusInternalServerError, status)
	require.True(t, body.Error)
}
