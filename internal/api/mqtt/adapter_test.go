package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/camera-funnel/internal/config"
	domain "github.com/oshokin/camera-funnel/internal/domain/camera"
	"github.com/oshokin/camera-funnel/internal/domain/trigger"
	"github.com/oshokin/camera-funnel/internal/repository/camera"
)

// stubResolver records resolved triggers.
type stubResolver struct {
	mu   sync.Mutex
	seen []trigger.Trigger
}

// Resolve records the trigger and reports it as forwarded.
func (s *stubResolver) Resolve(_ context.Context, t trigger.Trigger) trigger.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = append(s.seen, t)

	return trigger.Result{Message: trigger.MessageInternController, Outcome: trigger.OutcomeForwarded}
}

func (s *stubResolver) triggers() []trigger.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]trigger.Trigger(nil), s.seen...)
}

// outcomeRecorder keeps every observed outcome.
type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []trigger.Outcome
}

// Observe stores the outcome.
func (r *outcomeRecorder) Observe(_ trigger.Channel, outcome trigger.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcomes = append(r.outcomes, outcome)
}

func newRegistry() *camera.Registry {
	return camera.NewRegistry(
		[]*domain.Config{{Name: "Garage", RecordOnMovement: true, MotionTimeout: 30}},
		map[string]domain.TopicMapping{
			"cam/Garage": {
				Camera:             "Garage",
				Motion:             true,
				MotionMessage:      "ON",
				MotionResetMessage: "OFF",
			},
			"cam/Garage/reset": {
				Camera:             "Garage",
				Motion:             true,
				Reset:              true,
				MotionMessage:      "ON",
				MotionResetMessage: "OFF",
			},
			"cam/Porch/bell": {Camera: "Porch"},
		},
	)
}

// TestAdapter_Handle covers the normalization paths of received messages.
func TestAdapter_Handle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		topic   string
		payload string
		want    *trigger.Trigger
	}{
		{
			name:    "motion on",
			topic:   "cam/Garage",
			payload: "ON",
			want:    &trigger.Trigger{Type: trigger.Motion, Camera: "Garage", State: true, Channel: trigger.ChannelMQTT},
		},
		{
			name:    "motion off",
			topic:   "cam/Garage",
			payload: "OFF",
			want:    &trigger.Trigger{Type: trigger.Motion, Camera: "Garage", State: false, Channel: trigger.ChannelMQTT},
		},
		{
			name:    "reset topic",
			topic:   "cam/Garage/reset",
			payload: "OFF",
			want:    &trigger.Trigger{Type: trigger.Motion, Camera: "Garage", State: false, Channel: trigger.ChannelMQTT},
		},
		{
			name:    "doorbell ignores payload",
			topic:   "cam/Porch/bell",
			payload: "anything",
			want:    &trigger.Trigger{Type: trigger.Doorbell, Camera: "Porch", State: true, Channel: trigger.ChannelMQTT},
		},
		{name: "unknown payload", topic: "cam/Garage", payload: "MAYBE"},
		{name: "reset topic with motion payload", topic: "cam/Garage/reset", payload: "ON"},
		{name: "unmapped subtopic", topic: "cam/Garage/battery", payload: "ON"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resolver := &stubResolver{}
			recorder := &outcomeRecorder{}
			a := New(config.MQTTConfig{}, newRegistry(), resolver, recorder)

			res := a.handle(context.Background(), tc.topic, []byte(tc.payload))

			if tc.want == nil {
				require.True(t, res.Error)
				require.Equal(t, trigger.OutcomeMalformed, res.Outcome)
				require.Empty(t, resolver.triggers())
				require.Equal(t, []trigger.Outcome{trigger.OutcomeMalformed}, recorder.outcomes)

				return
			}

			require.False(t, res.Error)
			require.Equal(t, []trigger.Trigger{*tc.want}, resolver.triggers())
			require.Empty(t, recorder.outcomes)
		})
	}
}

// TestAdapter_ConsumeKeepsOrder checks that queued messages are resolved in delivery order.
func TestAdapter_ConsumeKeepsOrder(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{}
	a := New(config.MQTTConfig{}, newRegistry(), resolver, nil)

	messages := make(chan message, queueSize)
	done := make(chan struct{})
	a.consume(context.Background(), messages, done)

	enqueue(messages, done, message{topic: "cam/Garage", payload: []byte("ON")})
	enqueue(messages, done, message{topic: "cam/Garage", payload: []byte("OFF")})
	enqueue(messages, done, message{topic: "cam/Porch/bell", payload: nil})

	require.Eventually(t, func() bool {
		return len(resolver.triggers()) == 3
	}, time.Second, 10*time.Millisecond)

	a.drain(done)

	seen := resolver.triggers()
	require.True(t, seen[0].State)
	require.False(t, seen[1].State)
	require.Equal(t, trigger.Doorbell, seen[2].Type)

	// A stopped consumer does not block producers.
	for range queueSize + 1 {
		enqueue(messages, done, message{topic: "cam/Garage", payload: []byte("ON")})
	}
}

// TestSubscriptionFilters checks the wildcard suffix for every topic.
func TestSubscriptionFilters(t *testing.T) {
	t.Parallel()

	require.Equal(t, map[string]byte{
		"cam/Garage/#":       0,
		"cam/Garage/reset/#": 0,
		"cam/Porch/bell/#":   0,
	}, SubscriptionFilters(newRegistry().Topics()))
}

// TestAdapter_StartUnreachableBroker checks that a connect failure is returned and Stop stays a no-op.
func TestAdapter_StartUnreachableBroker(t *testing.T) {
	t.Parallel()

	a := New(config.MQTTConfig{
		Enabled:        true,
		Broker:         "tcp://127.0.0.1:1",
		ConnectTimeout: 2 * time.Second,
	}, newRegistry(), &stubResolver{}, nil)

	require.Equal(t, Name, a.Name())
	require.Error(t, a.Start(context.Background()))
	require.NoError(t, a.Stop(context.Background()))
}
