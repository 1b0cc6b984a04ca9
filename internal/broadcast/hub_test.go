package broadcast

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	_ = resp.Body.Close()

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// TestHub_NotifyReachesSubscribers pushes a trigger to two subscribers.
func TestHub_NotifyReachesSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(hub)

	defer srv.Close()

	first := dial(t, srv)
	second := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), trigger.Trigger{
		Type: trigger.Doorbell, Camera: "Porch", State: true, Channel: trigger.ChannelMQTT,
	})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "doorbell", msg.Type)
		require.Equal(t, "Porch", msg.Camera)
		require.True(t, msg.State)
		require.Equal(t, "mqtt", msg.Channel)
	}
}

// TestHub_DisconnectUnregisters forgets subscribers that went away.
func TestHub_DisconnectUnregisters(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(hub)

	defer srv.Close()

	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Notifying nobody is fine.
	hub.Notify(context.Background(), trigger.Trigger{Type: trigger.Motion, Camera: "Garage", State: true})
}

// TestHub_Close disconnects every subscriber.
func TestHub_Close(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(hub)

	defer srv.Close()

	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	hub.Close()
	require.Zero(t, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
