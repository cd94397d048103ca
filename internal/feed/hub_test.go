package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/corsair/internal/events"
)

func startHub(t *testing.T) (*Hub, *events.Bus, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	bus := events.NewBus()
	detach := hub.Attach(bus)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		detach()
		srv.Close()
		cancel()
	})
	return hub, bus, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *Hub, url string, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Clients() == want }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) events.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	f, err := events.Decode(raw)
	require.NoError(t, err)
	return f
}

type sinkingPayload struct {
	Ship string `json:"ship"`
}

func TestBroadcastsBusEvents(t *testing.T) {
	hub, bus, url := startHub(t)
	a := dial(t, hub, url, 1)
	b := dial(t, hub, url, 2)

	bus.SetTick(12)
	bus.Publish(events.ShipSinking, sinkingPayload{Ship: "s-1"})

	for _, conn := range []*websocket.Conn{a, b} {
		f := readFrame(t, conn)
		assert.Equal(t, "ship_sinking", f.Kind)
		assert.Equal(t, uint64(12), f.Tick)
		payload, ok := f.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "s-1", payload["ship"])
	}
}

func TestKindFilter(t *testing.T) {
	hub, bus, url := startHub(t)
	conn := dial(t, hub, url+"?kinds=engagement_started,engagement_ended", 1)

	bus.Publish(events.ShotFired, sinkingPayload{Ship: "ignored"})
	bus.Publish(events.EngagementEnded, sinkingPayload{Ship: "s-2"})

	f := readFrame(t, conn)
	assert.Equal(t, "engagement_ended", f.Kind)
}

func TestUnknownKindRejected(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?kinds=kraken_attack")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, hub, url, 1)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestAttachNeverBlocksPublisher(t *testing.T) {
	hub := NewHub() // not running: nothing drains the buffer
	bus := events.NewBus()
	hub.Attach(bus)

	for range broadcastBuf + 10 {
		bus.Publish(events.ShotFired, sinkingPayload{Ship: "x"})
	}
	assert.Equal(t, uint64(10), hub.Dropped())
}
