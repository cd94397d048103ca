// Package feed streams simulation events to presentation clients over
// WebSocket. Every bus event becomes one binary msgpack frame.
package feed

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/corsair/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufSize    = 256
	broadcastBuf   = 1024
)

type message struct {
	kind  events.Kind
	frame []byte
}

// Hub maintains the set of connected clients and fans frames out to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan message
	register   chan *client
	unregister chan *client
	done       chan struct{}

	connected atomic.Int64
	dropped   atomic.Uint64
	upgrader  websocket.Upgrader
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan message, broadcastBuf),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run is the hub's event loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.connected.Add(1)
			slog.Info("feed client connected", "remote", c.remote, "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				slog.Info("feed client disconnected", "remote", c.remote, "clients", len(h.clients))
			}

		case m := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(m.kind) {
					continue
				}
				select {
				case c.send <- m.frame:
				default:
					// Slow client.
					slog.Warn("feed client too slow, disconnecting", "remote", c.remote)
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.connected.Load()) }

// Dropped returns the number of events discarded because the hub was backed up.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Attach forwards every event published on bus. Publishing never blocks on the
// hub; events that do not fit the buffer are dropped and counted.
func (h *Hub) Attach(bus *events.Bus) func() {
	return bus.SubscribeAll(func(e events.Event) {
		frame, err := events.Encode(e)
		if err != nil {
			slog.Error("encode feed event", "kind", e.Kind, "error", err)
			return
		}
		select {
		case h.broadcast <- message{kind: e.Kind, frame: frame}:
		default:
			h.dropped.Add(1)
		}
	})
}

// ServeHTTP upgrades the request to a WebSocket. An optional "kinds" query
// parameter (comma separated event names) limits what the client receives.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseKinds(r.URL.Query().Get("kinds"))
	if !ok {
		http.Error(w, "unknown event kind", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("feed upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufSize),
		remote: r.RemoteAddr,
		kinds:  filter,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func parseKinds(raw string) (map[events.Kind]bool, bool) {
	if raw == "" {
		return nil, true
	}
	out := make(map[events.Kind]bool)
	for _, name := range strings.Split(raw, ",") {
		k, ok := events.ParseKind(strings.TrimSpace(name))
		if !ok {
			return nil, false
		}
		out[k] = true
	}
	return out, true
}
