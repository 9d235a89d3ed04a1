// Package ws fans the office projection and domain events out to all
// connected WebSocket viewers, and answers ping and replay requests.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/gosuda/officewatch/internal/bus"
)

const writeTimeout = 5 * time.Second

// Hub manages the set of live viewer connections. Broadcasts serialize the
// payload once and push it to every open socket; a send failure on one socket
// is isolated to that socket.
type Hub struct {
	bus    *bus.Bus
	logger zerolog.Logger

	mu    sync.Mutex
	conns map[*conn]struct{}
}

type conn struct {
	ws *websocket.Conn

	// coder/websocket allows one concurrent writer; the broadcast path and
	// the per-connection read loop both write.
	writeMu sync.Mutex
}

// NewHub creates a hub backed by the given bus.
func NewHub(b *bus.Bus, logger zerolog.Logger) *Hub {
	return &Hub{
		bus:    b,
		logger: logger,
		conns:  make(map[*conn]struct{}),
	}
}

// Serve upgrades the request to a WebSocket, immediately sends the current
// projection, and keeps the socket subscribed for the life of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket accept")
		return
	}

	c := &conn{ws: sock}
	// Register before the initial frame so a SetState or Emit landing in the
	// window between the state read and the first write still reaches this
	// socket. The per-conn write mutex keeps the frames ordered.
	h.add(c)
	defer func() {
		h.remove(c)
		_ = sock.CloseNow()
	}()

	// New viewers get the full current state before anything else.
	initial, err := stateFrame(h.bus.State())
	if err != nil {
		h.logger.Error().Err(err).Msg("serialize initial state")
		_ = sock.Close(websocket.StatusInternalError, "state serialization failed")
		return
	}
	if err := c.write(r.Context(), initial); err != nil {
		return
	}

	h.readLoop(r.Context(), c)
}

// readLoop services client frames until the socket closes.
func (h *Hub) readLoop(ctx context.Context, c *conn) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Debug().Err(err).Msg("bad client frame")
			continue
		}

		switch frame.Type {
		case FramePing:
			h.respond(ctx, c, FramePong, nil)
		case FrameReplay:
			events := h.bus.Replay(frame.FromTimestamp)
			h.respond(ctx, c, FrameReplay, events)
		default:
			h.logger.Debug().Str("type", frame.Type).Msg("unknown client frame")
		}
	}
}

func (h *Hub) respond(ctx context.Context, c *conn, typ string, data any) {
	payload, err := marshalFrame(typ, data)
	if err != nil {
		h.logger.Error().Err(err).Str("type", typ).Msg("serialize frame")
		return
	}
	_ = c.write(ctx, payload)
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// snapshotConns returns the current connection set for iteration outside the
// lock.
func (h *Hub) snapshotConns() []*conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}

// CloseAll closes every open socket. Used on server shutdown.
func (h *Hub) CloseAll() {
	for _, c := range h.snapshotConns() {
		_ = c.ws.Close(websocket.StatusGoingAway, "server stopping")
	}
	h.mu.Lock()
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()
}

// ConnCount returns the number of open sockets.
func (h *Hub) ConnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (c *conn) write(ctx context.Context, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, payload)
}
