package ws

import (
	"context"

	"github.com/gosuda/officewatch/internal/diff"
	"github.com/gosuda/officewatch/internal/projection"
)

// BroadcastState serializes the projection once and pushes it to all open
// sockets. Sends are fire-and-forget; a failed socket is closed by its own
// read loop.
func (h *Hub) BroadcastState(o *projection.Office) {
	payload, err := stateFrame(o)
	if err != nil {
		h.logger.Error().Err(err).Msg("serialize state broadcast")
		return
	}
	h.broadcast(payload)
}

// BroadcastEvent serializes the event once and pushes it to all open sockets.
func (h *Hub) BroadcastEvent(e diff.Event) {
	payload, err := eventFrame(e)
	if err != nil {
		h.logger.Error().Err(err).Msg("serialize event broadcast")
		return
	}
	h.broadcast(payload)
}

func (h *Hub) broadcast(payload []byte) {
	for _, c := range h.snapshotConns() {
		if err := c.write(context.Background(), payload); err != nil {
			h.logger.Debug().Err(err).Msg("websocket write")
		}
	}
}
