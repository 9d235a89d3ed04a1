package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"
)

// serverFrame is the decoded server→client envelope.
type serverFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// client owns one WebSocket connection and pumps decoded frames into a
// channel consumed by the bubbletea model.
type client struct {
	conn   *websocket.Conn
	frames chan serverFrame
	cancel context.CancelFunc
}

// dial connects to the server's /ws endpoint and starts the read pump.
func dial(url string) (*client, error) {
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("tui.dial: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		conn:   conn,
		frames: make(chan serverFrame, 16),
		cancel: cancel,
	}
	go c.pump(ctx)
	return c, nil
}

func (c *client) pump(ctx context.Context) {
	defer close(c.frames)
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var frame serverFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		select {
		case c.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// replay asks the server for events at or after fromTimestamp.
func (c *client) replay(fromTimestamp int64) error {
	payload, err := json.Marshal(map[string]any{
		"type":          "replay",
		"fromTimestamp": fromTimestamp,
	})
	if err != nil {
		return fmt.Errorf("tui.client.replay: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("tui.client.replay: %w", err)
	}
	return nil
}

func (c *client) close() {
	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "viewer closed")
}
