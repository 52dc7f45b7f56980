package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/leadclaw/internal/bus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 64
)

// Client is one connected WebSocket consumer of the event feed. The feed is
// one-way: events out, no commands in.
type Client struct {
	id   string
	conn *websocket.Conn

	send chan bus.Event

	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan bus.Event, sendBuffer),
		closed: make(chan struct{}),
	}
}

// SendEvent queues an event for delivery. Slow clients drop events rather
// than backpressure the bus.
func (c *Client) SendEvent(event bus.Event) {
	select {
	case <-c.closed:
	case c.send <- event:
	default:
		slog.Warn("event dropped for slow client", "id", c.id, "event", event.Name)
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// Run pumps events to the connection until it drops or ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	go c.readPump()
	c.writePump(ctx)
}

// readPump discards inbound frames but keeps the connection's read side
// alive so close and pong frames are processed.
func (c *Client) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				slog.Debug("websocket write failed", "id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
