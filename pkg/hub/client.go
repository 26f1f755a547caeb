package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeTimeout bounds a single frame write to a slow observer.
	writeTimeout = 10 * time.Second

	// pongTimeout is how long a silent connection is considered alive.
	pongTimeout = 60 * time.Second

	// pingInterval must leave room for the pong to arrive in time.
	pingInterval = (pongTimeout * 9) / 10

	// maxInboundSize caps inbound frames. Observers only listen; an
	// event-feed client has no business sending large payloads.
	maxInboundSize = 64 * 1024
)

// Client is one connected event-feed observer. The feed is one-way:
// the hub pushes session lifecycle events out and the read side exists
// only to keep the connection alive and notice when it drops.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient registers a new observer with the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, 256),
	}
	hub.register <- client
	return client
}

// Run pumps the connection until it closes. Call from the websocket
// handler; it blocks for the lifetime of the connection.
func (c *Client) Run() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop drains inbound frames. Events are never expected from
// observers; the loop exists for pong handling and disconnect
// detection, and unregisters the client when the connection dies.
func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only goroutine that writes to the connection. It
// forwards queued events and pings on an interval; a closed send
// channel means the hub evicted this client.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			frame := websocket.TextMessage
			if msg.Type == BinaryMessage {
				frame = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(frame, msg.Data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
