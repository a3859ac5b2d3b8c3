package chat

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Configuration constants (Good practice to avoid magic numbers)
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 10 << 20            // Attachments arrive base64-encoded inside a single frame.
	sendBuffer     = 256
)

// Application close codes. 1000 (normal closure, client deactivated) and
// 1011 (server error) come from the websocket spec; the 4xxx range is ours.
const (
	CloseInvalidCredential = 4001
	CloseMissingCredential = 4002
	CloseInvalidPayload    = 4003
)

// Client is one live connection. The identity fields are set once during
// the handshake and never change; lastSeen is mutated only through the
// Registry so the heartbeat sweep reads consistent values.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID        int
	username      string
	authenticated bool
	lastSeen      time.Time
}

// readPump pumps inbound frames from the websocket into the hub's router.
// It owns the connection's read side; teardown always funnels through
// hub.Leave so the registry removal happens before the next presence push.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("read error (user %d): %v", c.userID, err)
			}
			return
		}
		c.route(raw)
	}
}

// route shields the read loop from a panicking handler: the connection gets
// a server-error close, everyone else keeps chatting.
func (c *Client) route(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("route panic (user %d): %v", c.userID, r)
			c.closeWith(websocket.CloseInternalServerErr, "Server error")
		}
	}()
	c.hub.Route(c, raw)
}

// writePump pumps queued frames to the websocket connection. It is the only
// writer of data frames on this connection, so outbound frames are never
// interleaved.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

// closeWith performs a graceful close with an application close code.
// WriteControl is safe to call concurrently with the write pump.
func (c *Client) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.conn.Close()
}
