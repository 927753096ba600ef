package coordinator

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/videodesk-app/videodesk/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Chat images travel as data
	// URLs, so this is far above plain SDP size.
	maxMessageSize = 2 * 1024 * 1024
)

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	Hub *Hub

	// Conn is the websocket connection. It is nil in hub tests, which talk
	// to the hub through channels only.
	Conn *websocket.Conn

	// ID is the ephemeral connection id, minted at upgrade time. StableID
	// persists across reconnects and keys study-time accounting.
	ID       string
	StableID string

	Name string
	Role string

	// ContextID is the room or private-session id the client currently
	// occupies; empty until the first join. Mutated only by the hub loop.
	ContextID string

	// SeatedAt is when the current main-room seat was claimed, for
	// study-minute crediting on leave.
	SeatedAt time.Time

	// Away marks a participant who left for a private session. The seat in
	// ReservedRoomID stays claimed so nobody takes it, but the occupant is
	// invisible to relay and host selection until they re-seat.
	Away           bool
	ReservedRoomID string

	// Send is the buffered channel of outbound messages. The hub writes to
	// it and WritePump drains it onto the websocket.
	Send chan *protocol.Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine, ensuring at
// most one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("conn", c.ID).WithError(err).Warn("websocket read error")
			}
			break
		}

		c.Hub.Inbound <- inbound{client: c, msg: &msg}
	}
}

// WritePump pumps messages from the hub to the websocket connection and
// keeps the connection alive with periodic pings. One per connection,
// ensuring at most one writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				logrus.WithField("conn", c.ID).WithError(err).Debug("websocket write error")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// send queues a message for the client without ever blocking the hub loop.
// A client whose send buffer is full is considered wedged and the message
// is dropped; the resync path (request_room_state) recovers it.
func (c *Client) send(msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		logrus.WithField("conn", c.ID).Warn("send buffer full, dropping message")
	}
}

func (c *Client) sendError(text string) {
	c.send(protocol.New(protocol.TypeError, protocol.ErrorPayload{Error: text}))
}
