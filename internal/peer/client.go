// Package peer implements the client half of the relay protocol: the
// signaling channel plus the per-counterpart WebRTC negotiation
// sessions a broadcaster or viewer keeps locally.
package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beamlabs/beam/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the relay.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan wire.Message
	outgoing  chan wire.Message
	done      chan struct{}

	closeOnce sync.Once
}

func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan wire.Message, 32),
		outgoing:  make(chan wire.Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect dials the relay and starts the read and write pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg wire.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.incoming <- msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Incoming returns the channel of relay events, closed when the
// connection dies.
func (c *Client) Incoming() <-chan wire.Message {
	return c.incoming
}

func (c *Client) send(msg wire.Message) {
	select {
	case c.outgoing <- msg:
	case <-c.done:
	}
}

// Create asks the relay to register a room. An empty roomID lets the
// relay mint one; it arrives back on the "created" event.
func (c *Client) Create(roomID string) {
	c.send(wire.Message{Kind: wire.KindCreate, RoomID: roomID})
}

func (c *Client) Join(roomID string) {
	c.send(wire.Message{Kind: wire.KindJoin, RoomID: roomID})
}

func (c *Client) SendOffer(roomID, to string, payload json.RawMessage) {
	c.send(wire.Message{Kind: wire.KindOffer, RoomID: roomID, To: to, Payload: payload})
}

func (c *Client) SendAnswer(roomID, to string, payload json.RawMessage) {
	c.send(wire.Message{Kind: wire.KindAnswer, RoomID: roomID, To: to, Payload: payload})
}

func (c *Client) SendCandidate(roomID, to string, payload json.RawMessage) {
	c.send(wire.Message{Kind: wire.KindCandidate, RoomID: roomID, To: to, Payload: payload})
}

func (c *Client) Stop(roomID string) {
	c.send(wire.Message{Kind: wire.KindStop, RoomID: roomID})
}

func (c *Client) Exit(roomID string) {
	c.send(wire.Message{Kind: wire.KindExit, RoomID: roomID})
}

// Close shuts the connection down and releases the pumps.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
