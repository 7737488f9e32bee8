// Package transport implements the real duplex channel the room package's
// Sink capability abstracts over: one Client per WebSocket connection, split
// into a readPump and a writePump goroutine exactly as the teacher's
// session.Client does, so that Sink.WriteJSON is a non-blocking channel send
// and the actual socket write never happens under a room's lock (§5, and see
// room.broadcastLocked's doc comment).
package transport

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

// wsConnection narrows *websocket.Conn to what Client needs, mirroring the
// teacher's session.wsConnection — substituted by a fake in tests.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// Client is one live WebSocket connection, satisfying room.Sink. send is a
// buffered channel drained by writePump; WriteJSON only ever enqueues onto
// it, matching the teacher's Client.send/writePump split.
type Client struct {
	conn wsConnection
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient wraps a raw connection. Callers must start readPump/writePump
// themselves (see Hub.ServeWS) once the connection's room/role is known.
func NewClient(conn wsConnection) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// WriteJSON marshals value and enqueues it; it never blocks on the network.
// A full send buffer (a client falling too far behind) is reported as an
// error so the caller (room.broadcastLocked) can prune the connection.
func (c *Client) WriteJSON(value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// Closed reports whether the connection has been torn down.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close marks the connection closed and stops its writer goroutine by
// closing the send channel, mirroring the teacher's writePump sentinel loop
// (range over send exits once the channel is closed).
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	return c.conn.Close()
}

// writePump drains send and writes each message to the socket; it exits
// when send is closed, then sends a close frame, exactly like the teacher's
// Client.writePump.
func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump blocks reading frames off the socket and hands each to handle.
// It returns (and the caller tears the connection down) on any read error.
func (c *Client) readPump(handle func(data []byte)) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const (
	errClosed         = sentinelError("connection closed")
	errSendBufferFull = sentinelError("client send buffer full")
)
