package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// pongWait bounds the silence tolerated from the peer. Every pong resets it.
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Conn serializes writes to a WebSocket connection, which gorilla/websocket
// allows from only one goroutine at a time.
type Conn struct {
	raw        *websocket.Conn
	mu         sync.Mutex
	pongWait   time.Duration
	pingPeriod time.Duration
}

// Wrap returns a Conn for raw. Pongs from the peer extend the read deadline.
func Wrap(raw *websocket.Conn) *Conn {
	return wrap(raw, pongWait, pingPeriod)
}

func wrap(raw *websocket.Conn, wait, period time.Duration) *Conn {
	c := &Conn{raw: raw, pongWait: wait, pingPeriod: period}
	_ = raw.SetReadDeadline(time.Now().Add(wait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	return c
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.raw.SetWriteDeadline(time.Now().Add(writeWait))
	return c.raw.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(code, errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: errMsg,
	})
}

// Ping sends a ping control frame.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// KeepAlive pings the peer until ctx is done or a ping fails. Call in a goroutine.
func (c *Conn) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Ping(); err != nil {
				return
			}
		}
	}
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func (c *Conn) ReadJSON(v interface{}) error {
	_ = c.raw.SetReadDeadline(time.Now().Add(c.pongWait))
	return c.raw.ReadJSON(v)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}
