package core

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the outbound side of a player's transport.
type Conn interface {
	Send(data []byte) error
	Close() error
}

type WebSocketConn struct {
	Conn   *websocket.Conn
	Binary bool
	mu     sync.Mutex
}

func (c *WebSocketConn) Send(data []byte) error {
	msgType := websocket.TextMessage
	if c.Binary {
		msgType = websocket.BinaryMessage
	}
	// WriteMessage is not safe for concurrent use.
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	return c.Conn.WriteMessage(msgType, data)
}

func (c *WebSocketConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	return c.Conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *WebSocketConn) Close() error {
	return c.Conn.Close()
}
