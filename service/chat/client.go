package chat

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"NewsWire/logger"
)

// Client is one live connection belonging to exactly one identity. A user may
// hold any number of clients (tabs, devices); each has its own buffered send
// queue drained by a single writer goroutine, since gorilla conns forbid
// concurrent writes.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Remote net.Addr

	Send chan []byte

	heartbeat atomic.Int64 // unix millis of last pong/traffic

	closed    atomic.Bool
	closeOnce sync.Once
	quit      chan struct{}
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	c := &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		quit:   make(chan struct{}),
	}
	if ws != nil {
		c.Remote = ws.RemoteAddr()
	}
	c.Touch()
	return c
}

// Enqueue offers a payload to the send queue without blocking. It reports
// false when the client is closed or the queue is saturated; the caller
// decides whether that connection should be dropped.
func (c *Client) Enqueue(payload []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Touch renews the heartbeat timestamp.
func (c *Client) Touch() {
	c.heartbeat.Store(time.Now().UnixMilli())
}

// HeartbeatAge reports how long ago the connection last showed life.
func (c *Client) HeartbeatAge() time.Duration {
	return time.Duration(time.Now().UnixMilli()-c.heartbeat.Load()) * time.Millisecond
}

func (c *Client) Closed() bool { return c.closed.Load() }

// Close tears the connection down exactly once. Safe from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.quit)
		if c.WS != nil {
			_ = c.WS.Close()
		}
	})
}

// CloseWithCode sends a close frame with an application close code before
// tearing down, so clients can distinguish rejection from network failure.
func (c *Client) CloseWithCode(code int, reason string, writeWait time.Duration) {
	if c.WS != nil {
		deadline := time.Now().Add(writeWait)
		_ = c.WS.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)
	}
	c.Close()
}

// writePump is the single writer for this connection: drains the send queue
// and keeps the peer alive with pings. Any write error ends the connection.
func (c *Client) writePump(writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.quit:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.WS.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debugf("[ws] write err conn=%s user=%s err=%v", c.ConnID, c.UserID, err)
				return
			}
		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Debugf("[ws] ping err conn=%s user=%s err=%v", c.ConnID, c.UserID, err)
				return
			}
		}
	}
}
