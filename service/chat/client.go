package chat

import (
	"sync"
	"time"

	"MeetChat/logger"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	pingEvery    = 25 * time.Second
)

// Client is one live session of one user. A user may hold many clients
// (multi-device/multi-tab); each is owned by the registry while live and
// destroyed on disconnect. All writes go through the Send queue, drained by a
// single writer goroutine (gorilla conns do not allow concurrent writes).
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// TrySend enqueues without blocking. false means the client is too slow or
// gone; the caller decides to drop it.
func (c *Client) TrySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// WritePump drains the send queue onto the socket and keeps the connection
// alive with pings. Runs until Close or a write error.
func (c *Client) WritePump() {
	t := time.NewTicker(pingEvery)
	defer t.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write conn=%s user=%s: %v", c.ConnID, c.UserID, err)
				c.Close()
				return
			}
		case <-t.C:
			if err := c.WS.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Close shuts the socket once; safe from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.WS != nil {
			_ = c.WS.Close()
		}
	})
}
