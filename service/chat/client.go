package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"ChatSync/logger"
	"ChatSync/model"
)

// Connection lifecycle. Only ACTIVE connections may join rooms or count
// toward presence; frames arriving in any other state are discarded.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticating
	StateActive
	StateClosing
	StateClosed
)

// Client is one live socket bound to a user. A user may hold several
// clients (tabs, devices), each with its own outbound queue drained by a
// single writer goroutine.
type Client struct {
	ConnID    string
	UserID    string
	User      *model.User
	CreatedAt time.Time

	ws        *websocket.Conn
	send      chan []byte
	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(connID string, ws *websocket.Conn, queueSize int) *Client {
	c := &Client{
		ConnID:    connID,
		CreatedAt: time.Now(),
		ws:        ws,
		send:      make(chan []byte, queueSize),
		done:      make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Client) State() ConnState        { return ConnState(c.state.Load()) }
func (c *Client) setState(s ConnState)    { c.state.Store(int32(s)) }
func (c *Client) bind(u *model.User) {
	c.User = u
	c.UserID = u.ID.Hex()
}

// enqueue pushes a payload onto the outbound queue without blocking. A
// full queue means a slow client; the frame is dropped, catch-up sync is
// the correctness backstop.
func (c *Client) enqueue(payload []byte) bool {
	if c.State() != StateActive || payload == nil {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		logger.Warnf("[client] send queue full, dropping frame conn=%s user=%s", c.ConnID, c.UserID)
		return false
	}
}

// writePump is the connection's only writer: queued frames plus periodic
// pings. It exits when close() fires or a write fails.
func (c *Client) writePump(pingInterval, writeWait time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debugf("[client] write failed conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		close(c.done)
	})
}
