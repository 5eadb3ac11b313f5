package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame types sent to clients
const (
	FrameEvent      = "event"
	FrameResult     = "result"
	FrameSubscribed = "subscribed"
	FrameError      = "error"
)

// Command types accepted from clients
const (
	CmdSubscribe   = "subscribe"
	CmdUnsubscribe = "unsubscribe"
	CmdChat        = "chat"
)

// Command is a client-initiated control message.
type Command struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Frame is a server-initiated message. Exactly one payload field is set,
// matching Type.
type Frame struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Event     interface{} `json:"event,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ClientInfo is a point-in-time view of one connected client.
type ClientInfo struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId,omitempty"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastActivity time.Time `json:"lastActivity"`
	IPAddress    string    `json:"ipAddress"`
	Idle         bool      `json:"idle"`
}

// Client is one connected WebSocket observer. A client follows at most one
// session at a time; re-subscribing moves it.
type Client struct {
	ID           string
	Conn         *websocket.Conn
	ConnectedAt  time.Time
	LastActivity time.Time
	IPAddress    string

	mu          sync.Mutex
	sessionID   string
	unsubscribe func()
}

// send marshals and writes one frame. Writes are serialized because bus
// deliveries and chat results arrive from different goroutines.
func (c *Client) send(frame Frame) error {
	if frame.Timestamp == 0 {
		frame.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// follow records the client's current subscription, dropping any previous
// one.
func (c *Client) follow(sessionID string, unsubscribe func()) {
	c.mu.Lock()
	prev := c.unsubscribe
	c.sessionID = sessionID
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// unfollow drops the client's current subscription, if any.
func (c *Client) unfollow() {
	c.mu.Lock()
	prev := c.unsubscribe
	c.sessionID = ""
	c.unsubscribe = nil
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}
