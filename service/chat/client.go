package chat

import (
	"github.com/gorilla/websocket"
)

// Client is one live connection's session state: transport handle, the
// identity bound by the auth frame (zero until then), and the rooms this
// connection is subscribed to. A user may hold several Clients at once
// (multi-device); each is tracked separately.
//
// UserID/Authed/rooms are touched only by the connection's own read loop,
// so they need no lock. Send is drained by a single writer goroutine.
type Client struct {
	ConnID string
	UserID int64
	Authed bool
	WS     *websocket.Conn
	Send   chan []byte

	// done is closed on teardown. Send is never closed: broadcasters may
	// hold a registry snapshot taken just before removal, so closing the
	// channel would race their enqueue.
	done  chan struct{}
	rooms map[int64]struct{}
}

// NewClient creates the session object bound to one transport connection.
func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		rooms:  make(map[int64]struct{}),
	}
}

// Done reports connection teardown to the writer goroutine.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) AddRoom(roomID int64) { c.rooms[roomID] = struct{}{} }

func (c *Client) InRoom(roomID int64) bool {
	_, ok := c.rooms[roomID]
	return ok
}

// Rooms returns a snapshot of subscribed room ids.
func (c *Client) Rooms() []int64 {
	out := make([]int64, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// enqueue offers a payload to the connection's send queue without blocking.
// A full queue means a slow client; the payload is dropped for this
// connection only.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Enqueue is the exported form used by handlers and the broadcaster.
func (c *Client) Enqueue(payload []byte) bool { return c.enqueue(payload) }
