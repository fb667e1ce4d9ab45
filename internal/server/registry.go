package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gravwars/internal/protocol"
)

// ErrConnClosed is returned by Send after the connection shut down.
var ErrConnClosed = errors.New("connection closed")

const sendBufferSize = 256

// Conn binds a websocket to a stable player identity.
type Conn struct {
	id string
	ws *websocket.Conn

	mu       sync.Mutex
	closed   bool
	roomCode string
	lastSeen time.Time

	send chan protocol.Frame
}

// ID returns the connection's stable player identity.
func (c *Conn) ID() string { return c.id }

// Send queues a frame for the write pump. A full queue drops the frame
// rather than stalling the room; only a closed connection reports
// failure. The mutex is held across the push so Send can never race the
// channel close in shutdown.
func (c *Conn) Send(f protocol.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		// Slow consumer; the next snapshot supersedes this one anyway.
	}
	return nil
}

// RoomCode returns the code of the room this connection is in, or "".
func (c *Conn) RoomCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

func (c *Conn) setRoomCode(code string) {
	c.mu.Lock()
	c.roomCode = code
	c.mu.Unlock()
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// LastSeen returns the time of the last inbound frame or pong.
func (c *Conn) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// shutdown flips the connection into its terminal state exactly once
// and closes the outbound queue so the write pump exits.
func (c *Conn) shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

// Registry issues identities for websocket connections and tracks the
// live set.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// Add registers a websocket and assigns it a fresh identity.
func (r *Registry) Add(ws *websocket.Conn) *Conn {
	c := &Conn{
		id:       "player-" + uuid.NewString(),
		ws:       ws,
		lastSeen: time.Now(),
		send:     make(chan protocol.Frame, sendBufferSize),
	}
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
	return c
}

// Remove forgets a connection.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Get looks up a connection by identity.
func (r *Registry) Get(id string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
