package room

import (
	"sync"

	"go.uber.org/zap"

	"gravwars/internal/game"
	"gravwars/internal/protocol"
)

// Phase is a room's lifecycle state.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

const (
	MaxRosterSize     = 4
	MinPlayersToStart = 2
)

// palette is assigned in join order; no two players in a room share a
// color.
var palette = []string{"blue", "red", "green", "yellow"}

// Conn is the transport handle a room needs to reach a member.
type Conn interface {
	ID() string
	Send(f protocol.Frame) error
}

// Player is one roster entry.
type Player struct {
	ID     string
	Name   string
	IsHost bool
	Color  string
	Ready  bool
	Conn   Conn
}

// Room is one match instance. The mutex serializes roster and game
// state access between the tick scheduler and inbound message handling.
type Room struct {
	mu        sync.Mutex
	code      string
	hostID    string
	settings  game.Settings
	phase     Phase
	players   []*Player // join order
	gameState *game.State
	stop      chan struct{}
	logger    *zap.Logger
}

// Code returns the room's join code.
func (r *Room) Code() string { return r.code }

// Phase returns the current lifecycle state.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// HostID returns the current host's identity.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// Settings returns the room's settings.
func (r *Room) Settings() game.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// Size returns the roster size.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Roster returns the wire form of the current roster, in join order.
func (r *Room) Roster() []protocol.RoomPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

func (r *Room) rosterLocked() []protocol.RoomPlayer {
	out := make([]protocol.RoomPlayer, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, protocol.RoomPlayer{
			ID:     p.ID,
			Name:   p.Name,
			IsHost: p.IsHost,
			Color:  p.Color,
			Ready:  p.Ready,
		})
	}
	return out
}

// nextColor picks the first palette color no current member uses.
func (r *Room) nextColor() string {
	for _, c := range palette {
		used := false
		for _, p := range r.players {
			if p.Color == c {
				used = true
				break
			}
		}
		if !used {
			return c
		}
	}
	return palette[len(palette)-1]
}

// ApplyInput records a player's intent flags for the next tick. It
// reports whether the input was accepted; inputs for dead players or
// rooms that are not playing are dropped.
func (r *Room) ApplyInput(playerID string, in game.InputState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhasePlaying || r.gameState == nil {
		return false
	}
	p, ok := r.gameState.Players[playerID]
	if !ok || !p.Alive {
		return false
	}
	p.Inputs = in
	return true
}

// Broadcast fans a frame out to every member except excludeID (empty
// means everyone).
func (r *Room) Broadcast(f protocol.Frame, excludeID string) {
	r.mu.Lock()
	conns := r.connsLocked(excludeID)
	r.mu.Unlock()
	for _, c := range conns {
		if err := c.Send(f); err != nil {
			r.logger.Warn("room broadcast dropped",
				zap.String("room", r.code),
				zap.String("player", c.ID()),
				zap.Error(err))
		}
	}
}

func (r *Room) connsLocked(excludeID string) []Conn {
	conns := make([]Conn, 0, len(r.players))
	for _, p := range r.players {
		if p.Conn == nil || p.ID == excludeID {
			continue
		}
		conns = append(conns, p.Conn)
	}
	return conns
}
