package client

import (
	"math"
	"sync"

	"gravwars/internal/game"
	"gravwars/internal/protocol"
)

// smoothingFactor eases remote players toward their latest reported
// position each render step.
const smoothingFactor = 0.2

// Player is the client-side view of one roster member: raw
// server-reported fields plus the derived render fields.
type Player struct {
	ID              string
	Name            string
	Color           string
	IsHost          bool
	X               float64
	Y               float64
	Angle           float64
	VelocityX       float64
	VelocityY       float64
	Health          int
	Score           int
	Alive           bool
	ProjectileCount int
	IsLocal         bool

	interpolatedX     float64
	interpolatedY     float64
	interpolatedAngle float64

	RenderX     float64
	RenderY     float64
	RenderAngle float64
}

// PlayerManager mirrors the room roster. Exactly one entry is local;
// it is driven by prediction while all others follow interpolation.
type PlayerManager struct {
	mu      sync.Mutex
	players map[string]*Player
	localID string
}

func NewPlayerManager() *PlayerManager {
	return &PlayerManager{players: make(map[string]*Player)}
}

// Initialize rebuilds the roster from the game-start payload and tags
// the local player by its network-assigned identity.
func (m *PlayerManager) Initialize(states map[string]*game.PlayerState, localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localID = localID
	m.players = make(map[string]*Player, len(states))
	for id, ps := range states {
		m.players[id] = &Player{
			ID:                id,
			Name:              ps.Name,
			Color:             ps.Color,
			X:                 ps.X,
			Y:                 ps.Y,
			Angle:             ps.Angle,
			VelocityX:         ps.VelocityX,
			VelocityY:         ps.VelocityY,
			Health:            ps.Health,
			Score:             ps.Score,
			Alive:             ps.Alive,
			IsLocal:           id == localID,
			interpolatedX:     ps.X,
			interpolatedY:     ps.Y,
			interpolatedAngle: ps.Angle,
		}
	}
}

// Add inserts a roster entry from a player-joined event.
func (m *PlayerManager) Add(rp protocol.RoomPlayer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.players[rp.ID]; exists {
		return
	}
	m.players[rp.ID] = &Player{
		ID:      rp.ID,
		Name:    rp.Name,
		Color:   rp.Color,
		IsHost:  rp.IsHost,
		IsLocal: rp.ID == m.localID,
		Alive:   true,
	}
}

// Remove drops a roster entry.
func (m *PlayerManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, id)
}

// Get returns one player by identity.
func (m *PlayerManager) Get(id string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	return p, ok
}

// Local returns the local player, or nil before initialization.
func (m *PlayerManager) Local() *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[m.localID]
}

// All returns every player.
func (m *PlayerManager) All() []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	return out
}

// Alive returns the living players.
func (m *PlayerManager) Alive() []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// UpdateFromState applies a server (or interpolated) state. Remote
// players take every field; the local player keeps its predicted
// position, velocity, and angle and takes only the authoritative
// non-positional fields. Unmatched identities are left untouched.
func (m *PlayerManager) UpdateFromState(states map[string]*game.PlayerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ps := range states {
		p, ok := m.players[id]
		if !ok {
			continue
		}
		if p.IsLocal {
			p.Health = ps.Health
			p.Score = ps.Score
			p.Alive = ps.Alive
			p.ProjectileCount = ps.ProjectileCount
			continue
		}
		p.X = ps.X
		p.Y = ps.Y
		p.Angle = ps.Angle
		p.VelocityX = ps.VelocityX
		p.VelocityY = ps.VelocityY
		p.Health = ps.Health
		p.Score = ps.Score
		p.Alive = ps.Alive
		p.Color = ps.Color
		p.Name = ps.Name
		p.ProjectileCount = ps.ProjectileCount
	}
}

// SmoothPositions advances the render fields: remote players ease
// toward their latest reported position, the local player renders its
// predicted position directly.
func (m *PlayerManager) SmoothPositions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.IsLocal {
			p.RenderX = p.X
			p.RenderY = p.Y
			p.RenderAngle = p.Angle
			continue
		}
		p.interpolatedX += (p.X - p.interpolatedX) * smoothingFactor
		p.interpolatedY += (p.Y - p.interpolatedY) * smoothingFactor
		p.interpolatedAngle += normalizeAngleDelta(p.Angle-p.interpolatedAngle) * smoothingFactor
		p.RenderX = p.interpolatedX
		p.RenderY = p.interpolatedY
		p.RenderAngle = p.interpolatedAngle
	}
}

func normalizeAngleDelta(delta float64) float64 {
	for delta > math.Pi {
		delta -= 2 * math.Pi
	}
	for delta < -math.Pi {
		delta += 2 * math.Pi
	}
	return delta
}

// AvailableColors returns the palette colors no current player uses.
func (m *PlayerManager) AvailableColors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := make(map[string]bool, len(m.players))
	for _, p := range m.players {
		used[p.Color] = true
	}
	all := []string{"blue", "red", "green", "yellow"}
	out := make([]string, 0, len(all))
	for _, c := range all {
		if !used[c] {
			out = append(out, c)
		}
	}
	return out
}
