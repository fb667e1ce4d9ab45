package game

import "math"

// InputState holds a player's current intent flags.
type InputState struct {
	Thrust      bool `json:"thrust" msgpack:"thrust"`
	RotateLeft  bool `json:"rotateLeft" msgpack:"rotateLeft"`
	RotateRight bool `json:"rotateRight" msgpack:"rotateRight"`
	Fire        bool `json:"fire" msgpack:"fire"`
}

// PlayerState is one player's authoritative simulation state.
type PlayerState struct {
	X               float64    `json:"x" msgpack:"x"`
	Y               float64    `json:"y" msgpack:"y"`
	Angle           float64    `json:"angle" msgpack:"angle"` // facing direction in radians
	VelocityX       float64    `json:"velocityX" msgpack:"velocityX"`
	VelocityY       float64    `json:"velocityY" msgpack:"velocityY"`
	Health          int        `json:"health" msgpack:"health"`
	Score           int        `json:"score" msgpack:"score"` // kill count
	Color           string     `json:"color" msgpack:"color"`
	Name            string     `json:"name" msgpack:"name"`
	Alive           bool       `json:"alive" msgpack:"alive"`
	Inputs          InputState `json:"inputs" msgpack:"inputs"`
	LastFireTime    int64      `json:"lastFireTime" msgpack:"lastFireTime"` // ms
	ProjectileCount int        `json:"projectileCount" msgpack:"projectileCount"`

	lastGroundDamage int64 // ms, server-side only
}

// Projectile is a live shot. OwnerID is a weak back-reference used only
// to decrement the owner's live count on removal.
type Projectile struct {
	ID        string  `json:"id" msgpack:"id"` // ownerID + spawn timestamp
	OwnerID   string  `json:"ownerId" msgpack:"ownerId"`
	X         float64 `json:"x" msgpack:"x"`
	Y         float64 `json:"y" msgpack:"y"`
	VelocityX float64 `json:"velocityX" msgpack:"velocityX"`
	VelocityY float64 `json:"velocityY" msgpack:"velocityY"`
	Lifetime  float64 `json:"lifetime" msgpack:"lifetime"` // remaining ms
}

// State is the authoritative game state of one playing room.
type State struct {
	Players     map[string]*PlayerState `json:"players" msgpack:"players"`
	Projectiles []*Projectile           `json:"projectiles" msgpack:"projectiles"`
	Timestamp   int64                   `json:"timestamp" msgpack:"timestamp"`
	Settings    Settings                `json:"settings" msgpack:"settings"`
}

// Spawn identifies one roster entry for initial placement.
type Spawn struct {
	ID    string
	Name  string
	Color string
}

// NewState builds the initial game state: players evenly spaced on a
// circle around the arena center, facing inward, at full health.
func NewState(spawns []Spawn, settings Settings, now int64) *State {
	s := &State{
		Players:     make(map[string]*PlayerState, len(spawns)),
		Projectiles: make([]*Projectile, 0),
		Timestamp:   now,
		Settings:    settings.Normalized(),
	}
	count := len(spawns)
	for i, sp := range spawns {
		angle := float64(i) / float64(count) * 2 * math.Pi
		s.Players[sp.ID] = &PlayerState{
			X:      SpawnCenterX + math.Cos(angle)*SpawnRadius,
			Y:      SpawnCenterY + math.Sin(angle)*SpawnRadius,
			Angle:  angle + math.Pi, // face the center
			Health: MaxHealth,
			Color:  sp.Color,
			Name:   sp.Name,
			Alive:  true,
		}
	}
	return s
}

// AliveCount returns the number of living players.
func (s *State) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Alive {
			n++
		}
	}
	return n
}
