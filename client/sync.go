package client

import (
	"math"
	"sync"
	"time"

	"gravwars/internal/game"
	"gravwars/internal/protocol"
)

const (
	// interpolationDelay offsets render time into the past so two
	// buffered snapshots are normally available to blend between.
	interpolationDelay = 100 * time.Millisecond
	// bufferRetention bounds how far back the snapshot buffer reaches.
	bufferRetention = time.Second
)

// Prediction runs on fixed approximations of the room physics; the next
// reconciled server snapshot overwrites whatever it produced.
const (
	predictRotationSpeed = 5.0
	predictThrustPower   = 500.0
	predictAirResistance = 0.99
)

// PendingInput is one locally applied input awaiting server
// acknowledgment.
type PendingInput struct {
	Sequence  uint64
	Input     game.InputState
	Timestamp int64
}

type bufferedState struct {
	timestamp   int64
	players     map[string]*game.PlayerState
	projectiles []*game.Projectile
}

// InterpolatedState is the blend of two buffered snapshots at a render
// time.
type InterpolatedState struct {
	Players     map[string]*game.PlayerState
	Projectiles []*game.Projectile
}

// StateSync sequences outbound inputs, reconciles acknowledgments, and
// answers time-delayed interpolation queries over the snapshot buffer.
type StateSync struct {
	mu            sync.Mutex
	send          func(protocol.PlayerInput) error
	inputSeq      uint64
	pending       []PendingInput
	lastProcessed uint64
	buffer        []bufferedState
	lastServer    *bufferedState
}

// NewStateSync wires the engine to an input transmit function, usually
// a NetworkManager send.
func NewStateSync(send func(protocol.PlayerInput) error) *StateSync {
	return &StateSync{send: send}
}

// SendInput assigns the next sequence number, logs the input as
// pending, and transmits it. The send may fail silently while
// disconnected; the input stays pending either way.
func (s *StateSync) SendInput(in game.InputState, now int64) uint64 {
	s.mu.Lock()
	s.inputSeq++
	seq := s.inputSeq
	s.pending = append(s.pending, PendingInput{Sequence: seq, Input: in, Timestamp: now})
	send := s.send
	s.mu.Unlock()

	if send != nil {
		_ = send(protocol.PlayerInput{Sequence: seq, Input: in, Timestamp: now})
	}
	return seq
}

// HandleStateUpdate buffers a server snapshot, prunes entries older
// than the retention window, and reconciles when the update carries an
// acknowledgment.
func (s *StateSync) HandleStateUpdate(u *protocol.GameStateUpdate, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := bufferedState{
		timestamp:   u.Timestamp,
		players:     u.Players,
		projectiles: u.Projectiles,
	}
	s.buffer = append(s.buffer, entry)
	s.lastServer = &entry

	cutoff := now - bufferRetention.Milliseconds()
	kept := s.buffer[:0]
	for _, b := range s.buffer {
		if b.timestamp > cutoff {
			kept = append(kept, b)
		}
	}
	s.buffer = kept

	if u.LastProcessedInput > 0 {
		s.reconcileLocked(u.LastProcessedInput)
	}
}

// HandleInputAck reconciles against an input-ack message.
func (s *StateSync) HandleInputAck(sequence uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileLocked(sequence)
}

func (s *StateSync) reconcileLocked(sequence uint64) {
	if sequence <= s.lastProcessed {
		return
	}
	s.lastProcessed = sequence
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.Sequence > sequence {
			kept = append(kept, p)
		}
	}
	s.pending = kept
}

// PendingInputs returns a copy of the unacknowledged input log.
func (s *StateSync) PendingInputs() []PendingInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingInput, len(s.pending))
	copy(out, s.pending)
	return out
}

// LastProcessed returns the highest acknowledged input sequence.
func (s *StateSync) LastProcessed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProcessed
}

// Reset drops all sync state, e.g. when leaving a room.
func (s *StateSync) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputSeq = 0
	s.pending = nil
	s.lastProcessed = 0
	s.buffer = nil
	s.lastServer = nil
}

// InterpolatedState blends the two buffered snapshots straddling
// renderTime. With no straddling pair it falls back to the newest
// buffered snapshot, then to the last known server state, then to nil.
func (s *StateSync) InterpolatedState(renderTime int64) *InterpolatedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prev, next *bufferedState
	for i := 0; i+1 < len(s.buffer); i++ {
		if s.buffer[i].timestamp <= renderTime && s.buffer[i+1].timestamp >= renderTime {
			prev = &s.buffer[i]
			next = &s.buffer[i+1]
			break
		}
	}
	if prev != nil && next != nil {
		total := next.timestamp - prev.timestamp
		ratio := 0.0
		if total > 0 {
			ratio = float64(renderTime-prev.timestamp) / float64(total)
		}
		return interpolate(prev, next, ratio)
	}

	if len(s.buffer) > 0 {
		latest := &s.buffer[len(s.buffer)-1]
		return &InterpolatedState{Players: latest.players, Projectiles: latest.projectiles}
	}
	if s.lastServer != nil {
		return &InterpolatedState{Players: s.lastServer.players, Projectiles: s.lastServer.projectiles}
	}
	return nil
}

// interpolate linearly blends position, and facing angle along the
// shorter angular path, for every player present in both snapshots.
// Non-continuous fields come from the later snapshot verbatim.
func interpolate(a, b *bufferedState, ratio float64) *InterpolatedState {
	out := &InterpolatedState{Players: make(map[string]*game.PlayerState, len(a.players))}

	for id, pa := range a.players {
		pb, ok := b.players[id]
		if !ok {
			continue
		}
		out.Players[id] = &game.PlayerState{
			X:               pa.X + (pb.X-pa.X)*ratio,
			Y:               pa.Y + (pb.Y-pa.Y)*ratio,
			Angle:           interpolateAngle(pa.Angle, pb.Angle, ratio),
			VelocityX:       pb.VelocityX,
			VelocityY:       pb.VelocityY,
			Health:          pb.Health,
			Score:           pb.Score,
			Alive:           pb.Alive,
			Color:           pb.Color,
			Name:            pb.Name,
			ProjectileCount: pb.ProjectileCount,
		}
	}

	// Projectiles are matched by identity; anything absent from the
	// later snapshot is already gone and is dropped.
	later := make(map[string]*game.Projectile, len(b.projectiles))
	for _, pr := range b.projectiles {
		later[pr.ID] = pr
	}
	for _, pra := range a.projectiles {
		prb, ok := later[pra.ID]
		if !ok {
			continue
		}
		out.Projectiles = append(out.Projectiles, &game.Projectile{
			ID:      pra.ID,
			OwnerID: pra.OwnerID,
			X:       pra.X + (prb.X-pra.X)*ratio,
			Y:       pra.Y + (prb.Y-pra.Y)*ratio,
		})
	}
	return out
}

// interpolateAngle blends two angles along the shorter wrap-around
// path, so the output never swings further than pi.
func interpolateAngle(a, b, ratio float64) float64 {
	diff := b - a
	if diff > math.Pi {
		b -= 2 * math.Pi
	} else if diff < -math.Pi {
		b += 2 * math.Pi
	}
	return a + (b-a)*ratio
}

// PredictLocal advances the local player's ship by elapsed wall time
// using the simulation's rotation, thrust, drag, and integration rules
// with fixed constants. Position saturates at the arena inset; the
// bounce behavior is left to the server.
func PredictLocal(p *Player, in game.InputState, dt float64) {
	if in.RotateLeft {
		p.Angle -= predictRotationSpeed * dt
	}
	if in.RotateRight {
		p.Angle += predictRotationSpeed * dt
	}
	if in.Thrust {
		p.VelocityX += math.Cos(p.Angle) * predictThrustPower * dt
		p.VelocityY += math.Sin(p.Angle) * predictThrustPower * dt
	}

	// The server applies drag once per fixed tick; scale the damping to
	// the actual elapsed time here.
	drag := math.Pow(predictAirResistance, dt*game.TickRate)
	p.VelocityX *= drag
	p.VelocityY *= drag

	p.X += p.VelocityX * dt
	p.Y += p.VelocityY * dt

	p.X = math.Max(game.ArenaInset, math.Min(game.ArenaWidth-game.ArenaInset, p.X))
	p.Y = math.Max(game.ArenaInset, math.Min(game.ArenaHeight-game.ArenaInset, p.Y))
}
