package client

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"gravwars/internal/game"
	"gravwars/internal/protocol"
)

// roomMessageTypes are the handlers a session owns; Stop detaches all
// of them so the network manager can be reused without leaking
// registrations.
var roomMessageTypes = []string{
	protocol.TypeGameStarting,
	protocol.TypeGameStateUpdate,
	protocol.TypePlayerJoined,
	protocol.TypePlayerLeft,
	protocol.TypeGameEnded,
	protocol.TypeInputAck,
}

// Session is the network-synchronized game driver: it wires the
// room-scoped message handlers to the state-sync engine and roster
// mirror, and advances prediction and interpolation each render step.
type Session struct {
	net     *NetworkManager
	sync    *StateSync
	players *PlayerManager
	logger  *zap.Logger

	mu          sync.Mutex
	roomCode    string
	settings    game.Settings
	started     bool
	isHost      bool
	lastInputs  *game.InputState
	projectiles []*game.Projectile

	// OnEnded, when set, receives the winner (nil for a draw) after a
	// game-ended message.
	OnEnded func(winner *protocol.Winner)
}

func NewSession(net *NetworkManager, logger *zap.Logger, roomCode string) *Session {
	s := &Session{
		net:      net,
		players:  NewPlayerManager(),
		logger:   logger,
		roomCode: roomCode,
	}
	s.sync = NewStateSync(func(in protocol.PlayerInput) error {
		return net.Send(protocol.TypePlayerInput, in)
	})
	s.attachHandlers()
	return s
}

func (s *Session) attachHandlers() {
	s.net.On(protocol.TypeGameStarting, func(msg protocol.ServerMessage) {
		m := msg.(*protocol.GameStarting)
		s.handleGameStarting(m)
	})
	s.net.On(protocol.TypeGameStateUpdate, func(msg protocol.ServerMessage) {
		m := msg.(*protocol.GameStateUpdate)
		s.handleStateUpdate(m)
	})
	s.net.On(protocol.TypePlayerJoined, func(msg protocol.ServerMessage) {
		m := msg.(*protocol.PlayerJoined)
		s.players.Add(m.Player)
	})
	s.net.On(protocol.TypePlayerLeft, func(msg protocol.ServerMessage) {
		m := msg.(*protocol.PlayerLeft)
		s.players.Remove(m.PlayerID)
		if m.NewHostID != "" && m.NewHostID == s.net.ConnectionID() {
			s.mu.Lock()
			s.isHost = true
			s.mu.Unlock()
			s.logger.Info("promoted to host", zap.String("room", s.roomCode))
		}
	})
	s.net.On(protocol.TypeGameEnded, func(msg protocol.ServerMessage) {
		m := msg.(*protocol.GameEnded)
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		if s.OnEnded != nil {
			s.OnEnded(m.Winner)
		}
	})
	s.net.On(protocol.TypeInputAck, func(msg protocol.ServerMessage) {
		m := msg.(*protocol.InputAck)
		s.sync.HandleInputAck(m.Sequence)
	})
}

func (s *Session) handleGameStarting(m *protocol.GameStarting) {
	if m.GameState == nil {
		s.logger.Warn("game-starting without state", zap.String("room", s.roomCode))
		return
	}
	s.players.Initialize(m.GameState.Players, s.net.ConnectionID())
	s.mu.Lock()
	s.settings = m.Settings
	s.started = true
	s.mu.Unlock()
	s.logger.Info("game starting",
		zap.String("room", s.roomCode),
		zap.Int("players", len(m.GameState.Players)))
}

func (s *Session) handleStateUpdate(m *protocol.GameStateUpdate) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	s.sync.HandleStateUpdate(m, time.Now().UnixMilli())
}

// Started reports whether a game is in progress.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// IsHost reports whether the local player currently hosts the room.
func (s *Session) IsHost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isHost
}

// Settings returns the room settings delivered with game-starting.
func (s *Session) Settings() game.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Players exposes the roster mirror.
func (s *Session) Players() *PlayerManager { return s.players }

// Sync exposes the state-sync engine.
func (s *Session) Sync() *StateSync { return s.sync }

// Projectiles returns the most recently interpolated projectile set.
func (s *Session) Projectiles() []*game.Projectile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectiles
}

// Update runs one render step: interpolate remote state, transmit the
// local input when it changed, and predict the local ship forward by
// the elapsed time.
func (s *Session) Update(in game.InputState, now int64, dt float64) {
	if !s.Started() {
		return
	}

	renderTime := now - interpolationDelay.Milliseconds()
	if state := s.sync.InterpolatedState(renderTime); state != nil {
		s.players.UpdateFromState(state.Players)
		s.mu.Lock()
		s.projectiles = state.Projectiles
		s.mu.Unlock()
	}

	if local := s.players.Local(); local != nil && local.Alive {
		s.mu.Lock()
		changed := s.lastInputs == nil || *s.lastInputs != in
		if changed {
			s.lastInputs = &in
		}
		s.mu.Unlock()
		if changed {
			s.sync.SendInput(in, now)
		}
		PredictLocal(local, in, dt)
	}

	s.players.SmoothPositions()
}

// Stop detaches every room-scoped handler and resets sync state. The
// network connection itself stays open for reuse.
func (s *Session) Stop() {
	for _, t := range roomMessageTypes {
		s.net.Off(t)
	}
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	s.sync.Reset()
}
