package room

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"gravwars/internal/game"
	"gravwars/internal/protocol"
)

const codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Store owns all live rooms, keyed by join code.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	byPlayer map[string]string // player identity → room code
	logger   *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{
		rooms:    make(map[string]*Room),
		byPlayer: make(map[string]string),
		logger:   logger,
	}
}

// Get returns the room for a code.
func (s *Store) Get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	return r, ok
}

// RoomFor returns the room a player currently belongs to.
func (s *Store) RoomFor(playerID string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	r, ok := s.rooms[code]
	return r, ok
}

// Create allocates a room with a fresh unique code and the creator as
// host.
func (s *Store) Create(hostID, hostName string, settings game.Settings, conn Conn) *Room {
	if hostName == "" {
		hostName = "Player 1"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.generateCodeLocked()
	r := &Room{
		code:     code,
		hostID:   hostID,
		settings: settings.Normalized(),
		phase:    PhaseWaiting,
		logger:   s.logger,
	}
	r.players = append(r.players, &Player{
		ID:     hostID,
		Name:   hostName,
		IsHost: true,
		Color:  palette[0],
		Conn:   conn,
	})
	s.rooms[code] = r
	s.byPlayer[hostID] = code

	s.logger.Info("room created",
		zap.String("room", code),
		zap.String("host", hostID))
	return r
}

func (s *Store) generateCodeLocked() string {
	for {
		code := randomCode(6)
		if _, exists := s.rooms[code]; !exists {
			return code
		}
	}
}

func randomCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}

// Join adds a player to a waiting room.
func (s *Store) Join(code, playerID, name string, conn Conn) (*Room, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) >= MaxRosterSize {
		return nil, nil, ErrRoomFull
	}
	if r.phase != PhaseWaiting {
		return nil, nil, ErrGameInProgress
	}

	if name == "" {
		name = fmt.Sprintf("Player %d", len(r.players)+1)
	}
	p := &Player{
		ID:    playerID,
		Name:  name,
		Color: r.nextColor(),
		Conn:  conn,
	}
	r.players = append(r.players, p)
	s.byPlayer[playerID] = code

	s.logger.Info("player joined room",
		zap.String("room", code),
		zap.String("player", playerID),
		zap.String("name", name))
	return r, p, nil
}

// LeaveResult describes the fallout of a departure.
type LeaveResult struct {
	Room        *Room
	PlayerID    string
	NewHostID   string // set only when the host changed
	RoomDeleted bool
}

// Leave removes a player from its room. An empty room is deleted
// synchronously, stopping its scheduler; otherwise a departing host
// hands off to the earliest remaining joiner.
func (s *Store) Leave(playerID string) (LeaveResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.byPlayer[playerID]
	if !ok {
		return LeaveResult{}, false
	}
	delete(s.byPlayer, playerID)
	r, ok := s.rooms[code]
	if !ok {
		return LeaveResult{}, false
	}

	r.mu.Lock()
	res := LeaveResult{Room: r, PlayerID: playerID}
	for i, p := range r.players {
		if p.ID == playerID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}

	// A departing player's ship stays out of the fight; the tick loop's
	// win check then sees one fewer contender.
	if r.gameState != nil {
		if ps, ok := r.gameState.Players[playerID]; ok {
			ps.Alive = false
		}
	}

	if len(r.players) == 0 {
		res.RoomDeleted = true
		delete(s.rooms, code)
		r.stopSchedulerLocked()
		r.mu.Unlock()
		s.logger.Info("room deleted", zap.String("room", code))
		return res, true
	}

	if r.hostID == playerID {
		next := r.players[0]
		next.IsHost = true
		r.hostID = next.ID
		res.NewHostID = next.ID
	}
	r.mu.Unlock()

	s.logger.Info("player left room",
		zap.String("room", code),
		zap.String("player", playerID),
		zap.String("newHost", res.NewHostID))
	return res, true
}

// Start transitions a waiting room to playing: builds the initial game
// state, announces game-starting to every member, and launches the tick
// scheduler.
func (s *Store) Start(code, requesterID string) error {
	s.mu.RLock()
	r, ok := s.rooms[code]
	s.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	if r.hostID != requesterID {
		r.mu.Unlock()
		return ErrNotHost
	}
	if len(r.players) < MinPlayersToStart {
		r.mu.Unlock()
		return ErrInsufficientPlayers
	}
	if r.phase != PhaseWaiting {
		r.mu.Unlock()
		return ErrGameInProgress
	}

	spawns := make([]game.Spawn, 0, len(r.players))
	for _, p := range r.players {
		spawns = append(spawns, game.Spawn{ID: p.ID, Name: p.Name, Color: p.Color})
	}
	r.gameState = game.NewState(spawns, r.settings, time.Now().UnixMilli())
	r.phase = PhasePlaying

	frame, err := protocol.EncodeFrame(protocol.TypeGameStarting, protocol.GameStarting{
		GameState: r.gameState,
		Settings:  r.settings,
	})
	conns := r.connsLocked("")
	r.mu.Unlock()

	if err != nil {
		s.logger.Error("encode game-starting", zap.String("room", code), zap.Error(err))
	} else {
		for _, c := range conns {
			_ = c.Send(frame)
		}
	}
	r.startScheduler()

	s.logger.Info("game started", zap.String("room", code), zap.Int("players", len(spawns)))
	return nil
}
