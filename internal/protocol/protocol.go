// Package protocol defines the websocket message set exchanged between
// the game server and its clients. Every message travels in a
// {type, data, timestamp} envelope; payloads are a closed union decoded
// at the transport boundary.
package protocol

import (
	"encoding/json"

	"gravwars/internal/game"
)

// Server → client message types.
const (
	TypeConnectionID    = "connection-id"
	TypeRoomCreated     = "room-created"
	TypeRoomJoined      = "room-joined"
	TypePlayerJoined    = "player-joined"
	TypePlayerLeft      = "player-left"
	TypeRoomError       = "room-error"
	TypeGameStarting    = "game-starting"
	TypeGameStateUpdate = "game-state-update"
	TypeInputAck        = "input-ack"
	TypeGameEnded       = "game-ended"
	TypePong            = "pong"
)

// Client → server message types.
const (
	TypeCreateRoom  = "create-room"
	TypeJoinRoom    = "join-room"
	TypeLeaveRoom   = "leave-room"
	TypeStartGame   = "start-game"
	TypePlayerInput = "player-input"
	TypePing        = "ping"
)

// Envelope is the JSON wire envelope.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Frame is one websocket frame: JSON text or msgpack binary.
type Frame struct {
	Binary bool
	Data   []byte
}

// ServerMessage is the closed union of server → client payloads.
type ServerMessage interface {
	MessageType() string
}

// ClientMessage is the closed union of client → server payloads.
type ClientMessage interface {
	MessageType() string
}

// RoomInfo is the room summary included in create/join confirmations.
type RoomInfo struct {
	Code     string        `json:"code"`
	Settings game.Settings `json:"settings"`
}

// RoomPlayer is one roster entry as seen by clients.
type RoomPlayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
	Color  string `json:"color"`
	Ready  bool   `json:"ready"`
}

type ConnectionID struct {
	ID string `json:"id"`
}

type RoomCreated struct {
	Room       RoomInfo `json:"room"`
	PlayerID   string   `json:"playerId"`
	PlayerName string   `json:"playerName"`
}

type RoomJoined struct {
	Room    RoomInfo     `json:"room"`
	Players []RoomPlayer `json:"players"`
}

type PlayerJoined struct {
	Player RoomPlayer `json:"player"`
}

// PlayerLeft reports a departure. NewHostID is set only when the host
// changed.
type PlayerLeft struct {
	PlayerID  string `json:"playerId"`
	NewHostID string `json:"newHostId,omitempty"`
}

type RoomError struct {
	Message string `json:"message"`
}

type GameStarting struct {
	GameState *game.State   `json:"gameState"`
	Settings  game.Settings `json:"settings"`
}

// GameStateUpdate is the per-tick snapshot. It is the one payload
// encoded with msgpack and sent as a binary frame.
type GameStateUpdate struct {
	Players     map[string]*game.PlayerState `json:"players" msgpack:"players"`
	Projectiles []*game.Projectile           `json:"projectiles" msgpack:"projectiles"`
	Timestamp   int64                        `json:"timestamp" msgpack:"timestamp"`

	// LastProcessedInput is an optional reconciliation hint; zero when
	// acknowledgment travels via input-ack instead.
	LastProcessedInput uint64 `json:"lastProcessedInput,omitempty" msgpack:"lastProcessedInput"`
}

type InputAck struct {
	Sequence   uint64 `json:"sequence"`
	ServerTime int64  `json:"serverTime"`
}

// Winner identifies the sole survivor of a finished game.
type Winner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// GameEnded carries a nil Winner when nobody survived.
type GameEnded struct {
	Winner *Winner `json:"winner"`
}

type Pong struct{}

type CreateRoom struct {
	Name     string        `json:"name"`
	Settings game.Settings `json:"gameSettings"`
}

type JoinRoom struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type LeaveRoom struct{}

type StartGame struct {
	RoomCode string `json:"roomCode"`
}

type PlayerInput struct {
	Sequence  uint64          `json:"sequence"`
	Input     game.InputState `json:"input"`
	Timestamp int64           `json:"timestamp"`
}

type Ping struct{}

func (*ConnectionID) MessageType() string    { return TypeConnectionID }
func (*RoomCreated) MessageType() string     { return TypeRoomCreated }
func (*RoomJoined) MessageType() string      { return TypeRoomJoined }
func (*PlayerJoined) MessageType() string    { return TypePlayerJoined }
func (*PlayerLeft) MessageType() string      { return TypePlayerLeft }
func (*RoomError) MessageType() string       { return TypeRoomError }
func (*GameStarting) MessageType() string    { return TypeGameStarting }
func (*GameStateUpdate) MessageType() string { return TypeGameStateUpdate }
func (*InputAck) MessageType() string        { return TypeInputAck }
func (*GameEnded) MessageType() string       { return TypeGameEnded }
func (*Pong) MessageType() string            { return TypePong }

func (*CreateRoom) MessageType() string  { return TypeCreateRoom }
func (*JoinRoom) MessageType() string    { return TypeJoinRoom }
func (*LeaveRoom) MessageType() string   { return TypeLeaveRoom }
func (*StartGame) MessageType() string   { return TypeStartGame }
func (*PlayerInput) MessageType() string { return TypePlayerInput }
func (*Ping) MessageType() string        { return TypePing }
