package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// stateUpdateMsg is the msgpack form of the snapshot envelope. The
// payload is embedded as a concrete struct rather than raw bytes so the
// whole frame marshals in one pass.
type stateUpdateMsg struct {
	Type      string          `msgpack:"type"`
	Data      GameStateUpdate `msgpack:"data"`
	Timestamp int64           `msgpack:"timestamp"`
}

// EncodeFrame wraps a payload in the JSON envelope.
func EncodeFrame(msgType string, payload any) (Frame, error) {
	if msgType == "" {
		return Frame{}, fmt.Errorf("encode: empty message type")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s: %w", msgType, err)
	}
	env := Envelope{Type: msgType, Data: data, Timestamp: time.Now().UnixMilli()}
	b, err := json.Marshal(env)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return Frame{Data: b}, nil
}

// EncodeStateFrame encodes the high-rate snapshot as a msgpack binary
// frame.
func EncodeStateFrame(u GameStateUpdate) (Frame, error) {
	b, err := msgpack.Marshal(stateUpdateMsg{
		Type:      TypeGameStateUpdate,
		Data:      u,
		Timestamp: u.Timestamp,
	})
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s: %w", TypeGameStateUpdate, err)
	}
	return Frame{Binary: true, Data: b}, nil
}

// DecodeClientFrame decodes one client → server frame into its payload
// variant.
func DecodeClientFrame(f Frame) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(f.Data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var msg ClientMessage
	switch env.Type {
	case TypeCreateRoom:
		msg = &CreateRoom{}
	case TypeJoinRoom:
		msg = &JoinRoom{}
	case TypeLeaveRoom:
		msg = &LeaveRoom{}
	case TypeStartGame:
		msg = &StartGame{}
	case TypePlayerInput:
		msg = &PlayerInput{}
	case TypePing:
		msg = &Ping{}
	default:
		return nil, fmt.Errorf("decode: unknown client message type %q", env.Type)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return msg, nil
}

// DecodeServerFrame decodes one server → client frame. Binary frames
// always carry the msgpack snapshot; everything else is JSON.
func DecodeServerFrame(f Frame) (ServerMessage, error) {
	if f.Binary {
		var m stateUpdateMsg
		if err := msgpack.Unmarshal(f.Data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeGameStateUpdate, err)
		}
		return &m.Data, nil
	}

	var env Envelope
	if err := json.Unmarshal(f.Data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var msg ServerMessage
	switch env.Type {
	case TypeConnectionID:
		msg = &ConnectionID{}
	case TypeRoomCreated:
		msg = &RoomCreated{}
	case TypeRoomJoined:
		msg = &RoomJoined{}
	case TypePlayerJoined:
		msg = &PlayerJoined{}
	case TypePlayerLeft:
		msg = &PlayerLeft{}
	case TypeRoomError:
		msg = &RoomError{}
	case TypeGameStarting:
		msg = &GameStarting{}
	case TypeGameStateUpdate:
		msg = &GameStateUpdate{}
	case TypeInputAck:
		msg = &InputAck{}
	case TypeGameEnded:
		msg = &GameEnded{}
	case TypePong:
		msg = &Pong{}
	default:
		return nil, fmt.Errorf("decode: unknown server message type %q", env.Type)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return msg, nil
}
