package room

import "errors"

// Room errors are surfaced to the single requesting connection as a
// room-error message, never broadcast.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrGameInProgress      = errors.New("game already in progress")
	ErrNotHost             = errors.New("requester is not the host")
	ErrInsufficientPlayers = errors.New("not enough players")
)

// ErrorMessage maps a room error to the human-readable text sent on the
// wire.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrGameInProgress):
		return "Game already in progress"
	case errors.Is(err, ErrNotHost):
		return "Only the host can start the game"
	case errors.Is(err, ErrInsufficientPlayers):
		return "Need at least 2 players to start"
	}
	return err.Error()
}
