package server

import (
	"time"

	"go.uber.org/zap"

	"gravwars/internal/protocol"
	"gravwars/internal/room"
)

func (s *Server) dispatch(conn *Conn, msg protocol.ClientMessage) {
	switch m := msg.(type) {
	case *protocol.CreateRoom:
		s.handleCreateRoom(conn, m)
	case *protocol.JoinRoom:
		s.handleJoinRoom(conn, m)
	case *protocol.LeaveRoom:
		s.leaveCurrentRoom(conn)
	case *protocol.StartGame:
		s.handleStartGame(conn, m)
	case *protocol.PlayerInput:
		s.handlePlayerInput(conn, m)
	case *protocol.Ping:
		s.reply(conn, protocol.TypePong, protocol.Pong{})
	}
}

// reply sends a single message back to the requesting connection.
func (s *Server) reply(conn *Conn, msgType string, payload any) {
	f, err := protocol.EncodeFrame(msgType, payload)
	if err != nil {
		s.logger.Error("encode reply", zap.String("type", msgType), zap.Error(err))
		return
	}
	_ = conn.Send(f)
}

// roomError surfaces a room failure to the requester only.
func (s *Server) roomError(conn *Conn, err error) {
	s.reply(conn, protocol.TypeRoomError, protocol.RoomError{Message: room.ErrorMessage(err)})
}

func (s *Server) handleCreateRoom(conn *Conn, m *protocol.CreateRoom) {
	// Creating while in a room implies leaving the old one first.
	s.leaveCurrentRoom(conn)

	r := s.rooms.Create(conn.id, m.Name, m.Settings, conn)
	conn.setRoomCode(r.Code())

	roster := r.Roster()
	s.reply(conn, protocol.TypeRoomCreated, protocol.RoomCreated{
		Room:       protocol.RoomInfo{Code: r.Code(), Settings: r.Settings()},
		PlayerID:   conn.id,
		PlayerName: roster[0].Name,
	})
}

func (s *Server) handleJoinRoom(conn *Conn, m *protocol.JoinRoom) {
	r, p, err := s.rooms.Join(m.RoomCode, conn.id, m.PlayerName, conn)
	if err != nil {
		s.roomError(conn, err)
		return
	}
	conn.setRoomCode(r.Code())

	s.reply(conn, protocol.TypeRoomJoined, protocol.RoomJoined{
		Room:    protocol.RoomInfo{Code: r.Code(), Settings: r.Settings()},
		Players: r.Roster(),
	})

	joined, err := protocol.EncodeFrame(protocol.TypePlayerJoined, protocol.PlayerJoined{
		Player: protocol.RoomPlayer{ID: p.ID, Name: p.Name, Color: p.Color},
	})
	if err != nil {
		s.logger.Error("encode player-joined", zap.Error(err))
		return
	}
	r.Broadcast(joined, conn.id)
}

// leaveCurrentRoom removes the connection from its room, if any, and
// notifies the remaining members.
func (s *Server) leaveCurrentRoom(conn *Conn) {
	res, ok := s.rooms.Leave(conn.id)
	conn.setRoomCode("")
	if !ok || res.RoomDeleted {
		return
	}

	left, err := protocol.EncodeFrame(protocol.TypePlayerLeft, protocol.PlayerLeft{
		PlayerID:  res.PlayerID,
		NewHostID: res.NewHostID,
	})
	if err != nil {
		s.logger.Error("encode player-left", zap.Error(err))
		return
	}
	res.Room.Broadcast(left, "")
}

func (s *Server) handleStartGame(conn *Conn, m *protocol.StartGame) {
	if err := s.rooms.Start(m.RoomCode, conn.id); err != nil {
		s.roomError(conn, err)
	}
}

func (s *Server) handlePlayerInput(conn *Conn, m *protocol.PlayerInput) {
	r, ok := s.rooms.RoomFor(conn.id)
	if !ok {
		return
	}
	if !r.ApplyInput(conn.id, m.Input) {
		return
	}
	s.reply(conn, protocol.TypeInputAck, protocol.InputAck{
		Sequence:   m.Sequence,
		ServerTime: time.Now().UnixMilli(),
	})
}
