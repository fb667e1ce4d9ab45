package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gravwars/internal/protocol"
	"gravwars/internal/room"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // clients connect from arbitrary origins
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server accepts websocket connections and routes room traffic.
type Server struct {
	registry *Registry
	rooms    *room.Store
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Server {
	return &Server{
		registry: NewRegistry(),
		rooms:    room.NewStore(logger),
		logger:   logger,
	}
}

// Start listens on addr and serves the websocket endpoint.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.logger.Info("server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := s.registry.Add(ws)
	s.logger.Info("client connected", zap.String("player", conn.id))

	if f, err := protocol.EncodeFrame(protocol.TypeConnectionID, protocol.ConnectionID{ID: conn.id}); err == nil {
		_ = conn.Send(f)
	}

	go s.writePump(conn)
	go s.readPump(conn)
}

// readPump handles every inbound frame for a connection, then its
// disconnect, on one goroutine, so message handling and teardown never
// race for the same connection state.
func (s *Server) readPump(conn *Conn) {
	defer func() {
		s.handleDisconnect(conn)
		conn.ws.Close()
	}()

	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.touch()
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed",
					zap.String("player", conn.id),
					zap.Error(err))
			}
			return
		}
		conn.touch()

		msg, err := protocol.DecodeClientFrame(protocol.Frame{
			Binary: mt == websocket.BinaryMessage,
			Data:   data,
		})
		if err != nil {
			// Protocol error: drop the message, keep the connection.
			s.logger.Warn("malformed message dropped",
				zap.String("player", conn.id),
				zap.Error(err))
			continue
		}

		s.dispatch(conn, msg)
	}
}

func (s *Server) writePump(conn *Conn) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()

	for {
		select {
		case f, ok := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			mt := websocket.TextMessage
			if f.Binary {
				mt = websocket.BinaryMessage
			}
			if err := conn.ws.WriteMessage(mt, f.Data); err != nil {
				s.logger.Warn("websocket write failed",
					zap.String("player", conn.id),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleDisconnect cascades a closed connection into a room departure.
func (s *Server) handleDisconnect(conn *Conn) {
	if !conn.shutdown() {
		return
	}
	s.logger.Info("client disconnected", zap.String("player", conn.id))
	s.leaveCurrentRoom(conn)
	s.registry.Remove(conn.id)
}
