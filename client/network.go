// Package client implements the game-facing side of the wire protocol:
// connection management with reconnect and latency probing, the
// prediction/reconciliation/interpolation state-sync engine, and the
// local roster mirror.
package client

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gravwars/internal/protocol"
)

// ErrNotConnected is returned by Send when the transport is not open.
// Callers are expected to tolerate dropped sends.
var ErrNotConnected = errors.New("not connected")

const (
	defaultPingInterval     = 5 * time.Second
	defaultReconnectBase    = time.Second
	defaultMaxReconnectTrys = 5
)

// Handler consumes one decoded server message.
type Handler func(msg protocol.ServerMessage)

// NetworkManager owns the client websocket: connect, reconnect with
// exponential back-off, latency probing, and dispatch of inbound
// messages by type.
type NetworkManager struct {
	logger *zap.Logger

	mu            sync.Mutex
	url           string
	ws            *websocket.Conn
	connected     bool
	closing       bool
	connectionID  string
	attempts      int
	reconnectBase time.Duration
	maxAttempts   int
	handlers      map[string]Handler
	latency       time.Duration
	lastPingAt    time.Time
	stopPing      chan struct{}

	// OnConnect and OnDisconnect, when set, observe transport lifecycle
	// transitions.
	OnConnect    func()
	OnDisconnect func(err error)
}

func NewNetworkManager(logger *zap.Logger) *NetworkManager {
	return &NetworkManager{
		logger:        logger,
		reconnectBase: defaultReconnectBase,
		maxAttempts:   defaultMaxReconnectTrys,
		handlers:      make(map[string]Handler),
	}
}

// Connect dials the server and starts the read and ping loops.
func (n *NetworkManager) Connect(url string) error {
	n.mu.Lock()
	if n.connected {
		n.mu.Unlock()
		return nil
	}
	n.url = url
	n.closing = false
	n.mu.Unlock()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.ws = ws
	n.connected = true
	n.attempts = 0
	stopPing := make(chan struct{})
	n.stopPing = stopPing
	n.mu.Unlock()

	n.logger.Info("connected to game server", zap.String("url", url))
	if n.OnConnect != nil {
		n.OnConnect()
	}

	go n.readLoop(ws)
	go n.pingLoop(stopPing)
	return nil
}

// Disconnect performs a clean close. A clean close never triggers
// reconnection.
func (n *NetworkManager) Disconnect() {
	n.mu.Lock()
	n.closing = true
	ws := n.ws
	n.connected = false
	if n.stopPing != nil {
		close(n.stopPing)
		n.stopPing = nil
	}
	n.mu.Unlock()

	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"),
			time.Now().Add(time.Second))
		ws.Close()
	}
}

// On registers the handler for a message type. Last registration wins.
func (n *NetworkManager) On(msgType string, h Handler) {
	n.mu.Lock()
	n.handlers[msgType] = h
	n.mu.Unlock()
}

// Off removes the handler for a message type.
func (n *NetworkManager) Off(msgType string) {
	n.mu.Lock()
	delete(n.handlers, msgType)
	n.mu.Unlock()
}

// Send writes one enveloped message. Sending while closed fails
// without side effects.
func (n *NetworkManager) Send(msgType string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.connected || n.ws == nil {
		return ErrNotConnected
	}
	f, err := protocol.EncodeFrame(msgType, payload)
	if err != nil {
		return err
	}
	return n.ws.WriteMessage(websocket.TextMessage, f.Data)
}

// Connected reports whether the transport is open.
func (n *NetworkManager) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

// ConnectionID returns the server-assigned stable identity, or "".
func (n *NetworkManager) ConnectionID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connectionID
}

// Latency returns the latest round-trip estimate.
func (n *NetworkManager) Latency() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latency
}

func (n *NetworkManager) readLoop(ws *websocket.Conn) {
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			n.handleClose(err)
			return
		}

		msg, err := protocol.DecodeServerFrame(protocol.Frame{
			Binary: mt == websocket.BinaryMessage,
			Data:   data,
		})
		if err != nil {
			n.logger.Warn("malformed server message dropped", zap.Error(err))
			continue
		}

		// Two message types are intercepted before user dispatch.
		switch m := msg.(type) {
		case *protocol.Pong:
			n.mu.Lock()
			if !n.lastPingAt.IsZero() {
				n.latency = time.Since(n.lastPingAt)
			}
			n.mu.Unlock()
			continue
		case *protocol.ConnectionID:
			n.mu.Lock()
			n.connectionID = m.ID
			n.mu.Unlock()
			continue
		}

		n.mu.Lock()
		h := n.handlers[msg.MessageType()]
		n.mu.Unlock()
		if h == nil {
			n.logger.Warn("no handler for message type",
				zap.String("type", msg.MessageType()))
			continue
		}
		h(msg)
	}
}

func (n *NetworkManager) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(defaultPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.mu.Lock()
			n.lastPingAt = time.Now()
			n.mu.Unlock()
			if err := n.Send(protocol.TypePing, protocol.Ping{}); err != nil {
				return
			}
		}
	}
}

// handleClose tears down after a read failure and, for abnormal
// closures, schedules a reconnect attempt.
func (n *NetworkManager) handleClose(err error) {
	n.mu.Lock()
	n.connected = false
	n.ws = nil
	if n.stopPing != nil {
		close(n.stopPing)
		n.stopPing = nil
	}
	closing := n.closing
	url := n.url
	n.mu.Unlock()

	if n.OnDisconnect != nil {
		n.OnDisconnect(err)
	}
	if closing || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		return
	}

	n.mu.Lock()
	if n.attempts >= n.maxAttempts {
		n.mu.Unlock()
		n.logger.Warn("reconnect attempts exhausted", zap.Error(err))
		return
	}
	n.attempts++
	attempt := n.attempts
	delay := backoffDelay(n.reconnectBase, attempt)
	n.mu.Unlock()

	n.logger.Info("scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Int("max", n.maxAttempts),
		zap.Duration("delay", delay))

	time.AfterFunc(delay, func() {
		n.mu.Lock()
		skip := n.connected || n.closing
		n.mu.Unlock()
		if skip {
			return
		}
		if err := n.Connect(url); err != nil {
			n.handleClose(err)
		}
	})
}

// backoffDelay doubles the base delay for each consecutive attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}
