package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gravwars/internal/game"
	"gravwars/internal/protocol"
)

// newTestEndpoint serves the websocket handler of a fresh Server and
// returns the ws:// URL.
func newTestEndpoint(t *testing.T) string {
	t.Helper()
	s := New(zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// testClient is one websocket client with its server-assigned identity.
type testClient struct {
	t  *testing.T
	ws *websocket.Conn
	id string
}

func dialClient(t *testing.T, url string) *testClient {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	c := &testClient{t: t, ws: ws}
	msg := c.expect(protocol.TypeConnectionID)
	c.id = msg.(*protocol.ConnectionID).ID
	return c
}

func (c *testClient) send(msgType string, payload any) {
	c.t.Helper()
	f, err := protocol.EncodeFrame(msgType, payload)
	if err != nil {
		c.t.Fatalf("encode %s: %v", msgType, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, f.Data); err != nil {
		c.t.Fatalf("write %s: %v", msgType, err)
	}
}

// expect reads frames until one of the wanted type arrives, skipping
// everything else (snapshots keep streaming during a game).
func (c *testClient) expect(msgType string) protocol.ServerMessage {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	c.ws.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			c.t.Fatalf("read while waiting for %s: %v", msgType, err)
		}
		msg, err := protocol.DecodeServerFrame(protocol.Frame{
			Binary: mt == websocket.BinaryMessage,
			Data:   data,
		})
		if err != nil {
			c.t.Fatalf("decode server frame: %v", err)
		}
		if msg.MessageType() == msgType {
			return msg
		}
	}
	c.t.Fatalf("never received %s", msgType)
	return nil
}

func TestConnectionIDAssignedOnConnect(t *testing.T) {
	url := newTestEndpoint(t)
	c := dialClient(t, url)
	if !strings.HasPrefix(c.id, "player-") {
		t.Fatalf("connection id = %q, want player- prefix", c.id)
	}
}

func TestCreateRoomReturnsCodeAndSettings(t *testing.T) {
	url := newTestEndpoint(t)
	c := dialClient(t, url)

	c.send(protocol.TypeCreateRoom, protocol.CreateRoom{Name: "Alice"})
	msg := c.expect(protocol.TypeRoomCreated).(*protocol.RoomCreated)

	if len(msg.Room.Code) != 6 {
		t.Fatalf("room code = %q, want 6 characters", msg.Room.Code)
	}
	if msg.PlayerID != c.id || msg.PlayerName != "Alice" {
		t.Fatalf("room-created = %+v", msg)
	}
	if msg.Room.Settings.RotationSpeed == 0 {
		t.Fatalf("settings not normalized: %+v", msg.Room.Settings)
	}
}

func TestJoinBroadcastsToExistingMembers(t *testing.T) {
	url := newTestEndpoint(t)
	host := dialClient(t, url)
	guest := dialClient(t, url)

	host.send(protocol.TypeCreateRoom, protocol.CreateRoom{Name: "Alice"})
	created := host.expect(protocol.TypeRoomCreated).(*protocol.RoomCreated)

	guest.send(protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: created.Room.Code, PlayerName: "Bob"})
	joined := guest.expect(protocol.TypeRoomJoined).(*protocol.RoomJoined)
	if len(joined.Players) != 2 {
		t.Fatalf("roster = %+v, want 2 players", joined.Players)
	}

	notice := host.expect(protocol.TypePlayerJoined).(*protocol.PlayerJoined)
	if notice.Player.ID != guest.id || notice.Player.Name != "Bob" {
		t.Fatalf("player-joined = %+v", notice)
	}
	if notice.Player.Color == "blue" {
		t.Fatalf("guest was assigned the host's color")
	}
}

func TestJoinUnknownRoomYieldsRoomError(t *testing.T) {
	url := newTestEndpoint(t)
	c := dialClient(t, url)

	c.send(protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: "ZZZZZZ", PlayerName: "Bob"})
	msg := c.expect(protocol.TypeRoomError).(*protocol.RoomError)
	if msg.Message != "Room not found" {
		t.Fatalf("message = %q, want %q", msg.Message, "Room not found")
	}
}

func TestStartRequiresHost(t *testing.T) {
	url := newTestEndpoint(t)
	host := dialClient(t, url)
	guest := dialClient(t, url)

	host.send(protocol.TypeCreateRoom, protocol.CreateRoom{Name: "Alice"})
	created := host.expect(protocol.TypeRoomCreated).(*protocol.RoomCreated)
	guest.send(protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: created.Room.Code, PlayerName: "Bob"})
	guest.expect(protocol.TypeRoomJoined)

	guest.send(protocol.TypeStartGame, protocol.StartGame{RoomCode: created.Room.Code})
	msg := guest.expect(protocol.TypeRoomError).(*protocol.RoomError)
	if msg.Message != "Only the host can start the game" {
		t.Fatalf("message = %q", msg.Message)
	}
}

func TestGameFlowStartInputAckSnapshots(t *testing.T) {
	url := newTestEndpoint(t)
	host := dialClient(t, url)
	guest := dialClient(t, url)

	host.send(protocol.TypeCreateRoom, protocol.CreateRoom{Name: "Alice"})
	created := host.expect(protocol.TypeRoomCreated).(*protocol.RoomCreated)
	guest.send(protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: created.Room.Code, PlayerName: "Bob"})
	guest.expect(protocol.TypeRoomJoined)

	host.send(protocol.TypeStartGame, protocol.StartGame{RoomCode: created.Room.Code})

	for _, c := range []*testClient{host, guest} {
		starting := c.expect(protocol.TypeGameStarting).(*protocol.GameStarting)
		if starting.GameState == nil || len(starting.GameState.Players) != 2 {
			t.Fatalf("game-starting state = %+v", starting.GameState)
		}
	}

	// Snapshots stream as binary frames at the tick rate.
	snap := guest.expect(protocol.TypeGameStateUpdate).(*protocol.GameStateUpdate)
	if len(snap.Players) != 2 {
		t.Fatalf("snapshot players = %d, want 2", len(snap.Players))
	}

	host.send(protocol.TypePlayerInput, protocol.PlayerInput{
		Sequence:  7,
		Input:     game.InputState{Thrust: true},
		Timestamp: time.Now().UnixMilli(),
	})
	ack := host.expect(protocol.TypeInputAck).(*protocol.InputAck)
	if ack.Sequence != 7 || ack.ServerTime == 0 {
		t.Fatalf("input-ack = %+v", ack)
	}
}

func TestInputOutsideGameIsNotAcked(t *testing.T) {
	url := newTestEndpoint(t)
	c := dialClient(t, url)

	c.send(protocol.TypeCreateRoom, protocol.CreateRoom{Name: "Alice"})
	c.expect(protocol.TypeRoomCreated)

	c.send(protocol.TypePlayerInput, protocol.PlayerInput{Sequence: 1})
	c.send(protocol.TypePing, protocol.Ping{})

	// The very next reply must be the pong: the input produced no ack.
	c.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := protocol.DecodeServerFrame(protocol.Frame{
		Binary: mt == websocket.BinaryMessage,
		Data:   data,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.MessageType() != protocol.TypePong {
		t.Fatalf("reply = %q, want pong", msg.MessageType())
	}
}

func TestLeavePromotesAndNotifies(t *testing.T) {
	url := newTestEndpoint(t)
	host := dialClient(t, url)
	guest := dialClient(t, url)

	host.send(protocol.TypeCreateRoom, protocol.CreateRoom{Name: "Alice"})
	created := host.expect(protocol.TypeRoomCreated).(*protocol.RoomCreated)
	guest.send(protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: created.Room.Code, PlayerName: "Bob"})
	guest.expect(protocol.TypeRoomJoined)

	host.send(protocol.TypeLeaveRoom, protocol.LeaveRoom{})

	left := guest.expect(protocol.TypePlayerLeft).(*protocol.PlayerLeft)
	if left.PlayerID != host.id {
		t.Fatalf("player-left = %+v, want the host's departure", left)
	}
	if left.NewHostID != guest.id {
		t.Fatalf("newHostId = %q, want promotion to %q", left.NewHostID, guest.id)
	}
}

func TestDisconnectCascadesToRoomDeparture(t *testing.T) {
	url := newTestEndpoint(t)
	host := dialClient(t, url)
	guest := dialClient(t, url)

	host.send(protocol.TypeCreateRoom, protocol.CreateRoom{Name: "Alice"})
	created := host.expect(protocol.TypeRoomCreated).(*protocol.RoomCreated)
	guest.send(protocol.TypeJoinRoom, protocol.JoinRoom{RoomCode: created.Room.Code, PlayerName: "Bob"})
	guest.expect(protocol.TypeRoomJoined)

	host.ws.Close()

	left := guest.expect(protocol.TypePlayerLeft).(*protocol.PlayerLeft)
	if left.PlayerID != host.id || left.NewHostID != guest.id {
		t.Fatalf("player-left after disconnect = %+v", left)
	}
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	url := newTestEndpoint(t)
	c := dialClient(t, url)

	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"no-such-thing"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The connection survives: a ping still gets its pong.
	c.send(protocol.TypePing, protocol.Ping{})
	c.expect(protocol.TypePong)
}

func TestPingPong(t *testing.T) {
	url := newTestEndpoint(t)
	c := dialClient(t, url)
	c.send(protocol.TypePing, protocol.Ping{})
	c.expect(protocol.TypePong)
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	c := r.Add(nil)

	if !strings.HasPrefix(c.ID(), "player-") {
		t.Fatalf("id = %q, want player- prefix", c.ID())
	}
	if got, ok := r.Get(c.ID()); !ok || got != c {
		t.Fatalf("Get did not return the registered connection")
	}
	if r.Count() != 1 {
		t.Fatalf("count = %d, want 1", r.Count())
	}

	r.Remove(c.ID())
	if _, ok := r.Get(c.ID()); ok || r.Count() != 0 {
		t.Fatalf("connection survived removal")
	}
}

func TestConnSendDropsWhenFullAndFailsWhenClosed(t *testing.T) {
	r := NewRegistry()
	c := r.Add(nil)

	// Nobody drains the queue here; overflowing it must not block or
	// error.
	for i := 0; i < sendBufferSize+10; i++ {
		if err := c.Send(protocol.Frame{Data: []byte("x")}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	if !c.shutdown() {
		t.Fatalf("first shutdown reported already closed")
	}
	if c.shutdown() {
		t.Fatalf("second shutdown did not report already closed")
	}
	if err := c.Send(protocol.Frame{}); err != ErrConnClosed {
		t.Fatalf("send after shutdown: err = %v, want ErrConnClosed", err)
	}
}
