package client

import (
	"math"
	"testing"

	"gravwars/internal/game"
	"gravwars/internal/protocol"
)

func snapshot(ts int64, players map[string]*game.PlayerState, projectiles ...*game.Projectile) *protocol.GameStateUpdate {
	return &protocol.GameStateUpdate{
		Players:     players,
		Projectiles: projectiles,
		Timestamp:   ts,
	}
}

func TestSendInputSequencesAndTransmits(t *testing.T) {
	var sent []protocol.PlayerInput
	s := NewStateSync(func(in protocol.PlayerInput) error {
		sent = append(sent, in)
		return nil
	})

	first := s.SendInput(game.InputState{Thrust: true}, 1000)
	second := s.SendInput(game.InputState{Fire: true}, 1016)

	if first != 1 || second != 2 {
		t.Fatalf("sequences = %d, %d, want 1, 2", first, second)
	}
	if len(sent) != 2 || sent[0].Sequence != 1 || sent[1].Sequence != 2 {
		t.Fatalf("transmitted = %+v", sent)
	}
	if !sent[0].Input.Thrust || !sent[1].Input.Fire {
		t.Fatalf("transmitted inputs lost their flags: %+v", sent)
	}
	if got := s.PendingInputs(); len(got) != 2 {
		t.Fatalf("pending = %d, want 2", len(got))
	}
}

func TestInputStaysPendingWhenSendFails(t *testing.T) {
	s := NewStateSync(func(protocol.PlayerInput) error { return ErrNotConnected })
	s.SendInput(game.InputState{Thrust: true}, 1000)
	if got := s.PendingInputs(); len(got) != 1 {
		t.Fatalf("pending = %d, want 1 despite the failed send", len(got))
	}
}

func TestAckPrunesAcknowledgedInputs(t *testing.T) {
	s := NewStateSync(nil)
	for i := 0; i < 5; i++ {
		s.SendInput(game.InputState{Thrust: true}, int64(1000+i*16))
	}

	s.HandleInputAck(3)

	pending := s.PendingInputs()
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	for _, p := range pending {
		if p.Sequence <= 3 {
			t.Fatalf("acknowledged input %d still pending", p.Sequence)
		}
	}
	if s.LastProcessed() != 3 {
		t.Fatalf("lastProcessed = %d, want 3", s.LastProcessed())
	}
}

func TestStaleAckIsIgnored(t *testing.T) {
	s := NewStateSync(nil)
	for i := 0; i < 5; i++ {
		s.SendInput(game.InputState{}, int64(1000+i*16))
	}

	s.HandleInputAck(4)
	s.HandleInputAck(2) // out of order, must not regress

	if s.LastProcessed() != 4 {
		t.Fatalf("lastProcessed = %d, want 4", s.LastProcessed())
	}
	if got := s.PendingInputs(); len(got) != 1 || got[0].Sequence != 5 {
		t.Fatalf("pending = %+v, want only sequence 5", got)
	}
}

func TestStateUpdateHintReconciles(t *testing.T) {
	s := NewStateSync(nil)
	for i := 0; i < 3; i++ {
		s.SendInput(game.InputState{}, int64(1000+i*16))
	}

	u := snapshot(1100, map[string]*game.PlayerState{})
	u.LastProcessedInput = 2
	s.HandleStateUpdate(u, 1100)

	if got := s.PendingInputs(); len(got) != 1 || got[0].Sequence != 3 {
		t.Fatalf("pending = %+v, want only sequence 3", got)
	}
}

func TestInterpolatedStateBlendsMidway(t *testing.T) {
	s := NewStateSync(nil)
	s.HandleStateUpdate(snapshot(1000, map[string]*game.PlayerState{
		"p1": {X: 100, Y: 200, Angle: 0},
	}), 1000)
	s.HandleStateUpdate(snapshot(1100, map[string]*game.PlayerState{
		"p1": {X: 200, Y: 300, Angle: 1, Health: 60, Score: 1},
	}), 1100)

	got := s.InterpolatedState(1050)
	if got == nil {
		t.Fatalf("no interpolated state")
	}
	p := got.Players["p1"]
	if p == nil {
		t.Fatalf("player missing from the blend")
	}
	if p.X != 150 || p.Y != 250 {
		t.Fatalf("position = (%f, %f), want (150, 250)", p.X, p.Y)
	}
	if p.Angle != 0.5 {
		t.Fatalf("angle = %f, want 0.5", p.Angle)
	}
	// Discrete fields come from the later snapshot.
	if p.Health != 60 || p.Score != 1 {
		t.Fatalf("health/score = %d/%d, want 60/1", p.Health, p.Score)
	}
}

func TestInterpolatedAngleTakesShortestPath(t *testing.T) {
	// 3.0 and -3.0 rad are ~0.28 rad apart across the wrap boundary.
	mid := interpolateAngle(3.0, -3.0, 0.5)
	want := 3.0 + (2*math.Pi-6.0)/2
	if math.Abs(mid-want) > 1e-9 {
		t.Fatalf("mid = %f, want %f", mid, want)
	}

	// The blend never swings more than pi.
	if d := math.Abs(mid - 3.0); d > math.Pi {
		t.Fatalf("blend swung %f rad from the start angle", d)
	}
}

func TestInterpolatedStateFallsBackToLatest(t *testing.T) {
	s := NewStateSync(nil)
	s.HandleStateUpdate(snapshot(1000, map[string]*game.PlayerState{
		"p1": {X: 100},
	}), 1000)

	// Ahead of everything buffered: the single newest snapshot wins.
	got := s.InterpolatedState(5000)
	if got == nil || got.Players["p1"].X != 100 {
		t.Fatalf("fallback state = %+v, want the latest snapshot", got)
	}
}

func TestInterpolatedStateFallsBackToLastServerState(t *testing.T) {
	s := NewStateSync(nil)
	// The snapshot is older than the retention window at arrival time,
	// so the buffer prunes it immediately; the last-known state remains.
	s.HandleStateUpdate(snapshot(1000, map[string]*game.PlayerState{
		"p1": {X: 100},
	}), 10000)

	got := s.InterpolatedState(9900)
	if got == nil || got.Players["p1"].X != 100 {
		t.Fatalf("fallback state = %+v, want the last server state", got)
	}
}

func TestInterpolatedStateNilBeforeFirstSnapshot(t *testing.T) {
	s := NewStateSync(nil)
	if got := s.InterpolatedState(1000); got != nil {
		t.Fatalf("state = %+v, want nil before any snapshot", got)
	}
}

func TestInterpolationDropsVanishedProjectiles(t *testing.T) {
	s := NewStateSync(nil)
	players := map[string]*game.PlayerState{"p1": {}}
	s.HandleStateUpdate(snapshot(1000, players,
		&game.Projectile{ID: "p1-1", X: 100},
		&game.Projectile{ID: "p1-2", X: 500},
	), 1000)
	s.HandleStateUpdate(snapshot(1100, players,
		&game.Projectile{ID: "p1-1", X: 200},
	), 1100)

	got := s.InterpolatedState(1050)
	if len(got.Projectiles) != 1 {
		t.Fatalf("projectiles = %d, want the vanished one dropped", len(got.Projectiles))
	}
	if got.Projectiles[0].ID != "p1-1" || got.Projectiles[0].X != 150 {
		t.Fatalf("projectile = %+v, want p1-1 at x 150", got.Projectiles[0])
	}
}

func TestBufferPrunesBeyondRetention(t *testing.T) {
	s := NewStateSync(nil)
	players := map[string]*game.PlayerState{"p1": {X: 1}}
	s.HandleStateUpdate(snapshot(1000, players), 1000)
	s.HandleStateUpdate(snapshot(2500, map[string]*game.PlayerState{"p1": {X: 2}}), 2500)

	// The 1000 ms snapshot is outside the one second window; asking for
	// a time between the two must not find a straddling pair anymore.
	got := s.InterpolatedState(1750)
	if got.Players["p1"].X != 2 {
		t.Fatalf("x = %f, want the retained snapshot only", got.Players["p1"].X)
	}
}

func TestResetDropsEverything(t *testing.T) {
	s := NewStateSync(nil)
	s.SendInput(game.InputState{Thrust: true}, 1000)
	s.HandleStateUpdate(snapshot(1000, map[string]*game.PlayerState{"p1": {}}), 1000)
	s.HandleInputAck(1)

	s.Reset()

	if len(s.PendingInputs()) != 0 || s.LastProcessed() != 0 {
		t.Fatalf("sync state survived reset")
	}
	if s.InterpolatedState(1000) != nil {
		t.Fatalf("buffer survived reset")
	}
	if seq := s.SendInput(game.InputState{}, 2000); seq != 1 {
		t.Fatalf("sequence after reset = %d, want 1", seq)
	}
}

func TestPredictLocalAppliesPhysics(t *testing.T) {
	p := &Player{X: 640, Y: 360, Angle: 0}
	dt := game.TickDelta

	PredictLocal(p, game.InputState{Thrust: true}, dt)

	wantVel := predictThrustPower * dt * math.Pow(predictAirResistance, dt*game.TickRate)
	if math.Abs(p.VelocityX-wantVel) > 1e-9 {
		t.Fatalf("velocityX = %f, want %f", p.VelocityX, wantVel)
	}
	if p.VelocityY != 0 {
		t.Fatalf("velocityY = %f, want 0", p.VelocityY)
	}
	if p.X <= 640 {
		t.Fatalf("x = %f, want forward movement", p.X)
	}
}

func TestPredictLocalRotationMatchesTurnRate(t *testing.T) {
	p := &Player{Angle: 1}
	PredictLocal(p, game.InputState{RotateRight: true}, 0.5)
	if math.Abs(p.Angle-(1+predictRotationSpeed*0.5)) > 1e-9 {
		t.Fatalf("angle = %f", p.Angle)
	}
}

func TestPredictLocalSaturatesAtWalls(t *testing.T) {
	p := &Player{X: 25, Y: 360, VelocityX: -1000}
	PredictLocal(p, game.InputState{}, 0.1)

	if p.X != game.ArenaInset {
		t.Fatalf("x = %f, want clamp at %f", p.X, game.ArenaInset)
	}
	// Saturation only: the velocity is left for the server to reflect.
	if p.VelocityX >= 0 {
		t.Fatalf("velocityX = %f, want still negative", p.VelocityX)
	}
}
