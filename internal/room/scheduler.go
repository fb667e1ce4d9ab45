package room

import (
	"time"

	"go.uber.org/zap"

	"gravwars/internal/game"
	"gravwars/internal/protocol"
)

// startScheduler launches the per-room tick driver: a 60 Hz ticker that
// steps the simulation with a constant delta and fans the snapshot out
// to every member. It self-cancels when the room stops playing.
func (r *Room) startScheduler() {
	r.mu.Lock()
	if r.stop != nil {
		r.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()

	go r.run(stop)
}

// stopSchedulerLocked signals the driver to exit. Caller holds r.mu.
func (r *Room) stopSchedulerLocked() {
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

func (r *Room) run(stop <-chan struct{}) {
	// A failing room must never take down the drivers of other rooms.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("room tick panicked",
				zap.String("room", r.code),
				zap.Any("panic", rec))
		}
	}()

	ticker := time.NewTicker(time.Second / game.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !r.tick(time.Now().UnixMilli()) {
				return
			}
		}
	}
}

// tick advances the room once and broadcasts the result. It reports
// false when the driver should stop.
func (r *Room) tick(now int64) bool {
	r.mu.Lock()
	if r.phase != PhasePlaying || r.gameState == nil {
		r.mu.Unlock()
		return false
	}

	res := game.Step(r.gameState, now)

	if res.Ended {
		r.phase = PhaseEnded
		var winner *protocol.Winner
		if res.WinnerID != "" {
			if ps, ok := r.gameState.Players[res.WinnerID]; ok {
				winner = &protocol.Winner{ID: res.WinnerID, Name: ps.Name, Score: ps.Score}
			}
		}
		r.gameState = nil
		frame, err := protocol.EncodeFrame(protocol.TypeGameEnded, protocol.GameEnded{Winner: winner})
		conns := r.connsLocked("")
		r.mu.Unlock()

		if err != nil {
			r.logger.Error("encode game-ended", zap.String("room", r.code), zap.Error(err))
			return false
		}
		for _, c := range conns {
			_ = c.Send(frame)
		}
		r.logger.Info("game ended",
			zap.String("room", r.code),
			zap.String("winner", res.WinnerID))
		return false
	}

	frame, err := protocol.EncodeStateFrame(protocol.GameStateUpdate{
		Players:     r.gameState.Players,
		Projectiles: r.gameState.Projectiles,
		Timestamp:   r.gameState.Timestamp,
	})
	conns := r.connsLocked("")
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("encode snapshot", zap.String("room", r.code), zap.Error(err))
		return true
	}
	for _, c := range conns {
		_ = c.Send(frame)
	}
	return true
}
