package game

import (
	"fmt"
	"math"
	"sort"
)

// Result reports what a tick concluded.
type Result struct {
	Ended    bool
	WinnerID string // empty when nobody survived
}

// Step advances the state by one fixed timestep. now is the wall
// timestamp in ms; the integration delta is always TickDelta, so two
// runs over identical state and inputs produce identical results.
func Step(s *State, now int64) Result {
	const dt = TickDelta

	for id, p := range s.Players {
		if !p.Alive {
			continue
		}
		stepPlayer(s, id, p, now, dt)
	}

	stepProjectiles(s, dt)
	resolveCollisions(s)

	s.Timestamp = now

	if s.AliveCount() <= 1 {
		return Result{Ended: true, WinnerID: survivorID(s)}
	}
	return Result{}
}

func stepPlayer(s *State, id string, p *PlayerState, now int64, dt float64) {
	set := s.Settings

	// Rotation: the two turn intents are independent deltas, so holding
	// both cancels out.
	if p.Inputs.RotateLeft {
		p.Angle -= set.RotationSpeed * dt
	}
	if p.Inputs.RotateRight {
		p.Angle += set.RotationSpeed * dt
	}

	if p.Inputs.Thrust {
		p.VelocityX += math.Cos(p.Angle) * set.ThrustPower * dt
		p.VelocityY += math.Sin(p.Angle) * set.ThrustPower * dt
	}

	ax, ay := set.gravityAccel(p.X, p.Y)
	p.VelocityX += ax * dt
	p.VelocityY += ay * dt

	// Drag is a per-tick damping multiplier, deliberately not scaled
	// by dt.
	p.VelocityX *= set.AirResistance
	p.VelocityY *= set.AirResistance

	if set.MaxSpeedEnabled {
		speed := math.Hypot(p.VelocityX, p.VelocityY)
		if speed > set.MaxSpeed {
			scale := set.MaxSpeed / speed
			p.VelocityX *= scale
			p.VelocityY *= scale
		}
	}

	p.X += p.VelocityX * dt
	p.Y += p.VelocityY * dt

	// Walls: clamp and reflect the offending velocity component so
	// ships bounce instead of sticking.
	if p.X < ArenaInset {
		p.X = ArenaInset
		p.VelocityX = math.Abs(p.VelocityX) * WallRestitution
	} else if p.X > ArenaWidth-ArenaInset {
		p.X = ArenaWidth - ArenaInset
		p.VelocityX = -math.Abs(p.VelocityX) * WallRestitution
	}
	if p.Y < ArenaInset {
		p.Y = ArenaInset
		p.VelocityY = math.Abs(p.VelocityY) * WallRestitution
	} else if p.Y > ArenaHeight-ArenaInset {
		p.Y = ArenaHeight - ArenaInset
		p.VelocityY = -math.Abs(p.VelocityY) * WallRestitution
	}

	applyGroundHazard(p, set, now)
	if !p.Alive {
		return
	}

	if p.Inputs.Fire {
		fireProjectile(s, id, p, now)
	}
}

// applyGroundHazard drains health while a ship rests on the wall that
// side gravity pulls toward. Deaths here have no killer and award no
// score.
func applyGroundHazard(p *PlayerState, set Settings, now int64) {
	if set.GroundDamagePercent <= 0 || !set.onGravityWall(p.X, p.Y) {
		return
	}
	if p.lastGroundDamage != 0 && now-p.lastGroundDamage < set.GroundDamageInterval {
		return
	}
	p.lastGroundDamage = now
	p.Health -= MaxHealth * set.GroundDamagePercent / 100
	if p.Health <= 0 {
		p.Health = 0
		p.Alive = false
	}
}

func fireProjectile(s *State, ownerID string, p *PlayerState, now int64) {
	if now-p.LastFireTime < FireDelayMillis {
		return
	}
	if p.ProjectileCount >= s.Settings.MaxProjectiles {
		return
	}

	cos := math.Cos(p.Angle)
	sin := math.Sin(p.Angle)
	speed := s.Settings.ProjectileSpeed
	s.Projectiles = append(s.Projectiles, &Projectile{
		ID:        fmt.Sprintf("%s-%d", ownerID, now),
		OwnerID:   ownerID,
		X:         p.X + cos*MuzzleOffset,
		Y:         p.Y + sin*MuzzleOffset,
		VelocityX: cos*speed + p.VelocityX*VelocityInherit,
		VelocityY: sin*speed + p.VelocityY*VelocityInherit,
		Lifetime:  ProjectileLifetime,
	})
	p.LastFireTime = now
	p.ProjectileCount++
}

// stepProjectiles moves every projectile under the shared gravity field
// and removes the ones that leave the arena or run out of lifetime.
func stepProjectiles(s *State, dt float64) {
	kept := s.Projectiles[:0]
	for _, pr := range s.Projectiles {
		ax, ay := s.Settings.gravityAccel(pr.X, pr.Y)
		pr.VelocityX += ax * dt
		pr.VelocityY += ay * dt
		pr.X += pr.VelocityX * dt
		pr.Y += pr.VelocityY * dt
		pr.Lifetime -= dt * 1000

		if pr.X < 0 || pr.X > ArenaWidth || pr.Y < 0 || pr.Y > ArenaHeight || pr.Lifetime <= 0 {
			releaseProjectile(s, pr)
			continue
		}
		kept = append(kept, pr)
	}
	s.Projectiles = kept
}

// resolveCollisions applies projectile hits. A projectile damages at
// most one player and is consumed by the hit whether or not it kills.
func resolveCollisions(s *State) {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	kept := s.Projectiles[:0]
	for _, pr := range s.Projectiles {
		hit := false
		for _, id := range ids {
			p := s.Players[id]
			if !p.Alive || id == pr.OwnerID {
				continue
			}
			if math.Hypot(pr.X-p.X, pr.Y-p.Y) >= HitRadius {
				continue
			}
			p.Health -= ProjectileDamage
			if p.Health <= 0 {
				p.Health = 0
				p.Alive = false
				if shooter, ok := s.Players[pr.OwnerID]; ok {
					shooter.Score++
				}
			}
			releaseProjectile(s, pr)
			hit = true
			break
		}
		if !hit {
			kept = append(kept, pr)
		}
	}
	s.Projectiles = kept
}

// releaseProjectile returns a projectile's slot to its owner. The owner
// may already be gone; that is fine.
func releaseProjectile(s *State, pr *Projectile) {
	if owner, ok := s.Players[pr.OwnerID]; ok && owner.ProjectileCount > 0 {
		owner.ProjectileCount--
	}
}

func survivorID(s *State) string {
	for id, p := range s.Players {
		if p.Alive {
			return id
		}
	}
	return ""
}
