package game

import "math"

// gravityAccel returns the gravity acceleration acting at (x, y).
// The same field applies to players and projectiles so flight paths
// stay consistent.
func (s Settings) gravityAccel(x, y float64) (ax, ay float64) {
	switch s.GravityType {
	case GravityPoint:
		gx := s.GravityPointX * ArenaWidth
		gy := s.GravityPointY * ArenaHeight
		dx := gx - x
		dy := gy - y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist <= 0 {
			return 0, 0
		}
		force := s.GravityStrength / math.Max(dist, MinGravityDistance)
		return dx / dist * force, dy / dist * force
	case GravitySide:
		switch s.GravityDirection {
		case "bottom":
			return 0, s.GravityStrength
		case "top":
			return 0, -s.GravityStrength
		case "left":
			return -s.GravityStrength, 0
		case "right":
			return s.GravityStrength, 0
		}
	}
	return 0, 0
}

// onGravityWall reports whether a position rests on the wall that side
// gravity pulls toward.
func (s Settings) onGravityWall(x, y float64) bool {
	if s.GravityType != GravitySide {
		return false
	}
	switch s.GravityDirection {
	case "bottom":
		return y >= ArenaHeight-ArenaInset
	case "top":
		return y <= ArenaInset
	case "left":
		return x <= ArenaInset
	case "right":
		return x >= ArenaWidth-ArenaInset
	}
	return false
}
