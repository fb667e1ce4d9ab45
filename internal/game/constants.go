package game

// Arena constants
const (
	ArenaWidth  = 1280.0
	ArenaHeight = 720.0
	ArenaInset  = 20.0 // players are clamped this far inside the walls
	TickRate    = 60   // server updates per second
	TickDelta   = 1.0 / TickRate
)

// Spawn layout
const (
	SpawnCenterX = ArenaWidth / 2
	SpawnCenterY = ArenaHeight / 2
	SpawnRadius  = 200.0
)

// Combat constants
const (
	FireDelayMillis    = 500    // minimum ms between shots
	MuzzleOffset       = 30.0   // projectile spawn distance ahead of the ship
	VelocityInherit    = 0.5    // fraction of ship velocity carried over to projectiles
	ProjectileLifetime = 3000.0 // ms
	HitRadius          = 20.0
	ProjectileDamage   = 20
	MaxHealth          = 100
)

// Physics constants
const (
	WallRestitution    = 0.5  // fraction of speed kept when bouncing off a wall
	MinGravityDistance = 50.0 // distance floor for point gravity
)
