package game

// GravityType selects the gravity model applied each tick.
type GravityType string

const (
	GravityPoint GravityType = "point"
	GravitySide  GravityType = "side"
	GravityNone  GravityType = "none"
)

// Settings holds the per-room physics tunables. A zero field means
// "use the default"; call Normalized before handing a Settings to the
// simulation.
type Settings struct {
	GravityType      GravityType `json:"gravityType" msgpack:"gravityType"`
	GravityStrength  float64     `json:"gravityStrength" msgpack:"gravityStrength"`
	GravityDirection string      `json:"gravityDirection" msgpack:"gravityDirection"` // bottom, top, left, right
	GravityPointX    float64     `json:"gravityPointX" msgpack:"gravityPointX"`       // fraction of arena width
	GravityPointY    float64     `json:"gravityPointY" msgpack:"gravityPointY"`       // fraction of arena height
	RotationSpeed    float64     `json:"rotationSpeed" msgpack:"rotationSpeed"`       // radians per second
	ThrustPower      float64     `json:"thrustPower" msgpack:"thrustPower"`
	AirResistance    float64     `json:"airResistance" msgpack:"airResistance"` // per-tick damping multiplier
	MaxSpeedEnabled  bool        `json:"maxSpeedEnabled" msgpack:"maxSpeedEnabled"`
	MaxSpeed         float64     `json:"maxSpeed" msgpack:"maxSpeed"`
	ProjectileSpeed  float64     `json:"projectileSpeed" msgpack:"projectileSpeed"`
	MaxProjectiles   int         `json:"maxProjectiles" msgpack:"maxProjectiles"`

	// Ground hazard: with side gravity, resting on the gravity-side wall
	// drains GroundDamagePercent health every GroundDamageInterval ms.
	// Zero percent disables the hazard.
	GroundDamagePercent  int   `json:"groundDamagePercent,omitempty" msgpack:"groundDamagePercent"`
	GroundDamageInterval int64 `json:"groundDamageInterval,omitempty" msgpack:"groundDamageInterval"`
}

// DefaultSettings returns the stock room settings.
func DefaultSettings() Settings {
	return Settings{
		GravityType:          GravityPoint,
		GravityStrength:      200,
		GravityDirection:     "bottom",
		GravityPointX:        0.5,
		GravityPointY:        0.5,
		RotationSpeed:        5,
		ThrustPower:          500,
		AirResistance:        0.99,
		MaxSpeed:             300,
		ProjectileSpeed:      400,
		MaxProjectiles:       3,
		GroundDamageInterval: 1000,
	}
}

// Normalized fills unset fields with their defaults.
func (s Settings) Normalized() Settings {
	d := DefaultSettings()
	if s.GravityType == "" {
		s.GravityType = d.GravityType
	}
	if s.GravityStrength == 0 {
		s.GravityStrength = d.GravityStrength
	}
	if s.GravityDirection == "" {
		s.GravityDirection = d.GravityDirection
	}
	if s.GravityPointX == 0 {
		s.GravityPointX = d.GravityPointX
	}
	if s.GravityPointY == 0 {
		s.GravityPointY = d.GravityPointY
	}
	if s.RotationSpeed == 0 {
		s.RotationSpeed = d.RotationSpeed
	}
	if s.ThrustPower == 0 {
		s.ThrustPower = d.ThrustPower
	}
	if s.AirResistance == 0 {
		s.AirResistance = d.AirResistance
	}
	if s.MaxSpeed == 0 {
		s.MaxSpeed = d.MaxSpeed
	}
	if s.ProjectileSpeed == 0 {
		s.ProjectileSpeed = d.ProjectileSpeed
	}
	if s.MaxProjectiles == 0 {
		s.MaxProjectiles = d.MaxProjectiles
	}
	if s.GroundDamageInterval == 0 {
		s.GroundDamageInterval = d.GroundDamageInterval
	}
	return s
}
