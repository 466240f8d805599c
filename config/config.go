package config

import "time"

// CarConfig contains car handling and body values
type CarConfig struct {
	// Body
	HalfWidth      float64
	HalfHeight     float64
	Mass           float64
	Restitution    float64
	LinearDamping  float64
	AngularDamping float64

	// Driving (forces are per second, applied as impulses each tick)
	DriveForce   float64
	ReverseForce float64
	BoostForce   float64
	TurnRate     float64 // radians per second while a turn key is held
	MaxSpeed     float64
	BoostSpeed   float64 // speed cap while boosting

	// Flip
	FlipImpulse  float64
	FlipCooldown time.Duration

	// Pointer steering
	DefaultPointerSensitivity float64
	DefaultPointerRange       float64
}

// BallConfig contains ball body values
type BallConfig struct {
	Radius        float64
	Mass          float64
	Restitution   float64
	LinearDamping float64
	MaxSpeed      float64
}

// MatchConfig contains match flow timing
type MatchConfig struct {
	Duration       time.Duration
	CountdownFrom  int
	CountdownStep  time.Duration
	GoalPauseDelay time.Duration

	// Goal explosion
	ExplosionRadius  float64
	ExplosionImpulse float64
	ExplosionPoints  int // points spread across the conceded goal mouth

	MaxTeamSize int
}

// MatchmakingConfig contains queue and rating values
type MatchmakingConfig struct {
	MMRThreshold  float64 // groups merge only when avg MMR differs by less
	DefaultRating float64
	EloK          float64
}

// NetConfig contains simulation clock and broadcast values
type NetConfig struct {
	TickRate           int
	MaxFrameTime       time.Duration // clamp on a single poll's elapsed time
	VelocityIterations int
	PositionIterations int
	CellSize           int // resolv broadphase cell size
	IntervalSmoothing  float64
}

// Global configuration instances
var Car CarConfig
var Ball BallConfig
var Match MatchConfig
var Matchmaking MatchmakingConfig
var Net NetConfig

// FixedDt is the simulated duration of one tick.
func FixedDt() time.Duration {
	return time.Second / time.Duration(Net.TickRate)
}

func init() {
	Car = CarConfig{
		HalfWidth:      20,
		HalfHeight:     11,
		Mass:           2,
		Restitution:    0.3,
		LinearDamping:  1.2,
		AngularDamping: 8,

		DriveForce:   900,
		ReverseForce: 600,
		BoostForce:   1800,
		TurnRate:     3.6,
		MaxSpeed:     420,
		BoostSpeed:   640,

		FlipImpulse:  700,
		FlipCooldown: 500 * time.Millisecond,

		DefaultPointerSensitivity: 1,
		DefaultPointerRange:       120,
	}

	Ball = BallConfig{
		Radius:        14,
		Mass:          0.6,
		Restitution:   0.85,
		LinearDamping: 0.35,
		MaxSpeed:      900,
	}

	Match = MatchConfig{
		Duration:       4 * time.Minute,
		CountdownFrom:  3,
		CountdownStep:  time.Second,
		GoalPauseDelay: 3 * time.Second,

		ExplosionRadius:  320,
		ExplosionImpulse: 1400,
		ExplosionPoints:  3,

		MaxTeamSize: 3,
	}

	Matchmaking = MatchmakingConfig{
		MMRThreshold:  100,
		DefaultRating: 1000,
		EloK:          32,
	}

	Net = NetConfig{
		TickRate:           60,
		MaxFrameTime:       250 * time.Millisecond,
		VelocityIterations: 8,
		PositionIterations: 3,
		CellSize:           32,
		IntervalSmoothing:  0.1,
	}
}
