package sim

import (
	"errors"
	"time"
)

type Config struct {
	TickRate time.Duration

	SpawnX float32
	SpawnY float32
	// SpawnJitter randomizes the spawn point by up to this many units
	// per axis.
	SpawnJitter float32
	// Seed for the spawn jitter. Zero picks a random seed.
	Seed uint64

	MoveSpeed       float32
	Radius          float32
	CollisionPasses int

	Level []Segment
}

// DefaultLevel is the geometry of the test arena.
func DefaultLevel() []Segment {
	return []Segment{
		{X1: 192, Y1: 128, X2: 320, Y2: 128},
		{X1: 320, Y1: 128, X2: 320, Y2: 256},
		{X1: 320, Y1: 256, X2: 296, Y2: 208},
		{X1: 296, Y1: 208, X2: 248, Y2: 256},
	}
}

func DefaultConfig() Config {
	return Config{
		TickRate:        time.Second / 30,
		SpawnX:          256,
		SpawnY:          192,
		MoveSpeed:       2,
		Radius:          16,
		CollisionPasses: 4,
		Level:           DefaultLevel(),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.TickRate <= 0 {
		errs = append(errs, errors.New("tick rate must be positive"))
	}
	if c.MoveSpeed <= 0 {
		errs = append(errs, errors.New("move speed must be positive"))
	}
	if c.Radius < 0 {
		errs = append(errs, errors.New("radius must not be negative"))
	}
	if c.SpawnJitter < 0 {
		errs = append(errs, errors.New("spawn jitter must not be negative"))
	}
	if c.CollisionPasses < 1 {
		errs = append(errs, errors.New("at least one collision pass is required"))
	}
	return errors.Join(errs...)
}
