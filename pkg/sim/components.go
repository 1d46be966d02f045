package sim

import "github.com/google/uuid"

// Tick is the global step counter. Exactly one exists per world.
type Tick struct {
	Counter uint64
}

// Player marks entities controlled by a connection.
type Player struct{}

type Connection struct {
	ID uuid.UUID
}

type Position struct {
	X, Y float32
}

// Velocity is the displacement applied during the current tick.
type Velocity struct {
	X, Y float32
}

type MoveTarget struct {
	X, Y float32
}

type MovementType uint8

const (
	MovementTarget MovementType = iota
	MovementDirection
)

type PlayerMove struct {
	MoveSpeed float32
	Mode      MovementType
	// Timer is cleared by every click input.
	Timer uint32
}

type PlayerCollision struct {
	Radius  float32
	OffsetX float32
	OffsetY float32
}

type PlayerState uint8

const (
	Idle PlayerState = iota
	Move
)

func (s PlayerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Move:
		return "move"
	default:
		return "unknown"
	}
}

type State struct {
	Value PlayerState
}

// Collision holds the static level geometry. Exactly one exists per
// world and its lines never change after startup.
type Collision struct {
	Lines []Segment
}
