// Package bridge connects the network side of the server with the
// simulation. Inbound carries connection lifecycle and player input to
// the simulation; Outbound carries addressed protocol messages back.
package bridge

import (
	"github.com/google/uuid"

	"github.com/playdodgeball/wtserver/pkg/protocol"
)

// Inbound is one of PlayerJoined, PlayerLeft or InputClickPressed.
type Inbound interface {
	ConnectionID() uuid.UUID
	isInbound()
}

type PlayerJoined struct {
	ID uuid.UUID
}

type PlayerLeft struct {
	ID uuid.UUID
}

type InputClickPressed struct {
	ID uuid.UUID
	X  float32
	Y  float32
}

func (e PlayerJoined) ConnectionID() uuid.UUID      { return e.ID }
func (e PlayerLeft) ConnectionID() uuid.UUID        { return e.ID }
func (e InputClickPressed) ConnectionID() uuid.UUID { return e.ID }

func (PlayerJoined) isInbound()      {}
func (PlayerLeft) isInbound()        {}
func (InputClickPressed) isInbound() {}

// FromClient converts a decoded client message into the event for the
// simulation. It reports false for messages the simulation does not
// consume.
func FromClient(id uuid.UUID, msg protocol.ClientMessage) (Inbound, bool) {
	switch m := msg.(type) {
	case protocol.InputClickPressed:
		return InputClickPressed{ID: id, X: m.X, Y: m.Y}, true
	default:
		return nil, false
	}
}

// Outbound is a protocol message addressed to a single connection.
type Outbound struct {
	To  uuid.UUID
	Msg protocol.ServerMessage
}

// Bridge bundles both directions. The simulation receives from In and
// sends to Out; the relay does the opposite.
type Bridge struct {
	In  *Queue[Inbound]
	Out *Queue[Outbound]
}

func New(inCap, outCap int) *Bridge {
	return &Bridge{
		In:  NewQueue[Inbound](inCap),
		Out: NewQueue[Outbound](outCap),
	}
}

func (b *Bridge) Close() {
	b.In.Close()
	b.Out.Close()
}
