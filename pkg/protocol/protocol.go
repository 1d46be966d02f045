// Package protocol implements the binary wire format exchanged with
// game clients. Every message is a one byte tag followed by a fixed
// size little-endian payload. There is no length prefix; the framing
// is provided by the transport (one datagram or one stream per message).
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrShortMessage = errors.New("message too short")
	ErrUnknownTag   = errors.New("unknown message tag")
)

// Server to client tags.
const (
	TagTick                 byte = 0
	TagCreatePlayer         byte = 1
	TagUpdatePlayerPosition byte = 2
	TagRemovePlayer         byte = 3
)

// Client to server tags.
const (
	TagInputClickPressed byte = 0
)

const (
	idSize = 16

	TickSize                 = 1 + 8
	CreatePlayerSize         = 1 + idSize + 4 + 4
	UpdatePlayerPositionSize = 1 + idSize + 4 + 4
	RemovePlayerSize         = 1 + idSize
	InputClickPressedSize    = 1 + 4 + 4
)

// ServerMessage is a message sent from the server to a client.
type ServerMessage interface {
	Tag() byte
	// Size is the encoded length including the tag.
	Size() int
	// Reliable reports whether the message must be delivered on a stream
	// rather than as a datagram.
	Reliable() bool
	appendPayload(b []byte) []byte
}

// ClientMessage is a message sent from a client to the server.
type ClientMessage interface {
	Tag() byte
	Size() int
	appendPayload(b []byte) []byte
}

type Tick struct {
	Tick uint64
}

type CreatePlayer struct {
	ID uuid.UUID
	X  float32
	Y  float32
}

type UpdatePlayerPosition struct {
	ID uuid.UUID
	X  float32
	Y  float32
}

type RemovePlayer struct {
	ID uuid.UUID
}

type InputClickPressed struct {
	X float32
	Y float32
}

func (Tick) Tag() byte                 { return TagTick }
func (CreatePlayer) Tag() byte         { return TagCreatePlayer }
func (UpdatePlayerPosition) Tag() byte { return TagUpdatePlayerPosition }
func (RemovePlayer) Tag() byte         { return TagRemovePlayer }
func (InputClickPressed) Tag() byte    { return TagInputClickPressed }

func (Tick) Size() int                 { return TickSize }
func (CreatePlayer) Size() int         { return CreatePlayerSize }
func (UpdatePlayerPosition) Size() int { return UpdatePlayerPositionSize }
func (RemovePlayer) Size() int         { return RemovePlayerSize }
func (InputClickPressed) Size() int    { return InputClickPressedSize }

// Ticks and positions are superseded every tick, so losing one is fine.
// Spawns and removals happen once and have to arrive.
func (Tick) Reliable() bool                 { return false }
func (CreatePlayer) Reliable() bool         { return true }
func (UpdatePlayerPosition) Reliable() bool { return false }
func (RemovePlayer) Reliable() bool         { return true }

func (m Tick) appendPayload(b []byte) []byte {
	return binary.LittleEndian.AppendUint64(b, m.Tick)
}

func (m CreatePlayer) appendPayload(b []byte) []byte {
	return appendPlayer(b, m.ID, m.X, m.Y)
}

func (m UpdatePlayerPosition) appendPayload(b []byte) []byte {
	return appendPlayer(b, m.ID, m.X, m.Y)
}

func (m RemovePlayer) appendPayload(b []byte) []byte {
	return append(b, m.ID[:]...)
}

func (m InputClickPressed) appendPayload(b []byte) []byte {
	b = appendFloat32(b, m.X)
	return appendFloat32(b, m.Y)
}

func appendPlayer(b []byte, id uuid.UUID, x, y float32) []byte {
	b = append(b, id[:]...)
	b = appendFloat32(b, x)
	return appendFloat32(b, y)
}

func appendFloat32(b []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// AppendServer appends the encoding of msg to b.
func AppendServer(b []byte, msg ServerMessage) []byte {
	b = append(b, msg.Tag())
	return msg.appendPayload(b)
}

// EncodeServer returns a freshly allocated encoding of msg.
func EncodeServer(msg ServerMessage) []byte {
	return AppendServer(make([]byte, 0, msg.Size()), msg)
}

func AppendClient(b []byte, msg ClientMessage) []byte {
	b = append(b, msg.Tag())
	return msg.appendPayload(b)
}

func EncodeClient(msg ClientMessage) []byte {
	return AppendClient(make([]byte, 0, msg.Size()), msg)
}

// DecodeClient parses a client message. Bytes after the fixed payload
// are ignored.
func DecodeClient(b []byte) (ClientMessage, error) {
	if len(b) == 0 {
		return nil, ErrEmptyMessage
	}

	switch b[0] {
	case TagInputClickPressed:
		if len(b) < InputClickPressedSize {
			return nil, fmt.Errorf("input click: %w (%d bytes)", ErrShortMessage, len(b))
		}
		return InputClickPressed{
			X: readFloat32(b[1:5]),
			Y: readFloat32(b[5:9]),
		}, nil
	default:
		return nil, fmt.Errorf("%w %d", ErrUnknownTag, b[0])
	}
}

// ClientSize returns the encoded length of the client message that
// starts with tag, or 0 for an unknown tag.
func ClientSize(tag byte) int {
	switch tag {
	case TagInputClickPressed:
		return InputClickPressedSize
	default:
		return 0
	}
}

// DecodeServer parses a server message. It is used by clients and
// tests.
func DecodeServer(b []byte) (ServerMessage, error) {
	if len(b) == 0 {
		return nil, ErrEmptyMessage
	}

	tag := b[0]
	switch tag {
	case TagTick:
		if len(b) < TickSize {
			return nil, fmt.Errorf("tick: %w (%d bytes)", ErrShortMessage, len(b))
		}
		return Tick{Tick: binary.LittleEndian.Uint64(b[1:9])}, nil

	case TagCreatePlayer, TagUpdatePlayerPosition:
		if len(b) < CreatePlayerSize {
			return nil, fmt.Errorf("player message %d: %w (%d bytes)", tag, ErrShortMessage, len(b))
		}
		id, x, y := readPlayer(b[1:])
		if tag == TagCreatePlayer {
			return CreatePlayer{ID: id, X: x, Y: y}, nil
		}
		return UpdatePlayerPosition{ID: id, X: x, Y: y}, nil

	case TagRemovePlayer:
		if len(b) < RemovePlayerSize {
			return nil, fmt.Errorf("remove player: %w (%d bytes)", ErrShortMessage, len(b))
		}
		var id uuid.UUID
		copy(id[:], b[1:1+idSize])
		return RemovePlayer{ID: id}, nil

	default:
		return nil, fmt.Errorf("%w %d", ErrUnknownTag, tag)
	}
}

func readPlayer(b []byte) (uuid.UUID, float32, float32) {
	var id uuid.UUID
	copy(id[:], b[:idSize])
	return id, readFloat32(b[idSize : idSize+4]), readFloat32(b[idSize+4 : idSize+8])
}
