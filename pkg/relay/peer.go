package relay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/playdodgeball/wtserver/pkg/protocol"
	"github.com/playdodgeball/wtserver/pkg/transport"
)

type peer struct {
	id      uuid.UUID
	session transport.Session
	send    chan protocol.ServerMessage

	closeOnce sync.Once
	done      chan struct{}
}

func newPeer(id uuid.UUID, session transport.Session, buffer int) *peer {
	if buffer < 1 {
		buffer = 1
	}
	return &peer{
		id:      id,
		session: session,
		send:    make(chan protocol.ServerMessage, buffer),
		done:    make(chan struct{}),
	}
}

// enqueue hands msg to the write pump. It returns ErrPeerStalled when
// the buffer is full and msg must not be lost.
func (p *peer) enqueue(msg protocol.ServerMessage) (dropped bool, err error) {
	select {
	case <-p.done:
		return true, nil
	default:
	}

	select {
	case p.send <- msg:
		return false, nil
	default:
	}

	if !msg.Reliable() {
		return true, nil
	}
	p.close()
	return true, ErrPeerStalled
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}
