// Package transport describes what the relay needs from a network
// session: reliable streams in both directions, unreliable datagrams
// and an accept loop. Adapters live in the sub packages.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
)

var (
	ErrTransportClosed = errors.New("transport closed")
	ErrSessionClosed   = errors.New("session closed")
)

// Stream is a bidirectional reliable stream opened by the client.
type Stream interface {
	io.ReadWriteCloser
}

// ReceiveStream is a unidirectional stream opened by the client.
type ReceiveStream interface {
	io.Reader
}

// SendStream is a unidirectional stream opened by the server.
type SendStream interface {
	io.WriteCloser
}

//go:generate mockgen -destination=../relay/mock_session_test.go -package=relay github.com/playdodgeball/wtserver/pkg/transport Session

type Session interface {
	AcceptStream(ctx context.Context) (Stream, error)
	AcceptUniStream(ctx context.Context) (ReceiveStream, error)
	OpenUniStreamSync(ctx context.Context) (SendStream, error)

	SendDatagram(b []byte) error
	ReceiveDatagram(ctx context.Context) ([]byte, error)

	// CloseWithError terminates the session. Code 0 is a normal close.
	CloseWithError(code uint32, msg string) error
	// Context is done once the session is closed.
	Context() context.Context
	RemoteAddr() net.Addr
}

type Listener interface {
	Accept(ctx context.Context) (Session, error)
	Close() error
}
