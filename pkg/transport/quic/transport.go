// Package quic accepts native clients over raw QUIC. The stream and
// datagram semantics are the same as for WebTransport.
package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/playdodgeball/wtserver/pkg/transport"
)

// ALPN is the application protocol negotiated with native clients.
const ALPN = "dodgeball"

type Transport struct {
	ln *quic.Listener
}

// Listen starts a QUIC listener on addr. Datagrams are always enabled.
func Listen(addr string, tlsConf *tls.Config, conf *quic.Config) (*Transport, error) {
	tlsConf = tlsConf.Clone()
	if len(tlsConf.NextProtos) == 0 {
		tlsConf.NextProtos = []string{ALPN}
	}

	if conf == nil {
		conf = &quic.Config{
			MaxIdleTimeout:  30 * time.Second,
			KeepAlivePeriod: 10 * time.Second,
		}
	} else {
		conf = conf.Clone()
	}
	conf.EnableDatagrams = true

	ln, err := quic.ListenAddr(addr, tlsConf, conf)
	if err != nil {
		return nil, err
	}
	return &Transport{ln: ln}, nil
}

func (t *Transport) Accept(ctx context.Context) (transport.Session, error) {
	conn, err := t.ln.Accept(ctx)
	if err != nil {
		if errors.Is(err, quic.ErrServerClosed) {
			return nil, transport.ErrTransportClosed
		}
		return nil, err
	}
	return &session{Conn: conn}, nil
}

func (t *Transport) Close() error {
	return t.ln.Close()
}

func (t *Transport) Addr() net.Addr {
	return t.ln.Addr()
}

type session struct {
	*quic.Conn
}

func (s *session) AcceptStream(ctx context.Context) (transport.Stream, error) {
	str, err := s.Conn.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return str, nil
}

func (s *session) AcceptUniStream(ctx context.Context) (transport.ReceiveStream, error) {
	str, err := s.Conn.AcceptUniStream(ctx)
	if err != nil {
		return nil, err
	}
	return str, nil
}

func (s *session) OpenUniStreamSync(ctx context.Context) (transport.SendStream, error) {
	str, err := s.Conn.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return str, nil
}

func (s *session) CloseWithError(code uint32, msg string) error {
	return s.Conn.CloseWithError(quic.ApplicationErrorCode(code), msg)
}
