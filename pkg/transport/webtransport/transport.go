// Package webtransport accepts browser sessions over HTTP/3 WebTransport.
package webtransport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"github.com/playdodgeball/wtserver/pkg/transport"
)

const handoffTimeout = 5 * time.Second

type Transport struct {
	server   *webtransport.Server
	sessions chan *webtransport.Session

	closeOnce sync.Once
	closed    chan struct{}
}

// New builds a WebTransport server listening on addr. Every
// request on path is upgraded and queued for Accept.
func New(addr, path string, tlsConf *tls.Config, checkOrigin func(r *http.Request) bool) *Transport {
	t := &Transport{
		sessions: make(chan *webtransport.Session),
		closed:   make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, t.HandleUpgrade)

	t.server = &webtransport.Server{
		H3: http3.Server{
			Addr:      addr,
			TLSConfig: http3.ConfigureTLSConfig(tlsConf),
			QUICConfig: &quic.Config{
				EnableDatagrams: true,
				MaxIdleTimeout:  30 * time.Second,
				KeepAlivePeriod: 10 * time.Second,
			},
			Handler: mux,
		},
		CheckOrigin: checkOrigin,
	}
	return t
}

// ListenAndServe blocks until Close is called or the listener fails.
func (t *Transport) ListenAndServe() error {
	return t.served(t.server.ListenAndServe())
}

// Serve is like ListenAndServe on an existing packet conn.
func (t *Transport) Serve(conn net.PacketConn) error {
	return t.served(t.server.Serve(conn))
}

func (t *Transport) served(err error) error {
	select {
	case <-t.closed:
		return nil
	default:
	}
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, quic.ErrServerClosed) {
		return nil
	}
	return err
}

func (t *Transport) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	select {
	case <-t.closed:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	ses, err := t.server.Upgrade(w, r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	timer := time.NewTimer(handoffTimeout)
	defer timer.Stop()

	select {
	case t.sessions <- ses:
	case <-timer.C:
		ses.CloseWithError(1, "server busy")
	case <-t.closed:
		ses.CloseWithError(0, "shutting down")
	}
}

func (t *Transport) Accept(ctx context.Context) (transport.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, transport.ErrTransportClosed
	case ses := <-t.sessions:
		return &session{Session: ses}, nil
	}
}

func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.server.Close()
	})
	return err
}

type session struct {
	*webtransport.Session
}

func (s *session) AcceptStream(ctx context.Context) (transport.Stream, error) {
	str, err := s.Session.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return str, nil
}

func (s *session) AcceptUniStream(ctx context.Context) (transport.ReceiveStream, error) {
	str, err := s.Session.AcceptUniStream(ctx)
	if err != nil {
		return nil, err
	}
	return str, nil
}

func (s *session) OpenUniStreamSync(ctx context.Context) (transport.SendStream, error) {
	str, err := s.Session.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return str, nil
}

func (s *session) CloseWithError(code uint32, msg string) error {
	return s.Session.CloseWithError(webtransport.SessionErrorCode(code), msg)
}
