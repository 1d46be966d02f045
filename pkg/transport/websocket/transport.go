// Package websockets is a fallback for clients without WebTransport.
// Every binary message is treated as a datagram; server streams are sent
// as one binary message each. Clients cannot open streams.
package websockets

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"

	"github.com/playdodgeball/wtserver/pkg/transport"
)

const (
	writeWait       = 5 * time.Second
	maxMessageSize  = 1024
	datagramBacklog = 64
)

type Transport struct {
	upgrader websocket.Upgrader
	sessions chan *session

	closeOnce sync.Once
	closed    chan struct{}
}

func New(checkOrigin func(r *http.Request) bool) *Transport {
	return &Transport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		sessions: make(chan *session),
		closed:   make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and hands the session to Accept.
func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-t.closed:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s := newSession(conn)

	select {
	case t.sessions <- s:
		go s.readPump()
	case <-t.closed:
		s.CloseWithError(0, "shutting down")
	case <-r.Context().Done():
		s.CloseWithError(0, "")
	}
}

func (t *Transport) Accept(ctx context.Context) (transport.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, transport.ErrTransportClosed
	case s := <-t.sessions:
		return s, nil
	}
}

func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
	return nil
}

type session struct {
	conn      *websocket.Conn
	writeMu   deadlock.Mutex
	closed    bool // guarded by writeMu
	datagrams chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(conn *websocket.Conn) *session {
	ctx, cancel := context.WithCancel(context.Background())
	conn.SetReadLimit(maxMessageSize)
	return &session{
		conn:      conn,
		datagrams: make(chan []byte, datagramBacklog),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *session) readPump() {
	defer s.cancel()

	for {
		typ, b, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}

		select {
		case s.datagrams <- b:
		default:
			// datagram semantics: drop when the reader falls behind
		}
	}
}

func (s *session) AcceptStream(ctx context.Context) (transport.Stream, error) {
	return nil, s.wait(ctx)
}

func (s *session) AcceptUniStream(ctx context.Context) (transport.ReceiveStream, error) {
	return nil, s.wait(ctx)
}

func (s *session) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return transport.ErrSessionClosed
	}
}

func (s *session) OpenUniStreamSync(ctx context.Context) (transport.SendStream, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, transport.ErrSessionClosed
	}
	return &uniStream{s: s}, nil
}

func (s *session) SendDatagram(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed || s.ctx.Err() != nil {
		return transport.ErrSessionClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (s *session) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	select {
	case b := <-s.datagrams:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, transport.ErrSessionClosed
	}
}

func (s *session) CloseWithError(code uint32, msg string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()

	wsCode := websocket.CloseNormalClosure
	if code != 0 {
		wsCode = 4000 + int(code%1000)
	}

	var lastErr error
	err := s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(wsCode, msg),
		time.Now().Add(time.Second),
	)
	if err != nil {
		lastErr = err
	}
	if err := s.conn.Close(); err != nil {
		lastErr = err
	}
	return lastErr
}

func (s *session) Context() context.Context {
	return s.ctx
}

func (s *session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// uniStream buffers writes and sends them as a single message on Close.
type uniStream struct {
	s   *session
	buf bytes.Buffer
}

func (u *uniStream) Write(p []byte) (int, error) {
	return u.buf.Write(p)
}

func (u *uniStream) Close() error {
	return u.s.SendDatagram(u.buf.Bytes())
}
