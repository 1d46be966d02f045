// Package relay moves bytes between transport sessions and the bridge.
// Every session gets a connection id, its input is decoded and queued
// for the simulation, and outbound messages are routed back by id.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/playdodgeball/wtserver/pkg/axlog"
	"github.com/playdodgeball/wtserver/pkg/bridge"
	"github.com/playdodgeball/wtserver/pkg/metrics"
	"github.com/playdodgeball/wtserver/pkg/protocol"
	"github.com/playdodgeball/wtserver/pkg/transport"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrPeerStalled       = errors.New("peer stalled")
)

// Close codes sent to clients.
const (
	CodeNormal  uint32 = 0
	CodeStalled uint32 = 2
	CodeIDTaken uint32 = 3
)

const (
	maxMessageSize    = 64
	defaultPeerBuffer = 256
	leaveTimeout      = time.Second
)

var ackMessage = []byte("ACK")

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, maxMessageSize)
		return &b
	},
}

type Relay struct {
	listener transport.Listener
	in       bridge.Sender[bridge.Inbound]
	out      bridge.Receiver[bridge.Outbound]
	registry *Registry

	logger      axlog.Logger
	metrics     *metrics.Counters
	idGenerator func() uuid.UUID
	peerBuffer  int

	sessions sync.WaitGroup
}

type Option func(*Relay)

func WithLogger(logger axlog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Counters) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithIDGenerator overrides uuid.New for connection ids.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(r *Relay) {
		r.idGenerator = fn
	}
}

// WithPeerBuffer sets how many outbound messages may wait per peer.
func WithPeerBuffer(n int) Option {
	return func(r *Relay) {
		r.peerBuffer = n
	}
}

func New(
	listener transport.Listener,
	in bridge.Sender[bridge.Inbound],
	out bridge.Receiver[bridge.Outbound],
	options ...Option,
) *Relay {
	r := &Relay{
		listener:    listener,
		in:          in,
		out:         out,
		registry:    NewRegistry(),
		logger:      axlog.Nop(),
		metrics:     metrics.New(),
		idGenerator: uuid.New,
		peerBuffer:  defaultPeerBuffer,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Relay) Registry() *Registry {
	return r.registry
}

// Run accepts sessions and routes outbound messages until ctx is done,
// the listener is closed or the outbound queue is closed. A listener
// closed while ctx is still live is reported as an error. It waits for
// all sessions to finish before returning.
func (r *Relay) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.drain(gctx)
	})
	g.Go(func() error {
		return r.acceptLoop(gctx)
	})

	err := g.Wait()
	r.sessions.Wait()
	return err
}

func (r *Relay) acceptLoop(ctx context.Context) error {
	for {
		ses, err := r.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// a closed listener ends Run as well
			return fmt.Errorf("accept: %w", err)
		}

		r.sessions.Add(1)
		go func() {
			defer r.sessions.Done()
			r.handleSession(ctx, ses)
		}()
	}
}

// drain routes outbound messages to the write pump of their recipient.
func (r *Relay) drain(ctx context.Context) error {
	for {
		ob, err := r.out.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("outbound: %w", err)
		}
		if err := r.route(ob); err != nil && !errors.Is(err, ErrUnknownConnection) {
			r.logger.Warn("closing peer", "connection", ob.To, "error", err)
		}
	}
}

func (r *Relay) route(ob bridge.Outbound) error {
	p, ok := r.registry.get(ob.To)
	if !ok {
		r.metrics.UnknownRecipients.Add(1)
		return ErrUnknownConnection
	}

	dropped, err := p.enqueue(ob.Msg)
	if err != nil {
		r.metrics.PeersStalled.Add(1)
		return err
	}
	if dropped {
		r.metrics.DatagramsDropped.Add(1)
	}
	return nil
}

func (r *Relay) handleSession(ctx context.Context, ses transport.Session) {
	p := newPeer(r.idGenerator(), ses, r.peerBuffer)
	if !r.registry.add(p) {
		r.logger.Error("connection id already registered", "connection", p.id)
		ses.CloseWithError(CodeIDTaken, "id taken")
		return
	}

	r.metrics.SessionsOpened.Add(1)
	r.logger.Info("session opened", "connection", p.id, "remote", ses.RemoteAddr())

	joined := false
	defer func() {
		r.registry.remove(p)
		p.close()
		r.metrics.SessionsClosed.Add(1)

		if joined {
			lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveTimeout)
			if err := r.in.Send(lctx, bridge.PlayerLeft{ID: p.id}); err != nil {
				r.logger.Warn("leave event lost", "connection", p.id, "error", err)
			}
			cancel()
		}
	}()

	if err := r.in.Send(ctx, bridge.PlayerJoined{ID: p.id}); err != nil {
		r.logger.Warn("join event not delivered", "connection", p.id, "error", err)
		ses.CloseWithError(CodeNormal, "server shutting down")
		return
	}
	joined = true

	err := r.serveSession(ctx, p)

	code, reason := CodeNormal, ""
	switch {
	case errors.Is(err, ErrPeerStalled):
		code, reason = CodeStalled, "stalled"
	case ctx.Err() != nil:
		reason = "server shutting down"
	}
	ses.CloseWithError(code, reason)

	r.logger.Info("session closed", "connection", p.id, "reason", err)
}

func (r *Relay) serveSession(ctx context.Context, p *peer) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.streamLoop(gctx, p)
	})
	g.Go(func() error {
		return r.uniStreamLoop(gctx, p)
	})
	g.Go(func() error {
		return r.datagramLoop(gctx, p)
	})
	g.Go(func() error {
		return r.writePump(gctx, p)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-p.done:
			return ErrPeerStalled
		}
	})

	return g.Wait()
}

func (r *Relay) streamLoop(ctx context.Context, p *peer) error {
	for {
		str, err := p.session.AcceptStream(ctx)
		if err != nil {
			return err
		}
		go r.handleStream(p, str)
	}
}

// handleStream reads one message and acknowledges it.
func (r *Relay) handleStream(p *peer, str transport.Stream) {
	defer str.Close()

	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)
	buf := *bufPtr

	n, err := io.ReadAtLeast(str, buf, 1)
	if err == nil {
		// the tag announces how much more is on its way
		if size := protocol.ClientSize(buf[0]); n < size {
			var m int
			m, err = io.ReadAtLeast(str, buf[n:], size-n)
			n += m
		}
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		r.logger.Debug("stream read failed", "connection", p.id, "error", err)
		return
	}
	if err := r.forward(p.id, buf[:n]); err != nil {
		return
	}
	if _, err := str.Write(ackMessage); err != nil {
		r.logger.Debug("stream ack failed", "connection", p.id, "error", err)
	}
}

func (r *Relay) uniStreamLoop(ctx context.Context, p *peer) error {
	for {
		str, err := p.session.AcceptUniStream(ctx)
		if err != nil {
			return err
		}
		go r.handleUniStream(p, str)
	}
}

func (r *Relay) handleUniStream(p *peer, str transport.ReceiveStream) {
	b, err := io.ReadAll(io.LimitReader(str, maxMessageSize))
	if err != nil {
		r.logger.Debug("uni stream read failed", "connection", p.id, "error", err)
		return
	}
	r.forward(p.id, b)
}

func (r *Relay) datagramLoop(ctx context.Context, p *peer) error {
	for {
		b, err := p.session.ReceiveDatagram(ctx)
		if err != nil {
			return err
		}
		if err := r.forward(p.id, b); errors.Is(err, bridge.ErrClosed) {
			return err
		}
	}
}

// forward decodes b and queues the resulting input. Input is lossy: a
// full inbound queue drops it.
func (r *Relay) forward(id uuid.UUID, b []byte) error {
	msg, err := protocol.DecodeClient(b)
	if err != nil {
		r.metrics.DecodeErrors.Add(1)
		r.logger.Debug("dropping client message", "connection", id, "error", err)
		return err
	}

	ev, ok := bridge.FromClient(id, msg)
	if !ok {
		return nil
	}

	switch err := r.in.TrySend(ev); {
	case err == nil:
		r.metrics.InputsAccepted.Add(1)
		return nil
	case errors.Is(err, bridge.ErrFull):
		r.metrics.InputsDropped.Add(1)
		return err
	default:
		return err
	}
}

func (r *Relay) writePump(ctx context.Context, p *peer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-p.send:
			if err := r.write(ctx, p, msg); err != nil {
				return err
			}
		}
	}
}

// write sends reliable messages on a fresh uni stream and everything
// else as a datagram. Only stream failures end the session.
func (r *Relay) write(ctx context.Context, p *peer, msg protocol.ServerMessage) error {
	b := protocol.EncodeServer(msg)

	if !msg.Reliable() {
		if err := p.session.SendDatagram(b); err != nil {
			r.logger.Debug("datagram send failed", "connection", p.id, "error", err)
			return nil
		}
		r.metrics.DatagramsSent.Add(1)
		return nil
	}

	str, err := p.session.OpenUniStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if _, err := str.Write(b); err != nil {
		str.Close()
		return fmt.Errorf("write stream: %w", err)
	}
	if err := str.Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	r.metrics.StreamsSent.Add(1)
	return nil
}
