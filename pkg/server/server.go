// Package server wires a transport, the relay and the simulation into
// one process.
package server

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playdodgeball/wtserver/pkg/axlog"
	"github.com/playdodgeball/wtserver/pkg/bridge"
	"github.com/playdodgeball/wtserver/pkg/config"
	"github.com/playdodgeball/wtserver/pkg/metrics"
	"github.com/playdodgeball/wtserver/pkg/relay"
	"github.com/playdodgeball/wtserver/pkg/sim"
	"github.com/playdodgeball/wtserver/pkg/transport"
	quictransport "github.com/playdodgeball/wtserver/pkg/transport/quic"
	"github.com/playdodgeball/wtserver/pkg/transport/webtransport"
	websockets "github.com/playdodgeball/wtserver/pkg/transport/websocket"
)

// selfSignedValidity stays below the 14 day limit browsers apply to
// serverCertificateHashes.
const selfSignedValidity = 10 * 24 * time.Hour

type Server struct {
	cfg     config.Config
	logger  axlog.Logger
	metrics *metrics.Counters

	bridge *bridge.Bridge
	sim    *sim.Simulation
	relay  *relay.Relay

	listener transport.Listener
	addr     net.Addr
	certHash []byte
	serve    func() error
	stop     func() error

	admin   *http.Server
	adminLn net.Listener
}

// New binds all listeners. Nothing is served before Run.
func New(cfg config.Config, logger axlog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = axlog.Nop()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		bridge:  bridge.New(cfg.InboundCap, cfg.OutboundCap),
	}

	if err := s.listen(); err != nil {
		return nil, err
	}

	s.sim = sim.New(cfg.Sim(), s.bridge.In, s.bridge.Out,
		sim.WithLogger(logger),
		sim.WithMetrics(s.metrics),
	)
	s.relay = relay.New(s.listener, s.bridge.In, s.bridge.Out,
		relay.WithLogger(logger),
		relay.WithMetrics(s.metrics),
		relay.WithPeerBuffer(cfg.PeerBuffer),
	)

	if cfg.AdminAddr != "" {
		ln, err := net.Listen("tcp", cfg.AdminAddr)
		if err != nil {
			s.stop()
			return nil, fmt.Errorf("admin listen: %w", err)
		}
		s.adminLn = ln
		s.admin = &http.Server{
			Handler:           metrics.Mux(s.metrics, s.sources()),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return s, nil
}

func (s *Server) listen() error {
	switch s.cfg.Transport {
	case config.TransportWebSocket:
		return s.listenWebSocket()
	case config.TransportQUIC:
		return s.listenQUIC()
	default:
		return s.listenWebTransport()
	}
}

func (s *Server) listenWebTransport() error {
	tlsConf, err := s.tlsConfig()
	if err != nil {
		return err
	}

	conn, err := net.ListenPacket("udp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	wt := webtransport.New(s.cfg.Listen, s.cfg.Path, tlsConf, s.checkOrigin)
	s.listener = wt
	s.addr = conn.LocalAddr()
	s.serve = func() error {
		return wt.Serve(conn)
	}
	s.stop = func() error {
		err := wt.Close()
		conn.Close()
		return err
	}
	return nil
}

func (s *Server) listenQUIC() error {
	tlsConf, err := s.tlsConfig(quictransport.ALPN)
	if err != nil {
		return err
	}

	qt, err := quictransport.Listen(s.cfg.Listen, tlsConf, nil)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = qt
	s.addr = qt.Addr()
	s.stop = qt.Close
	return nil
}

func (s *Server) listenWebSocket() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.addr = ln.Addr()

	if s.cfg.CertFile != "" {
		tlsConf, err := transport.LoadTLS(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			ln.Close()
			return err
		}
		ln = tls.NewListener(ln, tlsConf)
	}

	ws := websockets.New(s.checkOrigin)
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, ws)
	hs := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.listener = ws
	s.serve = func() error {
		if err := hs.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
	s.stop = func() error {
		ws.Close()
		return hs.Close()
	}
	return nil
}

// tlsConfig loads the configured key pair or falls back to a self
// signed certificate whose hash is logged for browser clients.
func (s *Server) tlsConfig(nextProtos ...string) (*tls.Config, error) {
	if s.cfg.CertFile != "" {
		return transport.LoadTLS(s.cfg.CertFile, s.cfg.KeyFile, nextProtos...)
	}

	tlsConf, hash, err := transport.SelfSigned(selfSignedValidity, "localhost")
	if err != nil {
		return nil, fmt.Errorf("self signed certificate: %w", err)
	}
	tlsConf.NextProtos = nextProtos
	s.certHash = hash[:]
	s.logger.Warn("using self signed certificate", "sha256", hex.EncodeToString(hash[:]))
	return tlsConf, nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if !s.cfg.AllowOrigin(origin) {
		s.logger.Warn("origin rejected", "origin", origin, "remote", r.RemoteAddr)
		return false
	}
	return true
}

func (s *Server) sources() map[string]metrics.Source {
	return map[string]metrics.Source{
		"inbound":  func() any { return s.bridge.In.Stats() },
		"outbound": func() any { return s.bridge.Out.Stats() },
		"peers":    func() any { return s.relay.Registry().Len() },
	}
}

// Run serves until ctx is done or one component fails. The simulation
// and the relay are useless alone, so either stopping stops the other.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.sim.Run(gctx); err != nil {
			return fmt.Errorf("simulation: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.relay.Run(gctx); err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		return nil
	})
	if s.serve != nil {
		g.Go(s.serve)
	}
	if s.admin != nil {
		g.Go(func() error {
			if err := s.admin.Serve(s.adminLn); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	s.logger.Info("server started",
		"transport", s.cfg.Transport,
		"addr", s.addr,
		"path", s.cfg.Path,
		"tick_hz", s.cfg.TickHz,
	)

	err := g.Wait()
	s.bridge.Close()
	s.logger.Info("server stopped", "ticks", s.sim.TickCount())
	return err
}

func (s *Server) shutdown() error {
	s.logger.Info("shutting down")

	var errs []error
	if err := s.stop(); err != nil {
		errs = append(errs, fmt.Errorf("transport: %w", err))
	}
	if s.admin != nil {
		if err := s.admin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("admin: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Addr is the bound game address.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// AdminAddr is the bound admin address or nil.
func (s *Server) AdminAddr() net.Addr {
	if s.adminLn == nil {
		return nil
	}
	return s.adminLn.Addr()
}

// CertHash is the SHA-256 of the self signed certificate, nil when a
// key pair was configured.
func (s *Server) CertHash() []byte {
	return s.certHash
}

func (s *Server) Metrics() *metrics.Counters {
	return s.metrics
}
