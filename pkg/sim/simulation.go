// Package sim owns the authoritative game world. A Simulation is driven
// by a single goroutine: it consumes connection events from the inbound
// bridge, advances the world at a fixed rate and emits protocol messages
// on the outbound bridge. No other goroutine touches the world.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/playdodgeball/wtserver/pkg/axlog"
	"github.com/playdodgeball/wtserver/pkg/bridge"
	"github.com/playdodgeball/wtserver/pkg/ecs"
	"github.com/playdodgeball/wtserver/pkg/metrics"
	"github.com/playdodgeball/wtserver/pkg/protocol"
)

var (
	ErrSimulationRunning = errors.New("simulation is already running")
	ErrOutboundClosed    = errors.New("outbound bridge closed")
)

// Reliable messages beyond this backlog are dropped.
const maxPending = 4096

type Simulation struct {
	cfg   Config
	world *ecs.World
	sched *ecs.Scheduler

	in  bridge.Receiver[bridge.Inbound]
	out bridge.Sender[bridge.Outbound]

	logger  axlog.Logger
	metrics *metrics.Counters
	rng     *rand.Rand

	isRunning atomic.Bool
	// outbound messages dropped during the current tick
	dropped int
	// reliable messages waiting for room in the outbound bridge
	pending []bridge.Outbound
}

type Option func(*Simulation)

func WithLogger(l axlog.Logger) Option {
	return func(s *Simulation) {
		s.logger = l
	}
}

func WithMetrics(m *metrics.Counters) Option {
	return func(s *Simulation) {
		s.metrics = m
	}
}

// New builds the world with its tick counter and level geometry. cfg
// must be valid.
func New(cfg Config, in bridge.Receiver[bridge.Inbound], out bridge.Sender[bridge.Outbound], opts ...Option) *Simulation {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	s := &Simulation{
		cfg:     cfg,
		world:   ecs.NewWorld(),
		sched:   ecs.NewScheduler(),
		in:      in,
		out:     out,
		logger:  axlog.Nop(),
		metrics: metrics.New(),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(s)
	}

	ecs.Register[Tick](s.world)
	ecs.Register[Player](s.world)
	ecs.Register[Connection](s.world)
	ecs.Register[Position](s.world)
	ecs.Register[Velocity](s.world)
	ecs.Register[MoveTarget](s.world)
	ecs.Register[PlayerMove](s.world)
	ecs.Register[PlayerCollision](s.world)
	ecs.Register[State](s.world)
	ecs.Register[Collision](s.world)

	s.sched.AddSystem("setup", ecs.OnStartup, s.setupSystem)
	s.sched.AddSystem("tick", ecs.OnUpdate, s.tickSystem)
	s.sched.AddSystem("events", ecs.OnUpdate, s.eventSystem)
	s.sched.AddSystem("state", ecs.OnUpdate, stateSystem)
	s.sched.AddSystem("movement", ecs.OnUpdate, s.movementSystem)
	s.sched.AddSystem("integrate", ecs.OnUpdate, integrateSystem)
	s.sched.AddSystem("broadcast", ecs.OnUpdate, s.broadcastSystem)

	if err := s.sched.RunInit(s.world); err != nil {
		s.logger.Error("world setup failed", "error", err)
	}
	return s
}

// Run steps the world every cfg.TickRate until ctx is done or the
// outbound bridge is closed.
func (s *Simulation) Run(ctx context.Context) error {
	if !s.isRunning.CompareAndSwap(false, true) {
		return ErrSimulationRunning
	}
	defer s.isRunning.Store(false)

	t := time.NewTicker(s.cfg.TickRate)
	defer t.Stop()

	s.logger.Info("simulation started", "tick_rate", s.cfg.TickRate)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation stopped", "tick", s.TickCount())
			return nil
		case <-t.C:
			if err := s.Step(); err != nil {
				if errors.Is(err, ErrOutboundClosed) {
					s.logger.Warn("outbound bridge closed, stopping simulation", "tick", s.TickCount())
				}
				return err
			}
		}
	}
}

// Step advances the world by exactly one tick.
func (s *Simulation) Step() error {
	start := time.Now()
	s.dropped = 0

	err := s.flush()
	if err == nil {
		err = s.sched.RunUpdate(s.world)
	}

	s.metrics.AddTick(time.Since(start))
	s.metrics.Players.Store(int64(s.Players()))

	if s.dropped > 0 {
		s.logger.Warn("outbound bridge full, messages dropped", "tick", s.TickCount(), "dropped", s.dropped, "pending", len(s.pending))
	}
	return err
}

func (s *Simulation) TickCount() uint64 {
	_, tick, ok := ecs.Single[Tick](s.world)
	if !ok {
		return 0
	}
	return tick.Counter
}

func (s *Simulation) Players() int {
	return ecs.StoreOf[Player](s.world).Len()
}

// send queues msg for connection to without blocking the tick. A
// reliable message that does not fit is kept and retried at the start
// of the next tick, behind any reliable message already waiting.
func (s *Simulation) send(to uuid.UUID, msg protocol.ServerMessage) error {
	out := bridge.Outbound{To: to, Msg: msg}
	if msg.Reliable() && len(s.pending) > 0 {
		s.hold(out)
		return nil
	}

	err := s.out.TrySend(out)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bridge.ErrFull):
		if msg.Reliable() {
			s.hold(out)
			return nil
		}
		s.dropped++
		s.metrics.OutboundDropped.Add(1)
		return nil
	case errors.Is(err, bridge.ErrClosed):
		return ErrOutboundClosed
	default:
		return fmt.Errorf("send to %s: %w", to, err)
	}
}

func (s *Simulation) hold(out bridge.Outbound) {
	if len(s.pending) >= maxPending {
		s.logger.Error("reliable backlog full, message dropped", "to", out.To, "tag", out.Msg.Tag())
		s.dropped++
		s.metrics.OutboundDropped.Add(1)
		return
	}
	s.pending = append(s.pending, out)
	s.metrics.OutboundDeferred.Add(1)
}

// flush retries the reliable backlog in order until the bridge is full
// again.
func (s *Simulation) flush() error {
	sent := 0
	defer func() {
		n := copy(s.pending, s.pending[sent:])
		clear(s.pending[n:])
		s.pending = s.pending[:n]
	}()

	for _, out := range s.pending {
		err := s.out.TrySend(out)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, bridge.ErrFull):
			return nil
		case errors.Is(err, bridge.ErrClosed):
			return ErrOutboundClosed
		default:
			return fmt.Errorf("send to %s: %w", out.To, err)
		}
	}
	return nil
}

func (s *Simulation) spawnPoint() (float32, float32) {
	x, y := s.cfg.SpawnX, s.cfg.SpawnY
	if j := s.cfg.SpawnJitter; j > 0 {
		x += (s.rng.Float32()*2 - 1) * j
		y += (s.rng.Float32()*2 - 1) * j
	}
	return x, y
}

// findPlayer returns the player entity bound to connection id.
func (s *Simulation) findPlayer(id uuid.UUID) (ecs.Entity, bool) {
	for row := range ecs.Query1[Connection](s.world, ecs.With[Player]()) {
		if row.Get().ID == id {
			return row.Entity, true
		}
	}
	return 0, false
}
