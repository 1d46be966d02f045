package sim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/playdodgeball/wtserver/pkg/bridge"
	"github.com/playdodgeball/wtserver/pkg/ecs"
	"github.com/playdodgeball/wtserver/pkg/protocol"
)

// setupSystem creates the tick counter and the level geometry.
func (s *Simulation) setupSystem(ctx ecs.SystemContext) error {
	tick := ctx.Spawn()
	ecs.Add(ctx.World, tick, Tick{})

	level := ctx.Spawn()
	lines := make([]Segment, len(s.cfg.Level))
	copy(lines, s.cfg.Level)
	ecs.Add(ctx.World, level, Collision{Lines: lines})
	return nil
}

// tickSystem advances the counter and tells every connection about it.
func (s *Simulation) tickSystem(ctx ecs.SystemContext) error {
	_, tick, ok := ecs.Single[Tick](ctx.World)
	if !ok {
		return nil
	}
	tick.Counter++
	msg := protocol.Tick{Tick: tick.Counter}

	for row := range ecs.Query1[Connection](ctx.World) {
		if err := s.send(row.Get().ID, msg); err != nil {
			return err
		}
	}
	return nil
}

// eventSystem drains everything the relay queued since the last tick.
func (s *Simulation) eventSystem(ctx ecs.SystemContext) error {
	for {
		ev, ok := s.in.TryRecv()
		if !ok {
			return nil
		}

		var err error
		switch e := ev.(type) {
		case bridge.PlayerJoined:
			err = s.join(e.ID)
		case bridge.InputClickPressed:
			s.clickInput(e)
		case bridge.PlayerLeft:
			err = s.leave(ctx, e.ID)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Simulation) join(id uuid.UUID) error {
	if _, ok := s.findPlayer(id); ok {
		s.logger.Warn("duplicate join ignored", "connection", id)
		return nil
	}

	x, y := s.spawnPoint()
	w := s.world

	e := w.Spawn()
	ecs.Add(w, e, Player{})
	ecs.Add(w, e, Connection{ID: id})
	ecs.Add(w, e, State{Value: Idle})
	ecs.Add(w, e, Position{X: x, Y: y})
	ecs.Add(w, e, Velocity{})
	ecs.Add(w, e, MoveTarget{X: x, Y: y})
	ecs.Add(w, e, PlayerCollision{Radius: s.cfg.Radius})
	ecs.Add(w, e, PlayerMove{MoveSpeed: s.cfg.MoveSpeed, Mode: MovementTarget})

	s.logger.Info("player created", "connection", id, "x", x, "y", y)

	created := protocol.CreatePlayer{ID: id, X: x, Y: y}
	for row := range ecs.Query2[Connection, Position](w, ecs.With[Player]()) {
		conn, pos := row.Get1(), row.Get2()

		if err := s.send(conn.ID, created); err != nil {
			return err
		}
		if conn.ID != id {
			existing := protocol.CreatePlayer{ID: conn.ID, X: pos.X, Y: pos.Y}
			if err := s.send(id, existing); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Simulation) clickInput(e bridge.InputClickPressed) {
	p, ok := s.findPlayer(e.ID)
	if !ok {
		s.logger.Debug("input for unknown connection", "connection", e.ID)
		return
	}

	target, _ := ecs.Get[MoveTarget](s.world, p)
	move, _ := ecs.Get[PlayerMove](s.world, p)

	move.Mode = MovementTarget
	move.Timer = 0
	target.X = e.X
	target.Y = e.Y
}

func (s *Simulation) leave(ctx ecs.SystemContext, id uuid.UUID) error {
	p, ok := s.findPlayer(id)
	if !ok {
		s.logger.Debug("leave for unknown connection", "connection", id)
		return nil
	}
	// the connection is gone right away, the entity at the end of the system
	ecs.Remove[Connection](ctx.World, p)
	ctx.Commands.Despawn(p)
	s.logger.Info("player removed", "connection", id)

	removed := protocol.RemovePlayer{ID: id}
	for row := range ecs.Query1[Connection](ctx.World) {
		if err := s.send(row.Get().ID, removed); err != nil {
			return err
		}
	}
	return nil
}

// stateSystem moves players that are away from their target and idles
// the others.
func stateSystem(ctx ecs.SystemContext) error {
	for row := range ecs.Query3[Position, MoveTarget, State](ctx.World, ecs.With[Player]()) {
		pos, target, state := row.Get1(), row.Get2(), row.Get3()

		if target.X != pos.X || target.Y != pos.Y {
			state.Value = Move
		} else {
			state.Value = Idle
		}
	}
	return nil
}

func (s *Simulation) movementSystem(ctx ecs.SystemContext) error {
	var lines []Segment
	if _, level, ok := ecs.Single[Collision](ctx.World); ok {
		lines = level.Lines
	}

	moves := ecs.StoreOf[PlayerMove](ctx.World)
	colliders := ecs.StoreOf[PlayerCollision](ctx.World)

	for row := range ecs.Query4[Position, Velocity, MoveTarget, State](ctx.World, ecs.With[Player]()) {
		pos, vel, target, state := row.Get1(), row.Get2(), row.Get3(), row.Get4()

		if state.Value == Idle {
			target.X, target.Y = pos.X, pos.Y
			vel.X, vel.Y = 0, 0
			continue
		}

		move := moves.Get(row.Entity)
		col := colliders.Get(row.Entity)

		d := mgl32.Vec2{target.X - pos.X, target.Y - pos.Y}
		v := d
		if length := d.Len(); length > move.MoveSpeed {
			v = d.Mul(move.MoveSpeed / length)
		}

		centre := mgl32.Vec2{pos.X + col.OffsetX, pos.Y + col.OffsetY}
		v = ResolveVelocity(centre, v, col.Radius, lines, s.cfg.CollisionPasses)
		vel.X, vel.Y = v.X(), v.Y()

		if vel.X == 0 && vel.Y == 0 {
			// blocked counts as arrived
			target.X, target.Y = pos.X, pos.Y
		}
	}
	return nil
}

func integrateSystem(ctx ecs.SystemContext) error {
	for row := range ecs.Query2[Position, Velocity](ctx.World, ecs.With[Player]()) {
		pos, vel := row.Get1(), row.Get2()
		pos.X += vel.X
		pos.Y += vel.Y
	}
	return nil
}

type playerSnapshot struct {
	id   uuid.UUID
	x, y float32
}

// broadcastSystem sends every player's position to every connection.
func (s *Simulation) broadcastSystem(ctx ecs.SystemContext) error {
	players := make([]playerSnapshot, 0, s.Players())
	for row := range ecs.Query2[Connection, Position](ctx.World, ecs.With[Player]()) {
		conn, pos := row.Get1(), row.Get2()
		players = append(players, playerSnapshot{id: conn.ID, x: pos.X, y: pos.Y})
	}

	for row := range ecs.Query1[Connection](ctx.World) {
		to := row.Get().ID
		for _, p := range players {
			msg := protocol.UpdatePlayerPosition{ID: p.id, X: p.x, Y: p.y}
			if err := s.send(to, msg); err != nil {
				return err
			}
		}
	}
	return nil
}
