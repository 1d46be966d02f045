package ecs

import "fmt"

type SystemTrigger int

const (
	OnStartup SystemTrigger = iota
	OnUpdate
)

type SystemFunc func(ctx SystemContext) error

type SystemContext struct {
	*World
	Commands *CommandBuffer
}

type systemNode struct {
	name     string
	runner   SystemFunc
	commands *CommandBuffer
}

// Scheduler runs systems one after another in registration order.
// Commands queued by a system are applied before the next system runs.
type Scheduler struct {
	initSystems []*systemNode
	systems     []*systemNode
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		initSystems: make([]*systemNode, 0),
		systems:     make([]*systemNode, 0),
	}
}

func (s *Scheduler) AddSystem(name string, trigger SystemTrigger, sys SystemFunc) {
	node := &systemNode{
		name:     name,
		runner:   sys,
		commands: &CommandBuffer{},
	}

	if trigger == OnStartup {
		s.initSystems = append(s.initSystems, node)
		return
	}
	s.systems = append(s.systems, node)
}

func (s *Scheduler) RunInit(w *World) error {
	return s.run(w, s.initSystems)
}

// RunUpdate executes one iteration of all update systems. The first
// failing system aborts the iteration.
func (s *Scheduler) RunUpdate(w *World) error {
	return s.run(w, s.systems)
}

func (s *Scheduler) run(w *World, nodes []*systemNode) error {
	for _, sys := range nodes {
		err := sys.runner(SystemContext{
			World:    w,
			Commands: sys.commands,
		})

		sys.commands.apply(w)

		if err != nil {
			return fmt.Errorf("system %s: %w", sys.name, err)
		}
	}
	return nil
}

// ==================================================================
// Commands
// ==================================================================

// A CommandBuffer collects structural changes made while iterating a
// query and applies them once the system returns.
type CommandBuffer struct {
	despawn []Entity
}

// Despawn removes e once the current system has returned.
func (cb *CommandBuffer) Despawn(e Entity) {
	cb.despawn = append(cb.despawn, e)
}

func (cb *CommandBuffer) apply(w *World) {
	for _, e := range cb.despawn {
		w.Despawn(e)
	}
	cb.despawn = cb.despawn[:0]
}
