package ecs

import "reflect"

// Entity identifies an entity inside a World. Ids are allocated
// sequentially and never reused.
type Entity uint64

type World struct {
	next     Entity
	entities map[Entity]struct{}
	stores   map[reflect.Type]TypedStore
}

func NewWorld() *World {
	return &World{
		next:     1,
		entities: make(map[Entity]struct{}),
		stores:   make(map[reflect.Type]TypedStore),
	}
}

// ==================================================================
// Entities
// ==================================================================

// Spawn allocates a new entity without components.
func (w *World) Spawn() Entity {
	e := w.next
	w.next++
	w.entities[e] = struct{}{}
	return e
}

// Despawn removes e and all of its components. It reports whether e
// was alive.
func (w *World) Despawn(e Entity) bool {
	if _, ok := w.entities[e]; !ok {
		return false
	}
	delete(w.entities, e)

	for _, store := range w.stores {
		store.Remove(e)
	}
	return true
}

func (w *World) Alive(e Entity) bool {
	_, ok := w.entities[e]
	return ok
}

// Len returns the number of living entities.
func (w *World) Len() int {
	return len(w.entities)
}

// ==================================================================
// Components
// ==================================================================

// Register creates the store for T if it does not exist yet and
// returns it.
func Register[T any](w *World) *Store[T] {
	t := reflect.TypeFor[T]()
	if s, ok := w.stores[t]; ok {
		return s.(*Store[T])
	}

	s := &Store[T]{
		sparse: make(map[Entity]int),
	}
	w.stores[t] = s
	return s
}

// StoreOf returns the store for T, or nil if T was never registered.
func StoreOf[T any](w *World) *Store[T] {
	s, ok := w.stores[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	return s.(*Store[T])
}

// Add attaches value to e, replacing an existing T. Adding to a dead
// entity is a no-op.
func Add[T any](w *World, e Entity, value T) {
	if !w.Alive(e) {
		return
	}
	Register[T](w).Set(e, value)
}

// Get returns a pointer to e's T. The pointer is invalidated by the
// next structural change to the T store.
func Get[T any](w *World, e Entity) (*T, bool) {
	s := StoreOf[T](w)
	if s == nil || !s.HasEntity(e) {
		return nil, false
	}
	return s.Get(e), true
}

// Remove detaches e's T, if any. The entity stays alive.
func Remove[T any](w *World, e Entity) {
	if s := StoreOf[T](w); s != nil {
		s.Remove(e)
	}
}

// Single returns the first entity carrying T. It is meant for
// components that exist exactly once per world.
func Single[T any](w *World) (Entity, *T, bool) {
	s := StoreOf[T](w)
	if s == nil || s.Len() == 0 {
		return 0, nil, false
	}
	return s.dense[0], &s.data[0], true
}

// ==================================================================
// Stores
// ==================================================================

type TypedStore interface {
	HasEntity(e Entity) bool
	Remove(e Entity)
	Len() int
}

// Store is a sparse set holding one component type. Components are
// packed densely; removal swaps the last element into the hole.
type Store[T any] struct {
	sparse map[Entity]int
	dense  []Entity
	data   []T
}

func (s *Store[T]) Set(e Entity, value T) {
	if idx, ok := s.sparse[e]; ok {
		s.data[idx] = value
		return
	}

	s.sparse[e] = len(s.data)
	s.data = append(s.data, value)
	s.dense = append(s.dense, e)
}

func (s *Store[T]) Remove(e Entity) {
	idx, exists := s.sparse[e]
	if !exists {
		return
	}

	last := len(s.data) - 1
	lastEntity := s.dense[last]

	if idx != last {
		s.data[idx] = s.data[last]
		s.dense[idx] = lastEntity
		s.sparse[lastEntity] = idx
	}

	var zero T
	s.data[last] = zero
	s.data = s.data[:last]
	s.dense = s.dense[:last]

	delete(s.sparse, e)
}

func (s *Store[T]) Len() int {
	return len(s.dense)
}

func (s *Store[T]) HasEntity(e Entity) bool {
	_, ok := s.sparse[e]
	return ok
}

// Get panics if e has no T; use HasEntity first when unsure.
func (s *Store[T]) Get(e Entity) *T {
	return &s.data[s.sparse[e]]
}
