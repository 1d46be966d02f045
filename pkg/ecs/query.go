package ecs

import (
	"iter"
	"reflect"
)

// QueryNode is an extra filter applied to the rows of a query.
type QueryNode struct {
	component reflect.Type
}

// With keeps rows whose entity also carries T.
func With[T any]() *QueryNode {
	return &QueryNode{component: reflect.TypeFor[T]()}
}

func (n *QueryNode) matches(w *World, e Entity) bool {
	s, ok := w.stores[n.component]
	return ok && s.HasEntity(e)
}

func matchAll(w *World, e Entity, filters []*QueryNode) bool {
	for _, f := range filters {
		if !f.matches(w, e) {
			return false
		}
	}
	return true
}

// Rows are produced in the dense order of the first component. The
// callback may mutate components through the row but must not spawn,
// despawn, add or remove components while iterating.

type Row1[T any] struct {
	Entity Entity
	store  *Store[T]
}

func (r Row1[T]) Get() *T {
	return r.store.Get(r.Entity)
}

func Query1[T any](w *World, filters ...*QueryNode) iter.Seq[Row1[T]] {
	s := StoreOf[T](w)

	return func(yield func(Row1[T]) bool) {
		if s == nil {
			return
		}
		for i := 0; i < len(s.dense); i++ {
			e := s.dense[i]
			if !matchAll(w, e, filters) {
				continue
			}
			if !yield(Row1[T]{Entity: e, store: s}) {
				return
			}
		}
	}
}

type Row2[T1, T2 any] struct {
	Entity Entity
	store1 *Store[T1]
	store2 *Store[T2]
}

func (r Row2[T1, T2]) Get1() *T1 {
	return r.store1.Get(r.Entity)
}

func (r Row2[T1, T2]) Get2() *T2 {
	return r.store2.Get(r.Entity)
}

func Query2[T1, T2 any](w *World, filters ...*QueryNode) iter.Seq[Row2[T1, T2]] {
	s1 := StoreOf[T1](w)
	s2 := StoreOf[T2](w)

	return func(yield func(Row2[T1, T2]) bool) {
		if s1 == nil || s2 == nil {
			return
		}
		for i := 0; i < len(s1.dense); i++ {
			e := s1.dense[i]
			if !s2.HasEntity(e) || !matchAll(w, e, filters) {
				continue
			}
			if !yield(Row2[T1, T2]{Entity: e, store1: s1, store2: s2}) {
				return
			}
		}
	}
}

type Row3[T1, T2, T3 any] struct {
	Entity Entity
	store1 *Store[T1]
	store2 *Store[T2]
	store3 *Store[T3]
}

func (r Row3[T1, T2, T3]) Get1() *T1 {
	return r.store1.Get(r.Entity)
}

func (r Row3[T1, T2, T3]) Get2() *T2 {
	return r.store2.Get(r.Entity)
}

func (r Row3[T1, T2, T3]) Get3() *T3 {
	return r.store3.Get(r.Entity)
}

func Query3[T1, T2, T3 any](w *World, filters ...*QueryNode) iter.Seq[Row3[T1, T2, T3]] {
	s1 := StoreOf[T1](w)
	s2 := StoreOf[T2](w)
	s3 := StoreOf[T3](w)

	return func(yield func(Row3[T1, T2, T3]) bool) {
		if s1 == nil || s2 == nil || s3 == nil {
			return
		}
		for i := 0; i < len(s1.dense); i++ {
			e := s1.dense[i]
			if !s2.HasEntity(e) || !s3.HasEntity(e) || !matchAll(w, e, filters) {
				continue
			}
			if !yield(Row3[T1, T2, T3]{Entity: e, store1: s1, store2: s2, store3: s3}) {
				return
			}
		}
	}
}

type Row4[T1, T2, T3, T4 any] struct {
	Entity Entity
	store1 *Store[T1]
	store2 *Store[T2]
	store3 *Store[T3]
	store4 *Store[T4]
}

func (r Row4[T1, T2, T3, T4]) Get1() *T1 {
	return r.store1.Get(r.Entity)
}

func (r Row4[T1, T2, T3, T4]) Get2() *T2 {
	return r.store2.Get(r.Entity)
}

func (r Row4[T1, T2, T3, T4]) Get3() *T3 {
	return r.store3.Get(r.Entity)
}

func (r Row4[T1, T2, T3, T4]) Get4() *T4 {
	return r.store4.Get(r.Entity)
}

func Query4[T1, T2, T3, T4 any](w *World, filters ...*QueryNode) iter.Seq[Row4[T1, T2, T3, T4]] {
	s1 := StoreOf[T1](w)
	s2 := StoreOf[T2](w)
	s3 := StoreOf[T3](w)
	s4 := StoreOf[T4](w)

	return func(yield func(Row4[T1, T2, T3, T4]) bool) {
		if s1 == nil || s2 == nil || s3 == nil || s4 == nil {
			return
		}
		for i := 0; i < len(s1.dense); i++ {
			e := s1.dense[i]
			if !s2.HasEntity(e) || !s3.HasEntity(e) || !s4.HasEntity(e) || !matchAll(w, e, filters) {
				continue
			}
			row := Row4[T1, T2, T3, T4]{Entity: e, store1: s1, store2: s2, store3: s3, store4: s4}
			if !yield(row) {
				return
			}
		}
	}
}
