package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrClosed = errors.New("bridge closed")
	ErrFull   = errors.New("bridge queue full")
)

// Sender is the producing end of a Queue.
type Sender[T any] interface {
	Send(ctx context.Context, v T) error
	TrySend(v T) error
}

// Receiver is the consuming end of a Queue.
type Receiver[T any] interface {
	Recv(ctx context.Context) (T, error)
	TryRecv() (T, bool)
}

// Stats describes the traffic through a queue since its creation.
type Stats struct {
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
	Len       int    `json:"len"`
	Cap       int    `json:"cap"`
	HighWater int    `json:"high_water"`
}

// Queue is a bounded FIFO between exactly one logical producer side and
// one consumer side. Closing it wakes up blocked senders and lets the
// receiver drain what is left.
type Queue[T any] struct {
	ch        chan T
	done      chan struct{}
	closeOnce sync.Once

	sent      atomic.Uint64
	dropped   atomic.Uint64
	highWater atomic.Int64
}

func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Send blocks until v is queued, ctx is done or the queue is closed.
func (q *Queue[T]) Send(ctx context.Context, v T) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- v:
		q.recordSend()
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend queues v without blocking. A full queue counts as a drop.
func (q *Queue[T]) TrySend(v T) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- v:
		q.recordSend()
		return nil
	default:
		q.dropped.Add(1)
		return ErrFull
	}
}

// Recv blocks until a value is available. After Close it keeps
// returning queued values and then ErrClosed.
func (q *Queue[T]) Recv(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		return v, nil
	default:
	}

	var zero T
	select {
	case v := <-q.ch:
		return v, nil
	case <-q.done:
		select {
		case v := <-q.ch:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryRecv returns the next value if one is queued.
func (q *Queue[T]) TryRecv() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Close marks the queue as closed. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

func (q *Queue[T]) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *Queue[T]) Len() int {
	return len(q.ch)
}

func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

func (q *Queue[T]) Stats() Stats {
	return Stats{
		Sent:      q.sent.Load(),
		Dropped:   q.dropped.Load(),
		Len:       len(q.ch),
		Cap:       cap(q.ch),
		HighWater: int(q.highWater.Load()),
	}
}

func (q *Queue[T]) recordSend() {
	q.sent.Add(1)

	n := int64(len(q.ch))
	for {
		cur := q.highWater.Load()
		if n <= cur || q.highWater.CompareAndSwap(cur, n) {
			return
		}
	}
}
