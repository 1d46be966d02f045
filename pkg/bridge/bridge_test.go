package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/playdodgeball/wtserver/pkg/protocol"
)

// TestQueueFIFO tests ordering through the queue
func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int](8)
	ctx := context.Background()

	for i := range 5 {
		if err := q.Send(ctx, i); err != nil {
			t.Fatal(err)
		}
	}
	for i := range 5 {
		v, err := q.Recv(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if v != i {
			t.Fatalf("Expected %d, got %d", i, v)
		}
	}
	if _, ok := q.TryRecv(); ok {
		t.Error("Expected empty queue")
	}
}

// TestQueueBound tests that TrySend drops once the capacity is reached
func TestQueueBound(t *testing.T) {
	q := NewQueue[int](2)

	if err := q.TrySend(1); err != nil {
		t.Fatal(err)
	}
	if err := q.TrySend(2); err != nil {
		t.Fatal(err)
	}
	if err := q.TrySend(3); !errors.Is(err, ErrFull) {
		t.Fatalf("Expected ErrFull, got %v", err)
	}

	st := q.Stats()
	if st.Sent != 2 || st.Dropped != 1 || st.HighWater != 2 || st.Cap != 2 {
		t.Errorf("Unexpected stats %+v", st)
	}
}

// TestQueueSendBlocksUntilRoom tests that Send waits for the consumer
func TestQueueSendBlocksUntilRoom(t *testing.T) {
	q := NewQueue[int](1)
	ctx := context.Background()
	q.TrySend(1)

	done := make(chan error, 1)
	go func() { done <- q.Send(ctx, 2) }()

	select {
	case <-done:
		t.Fatal("Send returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	if v, _ := q.TryRecv(); v != 1 {
		t.Fatalf("Expected 1, got %d", v)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

// TestQueueSendContext tests that a blocked Send honours its context
func TestQueueSendContext(t *testing.T) {
	q := NewQueue[int](1)
	q.TrySend(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := q.Send(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}
}

// TestQueueClose tests draining and errors after Close
func TestQueueClose(t *testing.T) {
	q := NewQueue[int](4)
	ctx := context.Background()
	q.TrySend(1)
	q.TrySend(2)

	q.Close()
	q.Close()

	if err := q.TrySend(3); !errors.Is(err, ErrClosed) {
		t.Errorf("TrySend after close: %v", err)
	}
	if err := q.Send(ctx, 3); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after close: %v", err)
	}

	for _, want := range []int{1, 2} {
		v, err := q.Recv(ctx)
		if err != nil || v != want {
			t.Fatalf("Expected %d, got %d (%v)", want, v, err)
		}
	}
	if _, err := q.Recv(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after drain, got %v", err)
	}
	if !q.Closed() {
		t.Error("Closed() reports false")
	}
}

// TestQueueCloseWakesSender tests that Close releases a blocked sender
func TestQueueCloseWakesSender(t *testing.T) {
	q := NewQueue[int](1)
	q.TrySend(1)

	done := make(chan error, 1)
	go func() { done <- q.Send(context.Background(), 2) }()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Sender was not released")
	}
}

// TestQueueConcurrentProducers tests that nothing is lost with many producers
func TestQueueConcurrentProducers(t *testing.T) {
	const producers, each = 8, 100
	q := NewQueue[int](producers * each)
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				if err := q.Send(ctx, p*each+i); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for {
		v, ok := q.TryRecv()
		if !ok {
			break
		}
		seen[v] = true
	}
	if len(seen) != producers*each {
		t.Errorf("Expected %d values, got %d", producers*each, len(seen))
	}
}

// TestFromClient tests the mapping of client messages to inbound events
func TestFromClient(t *testing.T) {
	id := uuid.New()

	ev, ok := FromClient(id, protocol.InputClickPressed{X: 1, Y: 2})
	if !ok {
		t.Fatal("Expected an event")
	}
	want := InputClickPressed{ID: id, X: 1, Y: 2}
	if ev != want {
		t.Errorf("Expected %+v, got %+v", want, ev)
	}
	if ev.ConnectionID() != id {
		t.Error("Wrong connection id")
	}

	if _, ok := FromClient(id, nil); ok {
		t.Error("Expected nil message to be rejected")
	}
}

// TestBridgeClose tests that closing the bridge closes both directions
func TestBridgeClose(t *testing.T) {
	b := New(1, 1)
	b.Close()

	if !b.In.Closed() || !b.Out.Closed() {
		t.Error("Expected both queues closed")
	}
	if err := b.Out.TrySend(Outbound{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
