package mailbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPutBlocksUntilTaken(t *testing.T) {
	s := NewSlot[int]()
	ctx := context.Background()

	var put atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Put(ctx, 1)
		put.Store(true)
	}()

	time.Sleep(20 * time.Millisecond)
	if put.Load() {
		t.Fatalf("Put returned before the item was taken")
	}
	v, err := s.Take(ctx)
	if err != nil || v != 1 {
		t.Fatalf("Take = %d, %v", v, err)
	}
	<-done
}

func TestNoItemOverwrittenUnderConcurrency(t *testing.T) {
	const n = 2000
	netSlot := NewSlot[int]()
	termSlot := NewSlot[int]()
	ctx := context.Background()

	// completed[i] counts Puts that have returned for producer i.
	var completed [2]atomic.Int64
	var wg sync.WaitGroup
	produce := func(idx int, s *Slot[int]) {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := s.Put(ctx, i); err != nil {
				t.Errorf("Put failed: %v", err)
				return
			}
			completed[idx].Store(int64(i + 1))
		}
	}
	wg.Add(2)
	go produce(0, netSlot)
	go produce(1, termSlot)

	var next [2]int
	for got := 0; got < 2*n; got++ {
		p, err := First(ctx, netSlot, termSlot)
		if err != nil {
			t.Fatalf("First failed: %v", err)
		}
		idx, v := 1, p.B
		if p.Primary {
			idx, v = 0, p.A
		}
		if v != next[idx] {
			t.Fatalf("producer %d: got item %d, want %d", idx, v, next[idx])
		}
		// The producer may have returned from this Put, never from a later one.
		if c := completed[idx].Load(); c > int64(v+1) {
			t.Fatalf("producer %d completed %d puts while item %d was unconsumed", idx, c, v)
		}
		next[idx]++
	}
	wg.Wait()
}

func TestFirstPrefersPrimary(t *testing.T) {
	primary := NewSlot[string]()
	secondary := NewSlot[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() { _ = secondary.Put(ctx, "terminal") }()
	go func() { _ = primary.Put(ctx, "network") }()

	// Let both producers block in Put.
	time.Sleep(50 * time.Millisecond)

	p, err := First(ctx, primary, secondary)
	if err != nil {
		t.Fatalf("First failed: %v", err)
	}
	if !p.Primary || p.A != "network" {
		t.Fatalf("expected the network item first, got %+v", p)
	}
	p, err = First(ctx, primary, secondary)
	if err != nil || p.Primary || p.B != "terminal" {
		t.Fatalf("expected the terminal item second, got %+v err=%v", p, err)
	}
}

func TestCancelReturnsCause(t *testing.T) {
	s := NewSlot[int]()
	ctx, cancel := context.WithCancelCause(context.Background())
	cause := errors.New("peer disconnected")
	cancel(cause)

	if _, err := s.Take(ctx); !errors.Is(err, cause) {
		t.Fatalf("Take: expected cause, got %v", err)
	}
	if err := s.Put(ctx, 1); !errors.Is(err, cause) {
		t.Fatalf("Put: expected cause, got %v", err)
	}
	if _, err := First(ctx, s, NewSlot[int]()); !errors.Is(err, cause) {
		t.Fatalf("First: expected cause, got %v", err)
	}
}
