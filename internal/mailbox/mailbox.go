// Package mailbox hands work from producer goroutines to the session loop.
//
// A Slot is a single-item rendezvous: Put blocks until the consumer has taken
// the item, so a producer never has more than one outstanding item and a slow
// consumer stalls only the producer it is not serving.
package mailbox

import "context"

// Slot carries items of type T from one producer to one consumer.
type Slot[T any] struct {
	ch chan T
}

// NewSlot returns an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{ch: make(chan T)}
}

// Put blocks until the consumer takes v or ctx is done.
func (s *Slot[T]) Put(ctx context.Context, v T) error {
	select {
	case s.ch <- v:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Take blocks until a producer offers an item or ctx is done.
func (s *Slot[T]) Take(ctx context.Context) (T, error) {
	select {
	case v := <-s.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx)
	}
}

// Pick is the item First returned, tagged with the slot it came from.
type Pick[A, B any] struct {
	Primary bool // The item came from the primary slot; A is valid.
	A       A
	B       B
}

// First takes the next item from either slot. When both producers are
// waiting, the primary slot wins.
func First[A, B any](ctx context.Context, primary *Slot[A], secondary *Slot[B]) (Pick[A, B], error) {
	select {
	case v := <-primary.ch:
		return Pick[A, B]{Primary: true, A: v}, nil
	default:
	}
	select {
	case v := <-primary.ch:
		return Pick[A, B]{Primary: true, A: v}, nil
	case v := <-secondary.ch:
		return Pick[A, B]{B: v}, nil
	case <-ctx.Done():
		return Pick[A, B]{}, context.Cause(ctx)
	}
}
