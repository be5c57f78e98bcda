package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrNoValue is returned by Await when the context ends before the stream emits.
var ErrNoValue = errors.New("stream: no value before context was done")

// Observer receives notifications from a Stream.
type Observer[T any] interface {
	OnNext(T)
	OnError(error)
}

// Funcs adapts plain functions to an Observer. Nil fields are ignored.
type Funcs[T any] struct {
	Next  func(T)
	Error func(error)
}

func (f Funcs[T]) OnNext(v T) {
	if f.Next != nil {
		f.Next(v)
	}
}

func (f Funcs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Stream is a lazily started source of values. Nothing runs until Subscribe is
// called, and every Subscribe runs the producer independently unless the
// stream was wrapped by Share.
type Stream[T any] struct {
	subscribe func(Observer[T]) func()
}

// New creates a Stream from a producer. The producer is called once per
// subscriber and returns the function that stops it.
func New[T any](producer func(Observer[T]) (cancel func())) *Stream[T] {
	return &Stream[T]{subscribe: producer}
}

// Subscribe starts the stream for o. After an error o receives nothing more
// and the subscription is released.
func (s *Stream[T]) Subscribe(o Observer[T]) *Subscription {
	sub := newSubscription()
	cancel := s.subscribe(&guard[T]{o: o, sub: sub})
	sub.attach(cancel)
	return sub
}

// SubscribeFunc is Subscribe for callers that only need plain callbacks.
func (s *Stream[T]) SubscribeFunc(next func(T), fail func(error)) *Subscription {
	return s.Subscribe(Funcs[T]{Next: next, Error: fail})
}

// Subscription is one subscriber's handle on a stream.
type Subscription struct {
	id     uuid.UUID
	closed atomic.Bool

	mu     sync.Mutex
	cancel func()
}

func newSubscription() *Subscription {
	return &Subscription{id: uuid.New()}
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() uuid.UUID { return s.id }

// Closed reports whether the subscription was stopped or terminated by an error.
func (s *Subscription) Closed() bool { return s.closed.Load() }

// Unsubscribe stops delivery and releases upstream work. Safe to call more
// than once and from inside a callback.
func (s *Subscription) Unsubscribe() {
	if s.closed.Swap(true) {
		return
	}
	s.release()
}

func (s *Subscription) release() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// attach stores the producer's cancel func, running it at once if the
// subscription already ended while the producer was starting.
func (s *Subscription) attach(cancel func()) {
	if cancel == nil {
		return
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = cancel
	s.mu.Unlock()
}

// guard drops notifications for a closed subscription and ends it on error.
type guard[T any] struct {
	o   Observer[T]
	sub *Subscription
}

func (g *guard[T]) OnNext(v T) {
	if g.sub.closed.Load() {
		return
	}
	g.o.OnNext(v)
}

func (g *guard[T]) OnError(err error) {
	if g.sub.closed.Swap(true) {
		return
	}
	g.o.OnError(err)
	g.sub.release()
}

// Of emits v to every subscriber as soon as it subscribes.
func Of[T any](v T) *Stream[T] {
	return New(func(o Observer[T]) func() {
		o.OnNext(v)
		return nil
	})
}

// Fail errors every subscriber with err as soon as it subscribes.
func Fail[T any](err error) *Stream[T] {
	return New(func(o Observer[T]) func() {
		o.OnError(err)
		return nil
	})
}

// Never emits nothing.
func Never[T any]() *Stream[T] {
	return New(func(Observer[T]) func() { return nil })
}

// Await blocks until s emits its first value or error, or ctx is done.
func Await[T any](ctx context.Context, s *Stream[T]) (T, error) {
	type result struct {
		v   T
		err error
	}

	ch := make(chan result, 1)
	sub := s.Subscribe(Funcs[T]{
		Next: func(v T) {
			select {
			case ch <- result{v: v}:
			default:
			}
		},
		Error: func(err error) {
			select {
			case ch <- result{err: err}:
			default:
			}
		},
	})
	defer sub.Unsubscribe()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Join(ErrNoValue, ctx.Err())
	}
}
