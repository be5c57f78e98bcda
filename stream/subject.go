package stream

import (
	"sync"
	"sync/atomic"
)

// Subject is a hot multicast stream that remembers its latest value and
// replays it to every new subscriber. Delivery is serialized: emitters queue
// under the lock and a single goroutine drains the queue outside it, so
// observers see notifications one at a time in emission order. An observer may
// emit on the same subject from its callback; the emission is queued.
type Subject[T any] struct {
	mu        sync.Mutex
	observers []*target[T]
	value     T
	hasValue  bool

	queue    []delivery[T]
	draining bool
}

type target[T any] struct {
	o    Observer[T]
	done atomic.Bool
}

type delivery[T any] struct {
	targets []*target[T]
	value   T
	err     error
}

// NewSubject returns an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Next stores v as the latest value and broadcasts it to the current observers.
func (s *Subject[T]) Next(v T) {
	s.mu.Lock()
	s.value, s.hasValue = v, true
	s.enqueueLocked(delivery[T]{targets: s.snapshotLocked(), value: v})
	s.mu.Unlock()

	s.drain()
}

// Update folds the latest value through fn atomically. fn receives the
// latest value and whether one exists; when it returns ok the result is
// stored and broadcast.
func (s *Subject[T]) Update(fn func(prev T, has bool) (next T, ok bool)) {
	s.mu.Lock()
	next, ok := fn(s.value, s.hasValue)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.value, s.hasValue = next, true
	s.enqueueLocked(delivery[T]{targets: s.snapshotLocked(), value: next})
	s.mu.Unlock()

	s.drain()
}

// Error delivers err to the current observers, detaches them and forgets the
// latest value. The subject can be subscribed to again afterwards.
func (s *Subject[T]) Error(err error) {
	s.mu.Lock()
	targets := s.observers
	s.observers = nil

	var zero T
	s.value, s.hasValue = zero, false
	s.enqueueLocked(delivery[T]{targets: targets, err: err})
	s.mu.Unlock()

	s.drain()
}

// Value returns the latest value, if any.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value, s.hasValue
}

// Clear forgets the latest value without notifying anyone.
func (s *Subject[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.value, s.hasValue = zero, false
}

// Observers reports the number of attached observers.
func (s *Subject[T]) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.observers)
}

// Stream exposes the subject as a Stream.
func (s *Subject[T]) Stream() *Stream[T] {
	return New(s.subscribe)
}

func (s *Subject[T]) subscribe(o Observer[T]) func() {
	t := &target[T]{o: o}

	s.mu.Lock()
	s.observers = append(s.observers, t)
	if s.hasValue {
		s.enqueueLocked(delivery[T]{targets: []*target[T]{t}, value: s.value})
	}
	s.mu.Unlock()

	s.drain()

	return func() {
		t.done.Store(true)
		s.remove(t)
	}
}

func (s *Subject[T]) remove(t *target[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.observers {
		if o == t {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Subject[T]) snapshotLocked() []*target[T] {
	if len(s.observers) == 0 {
		return nil
	}
	return append([]*target[T](nil), s.observers...)
}

func (s *Subject[T]) enqueueLocked(d delivery[T]) {
	if len(d.targets) == 0 {
		return
	}
	s.queue = append(s.queue, d)
}

func (s *Subject[T]) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	for len(s.queue) > 0 {
		d := s.queue[0]
		s.queue[0] = delivery[T]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		for _, t := range d.targets {
			if t.done.Load() {
				continue
			}
			if d.err != nil {
				t.done.Store(true)
				t.o.OnError(d.err)
				continue
			}
			t.o.OnNext(d.value)
		}

		s.mu.Lock()
	}

	s.draining = false
	s.mu.Unlock()
}
