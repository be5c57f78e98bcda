package stream

import "sync"

// Map transforms every value of src with fn.
func Map[A, B any](src *Stream[A], fn func(A) B) *Stream[B] {
	return New(func(o Observer[B]) func() {
		sub := src.Subscribe(Funcs[A]{
			Next:  func(a A) { o.OnNext(fn(a)) },
			Error: o.OnError,
		})
		return sub.Unsubscribe
	})
}

// TryMap is Map for transforms that can fail. A non-nil error from fn errors
// the stream.
func TryMap[A, B any](src *Stream[A], fn func(A) (B, error)) *Stream[B] {
	return New(func(o Observer[B]) func() {
		sub := src.Subscribe(Funcs[A]{
			Next: func(a A) {
				b, err := fn(a)
				if err != nil {
					o.OnError(err)
					return
				}
				o.OnNext(b)
			},
			Error: o.OnError,
		})
		return sub.Unsubscribe
	})
}

// Filter passes through the values of src for which keep returns true.
func Filter[T any](src *Stream[T], keep func(T) bool) *Stream[T] {
	return New(func(o Observer[T]) func() {
		sub := src.Subscribe(Funcs[T]{
			Next: func(v T) {
				if keep(v) {
					o.OnNext(v)
				}
			},
			Error: o.OnError,
		})
		return sub.Unsubscribe
	})
}

// Distinct drops values equal to the one emitted just before them.
func Distinct[T any](src *Stream[T], equal func(a, b T) bool) *Stream[T] {
	return New(func(o Observer[T]) func() {
		var (
			mu   sync.Mutex
			last T
			seen bool
		)

		sub := src.Subscribe(Funcs[T]{
			Next: func(v T) {
				mu.Lock()
				dup := seen && equal(last, v)
				last, seen = v, true
				mu.Unlock()

				if !dup {
					o.OnNext(v)
				}
			},
			Error: o.OnError,
		})
		return sub.Unsubscribe
	})
}

// DistinctComparable is Distinct using ==.
func DistinctComparable[T comparable](src *Stream[T]) *Stream[T] {
	return Distinct(src, func(a, b T) bool { return a == b })
}

// SwitchMap maps every value of src to an inner stream and mirrors only the
// newest one. Subscribing to a new inner stream unsubscribes the previous one,
// and values still arriving from a superseded inner stream are dropped.
func SwitchMap[A, B any](src *Stream[A], fn func(A) *Stream[B]) *Stream[B] {
	return New(func(o Observer[B]) func() {
		var (
			mu    sync.Mutex
			gen   uint64
			inner *Subscription
			done  bool
		)

		out := &serial[B]{o: o}

		stop := func() *Subscription {
			mu.Lock()
			defer mu.Unlock()

			done = true
			in := inner
			inner = nil
			return in
		}

		fail := func(err error) {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			done = true
			in := inner
			inner = nil
			mu.Unlock()

			if in != nil {
				in.Unsubscribe()
			}
			out.OnError(err)
		}

		outer := src.Subscribe(Funcs[A]{
			Next: func(a A) {
				mu.Lock()
				if done {
					mu.Unlock()
					return
				}
				gen++
				mine := gen
				prev := inner
				inner = nil
				mu.Unlock()

				if prev != nil {
					prev.Unsubscribe()
				}

				current := func() bool {
					mu.Lock()
					defer mu.Unlock()
					return !done && gen == mine
				}

				sub := fn(a).Subscribe(Funcs[B]{
					Next: func(b B) {
						if current() {
							out.OnNext(b)
						}
					},
					Error: func(err error) {
						if current() {
							fail(err)
						}
					},
				})

				mu.Lock()
				if done || gen != mine {
					mu.Unlock()
					sub.Unsubscribe()
					return
				}
				inner = sub
				mu.Unlock()
			},
			Error: fail,
		})

		return func() {
			in := stop()
			outer.Unsubscribe()
			if in != nil {
				in.Unsubscribe()
			}
		}
	})
}

// serial forwards notifications to o one at a time in arrival order, even when
// they come from several goroutines. Nothing is forwarded after an error.
type serial[T any] struct {
	mu      sync.Mutex
	o       Observer[T]
	queue   []note[T]
	busy    bool
	stopped bool
}

type note[T any] struct {
	value T
	err   error
}

func (s *serial[T]) OnNext(v T) {
	s.add(note[T]{value: v})
	s.flush()
}

func (s *serial[T]) OnError(err error) {
	s.add(note[T]{err: err})
	s.flush()
}

// add queues n without delivering it. Callers holding their own lock use add
// to fix the order and flush after releasing it.
func (s *serial[T]) add(n note[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if n.err != nil {
		s.stopped = true
	}
	s.queue = append(s.queue, n)
}

func (s *serial[T]) flush() {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return
	}
	s.busy = true

	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.busy = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	for len(s.queue) > 0 {
		n := s.queue[0]
		s.queue[0] = note[T]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if n.err != nil {
			s.o.OnError(n.err)
		} else {
			s.o.OnNext(n.value)
		}

		s.mu.Lock()
	}

	s.busy = false
	s.mu.Unlock()
}
