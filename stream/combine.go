package stream

import "sync"

// CombineAll emits the latest value of every input as a slice each time any
// input emits, once all of them have emitted at least once. An empty input
// list emits one empty slice. The first error from any input errors the result
// and unsubscribes the rest.
func CombineAll[T any](inputs []*Stream[T]) *Stream[[]T] {
	erased := make([]*Stream[any], len(inputs))
	for i, in := range inputs {
		erased[i] = erase(in)
	}

	return Map(combine(erased), func(vs []any) []T {
		out := make([]T, len(vs))
		for i, v := range vs {
			out[i] = as[T](v)
		}
		return out
	})
}

// Combine2 is CombineAll for two inputs of different types.
func Combine2[A, B, R any](a *Stream[A], b *Stream[B], fn func(A, B) R) *Stream[R] {
	return Map(combine([]*Stream[any]{erase(a), erase(b)}), func(vs []any) R {
		return fn(as[A](vs[0]), as[B](vs[1]))
	})
}

// Combine3 is CombineAll for three inputs of different types.
func Combine3[A, B, C, R any](a *Stream[A], b *Stream[B], c *Stream[C], fn func(A, B, C) R) *Stream[R] {
	return Map(combine([]*Stream[any]{erase(a), erase(b), erase(c)}), func(vs []any) R {
		return fn(as[A](vs[0]), as[B](vs[1]), as[C](vs[2]))
	})
}

// Combine4 is CombineAll for four inputs of different types.
func Combine4[A, B, C, D, R any](a *Stream[A], b *Stream[B], c *Stream[C], d *Stream[D], fn func(A, B, C, D) R) *Stream[R] {
	return Map(combine([]*Stream[any]{erase(a), erase(b), erase(c), erase(d)}), func(vs []any) R {
		return fn(as[A](vs[0]), as[B](vs[1]), as[C](vs[2]), as[D](vs[3]))
	})
}

// Combine5 is CombineAll for five inputs of different types.
func Combine5[A, B, C, D, E, R any](a *Stream[A], b *Stream[B], c *Stream[C], d *Stream[D], e *Stream[E], fn func(A, B, C, D, E) R) *Stream[R] {
	return Map(combine([]*Stream[any]{erase(a), erase(b), erase(c), erase(d), erase(e)}), func(vs []any) R {
		return fn(as[A](vs[0]), as[B](vs[1]), as[C](vs[2]), as[D](vs[3]), as[E](vs[4]))
	})
}

func erase[T any](s *Stream[T]) *Stream[any] {
	return Map(s, func(v T) any { return v })
}

// as recovers a T from an erased value; a nil interface becomes the zero T.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

func combine(inputs []*Stream[any]) *Stream[[]any] {
	return New(func(o Observer[[]any]) func() {
		if len(inputs) == 0 {
			o.OnNext([]any{})
			return nil
		}

		var (
			mu      sync.Mutex
			latest  = make([]any, len(inputs))
			has     = make([]bool, len(inputs))
			missing = len(inputs)
			subs    = make([]*Subscription, 0, len(inputs))
			done    bool
		)

		out := &serial[[]any]{o: o}

		stop := func() []*Subscription {
			mu.Lock()
			defer mu.Unlock()

			done = true
			s := subs
			subs = nil
			return s
		}

		for i, in := range inputs {
			sub := in.Subscribe(Funcs[any]{
				Next: func(v any) {
					mu.Lock()
					if done {
						mu.Unlock()
						return
					}
					if !has[i] {
						has[i] = true
						missing--
					}
					latest[i] = v
					if missing > 0 {
						mu.Unlock()
						return
					}
					// queue under mu so emissions keep the order of updates
					out.add(note[[]any]{value: append([]any(nil), latest...)})
					mu.Unlock()

					out.flush()
				},
				Error: func(err error) {
					mu.Lock()
					if done {
						mu.Unlock()
						return
					}
					mu.Unlock()

					for _, s := range stop() {
						s.Unsubscribe()
					}
					out.OnError(err)
				},
			})

			mu.Lock()
			if done {
				mu.Unlock()
				sub.Unsubscribe()
				break
			}
			subs = append(subs, sub)
			mu.Unlock()
		}

		return func() {
			for _, s := range stop() {
				s.Unsubscribe()
			}
		}
	})
}
