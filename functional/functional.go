// Package functional holds the slice helpers the list views are built from.
package functional

func Map[T any, R any](list []T, fn func(T) R) []R {
	return MapWithIndex(list, func(x T, _ int) R {
		return fn(x)
	})
}

func MapWithIndex[T any, R any](list []T, fn func(T, int) R) []R {
	ret := make([]R, len(list))

	for pos, x := range list {
		ret[pos] = fn(x, pos)
	}

	return ret
}

// Filter never returns nil, so an empty result still encodes as [].
func Filter[T any](list []T, fn func(T) bool) []T {
	ret := []T{}

	for _, x := range list {
		if fn(x) {
			ret = append(ret, x)
		}
	}

	return ret
}

func Find[T any](list []T, fn func(T) bool) (T, bool) {
	for _, x := range list {
		if fn(x) {
			return x, true
		}
	}

	var zero T
	return zero, false
}

// DeDup keeps the first element for every key, in order.
func DeDup[T any, K comparable](list []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(list))
	ret := []T{}

	for _, rec := range list {
		k := key(rec)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		ret = append(ret, rec)
	}

	return ret
}

func Reduce[T any, A any](list []T, init A, fn func(A, T) A) A {
	acc := init
	for _, x := range list {
		acc = fn(acc, x)
	}
	return acc
}

// GroupBy buckets list by key, keeping element order inside each bucket.
func GroupBy[T any, K comparable](list []T, key func(T) K) map[K][]T {
	ret := make(map[K][]T)

	for _, x := range list {
		k := key(x)
		ret[k] = append(ret[k], x)
	}

	return ret
}

// EachSuccess runs the given function on each item in the list, and returns the first error encountered.
func EachSuccess[T any](list []T, fn func(T) error) error {
	for _, x := range list {
		if err := fn(x); err != nil {
			return err
		}
	}
	return nil
}
