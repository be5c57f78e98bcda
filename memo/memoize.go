package memo

import "github.com/golly-go/vaultstate/stream"

// Memoize wraps build so that every argument with the same canonical key gets
// the identical stream. The first call for a key builds the pipeline and wraps
// it with stream.Share; later calls return the stored pointer without calling
// build. A nil key uses Canonical.
//
// name namespaces the keys of this factory and must be unique per cache.
func Memoize[A, T any](c *Cache, name string, build func(A) *stream.Stream[T], key KeyFunc[A]) func(A) *stream.Stream[T] {
	if key == nil {
		key = Canonical[A]
	}

	c.register(name)

	return func(a A) *stream.Stream[T] {
		v := c.load(name+"/"+key(a), func() any {
			return stream.Share(build(a))
		})
		return v.(*stream.Stream[T])
	}
}

// Singleton memoizes a parameterless view under name.
func Singleton[T any](c *Cache, name string, build func() *stream.Stream[T]) func() *stream.Stream[T] {
	f := Memoize(c, name, func(struct{}) *stream.Stream[T] { return build() }, func(struct{}) string { return "" })
	return func() *stream.Stream[T] { return f(struct{}{}) }
}
