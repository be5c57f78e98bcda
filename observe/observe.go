package observe

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/memo"
	"github.com/golly-go/vaultstate/stream"
)

// Deps are the collaborators every keyed source shares.
type Deps struct {
	Cache    *memo.Cache
	Blocks   *stream.Stream[uint64]
	Context  *stream.Stream[chain.Context]
	Executor Executor
	Logger   *logrus.Entry
}

func (d Deps) executor() Executor {
	if d.Executor == nil {
		return Goroutines
	}
	return d.Executor
}

func (d Deps) logger() *logrus.Entry {
	if d.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return d.Logger
}

// Call is one on-chain read.
type Call[P, V any] func(ctx context.Context, cc chain.Context, block uint64, p P) (V, error)

type trigger struct {
	cc    chain.Context
	block uint64
}

// Observe turns call into a memoized keyed source. The stream for p re-reads
// on every new block and every new chain context; a trigger arriving while a
// read is in flight cancels that read, so only the newest result is emitted.
// A failed read errors the stream, which resets the shared entry: the next
// subscriber reconnects and reads again at the latest block.
func Observe[P, V any](d Deps, name string, call Call[P, V], key memo.KeyFunc[P]) func(P) *stream.Stream[V] {
	if key == nil {
		key = memo.Canonical[P]
	}

	exec := d.executor()
	logger := d.logger().WithFields(logrus.Fields{"component": "observe", "call": name})

	return memo.Memoize(d.Cache, name, func(p P) *stream.Stream[V] {
		k := key(p)
		triggers := stream.Combine2(d.Context, d.Blocks, func(cc chain.Context, block uint64) trigger {
			return trigger{cc: cc, block: block}
		})

		return stream.SwitchMap(triggers, func(t trigger) *stream.Stream[V] {
			return read(exec, logger.WithFields(logrus.Fields{"key": k, "block": t.block}), name, k, call, t, p)
		})
	}, key)
}

func read[P, V any](exec Executor, logger *logrus.Entry, name, key string, call Call[P, V], t trigger, p P) *stream.Stream[V] {
	return stream.New(func(o stream.Observer[V]) func() {
		ctx, cancel := context.WithCancel(context.Background())

		err := exec.EnQueue(ctx, func(ctx context.Context) error {
			v, err := call(ctx, t.cc, t.block, p)
			if ctx.Err() != nil {
				// superseded by a newer trigger or abandoned
				return nil
			}

			if err != nil {
				logger.WithError(err).Warn("read failed")
				o.OnError(fmt.Errorf("%s(%s) at block %d: %w", name, key, t.block, err))
				return nil
			}

			o.OnNext(v)
			return nil
		})
		if err != nil {
			logger.WithError(err).Warn("read not scheduled")
			o.OnError(fmt.Errorf("%s(%s) at block %d: %w", name, key, t.block, err))
		}

		return cancel
	})
}

// Derived is a memoized view over a keyed source that also depends on the
// chain context. fn runs whenever the context or the source emits; an error
// from fn errors the view.
func Derived[P, V, R any](d Deps, name string, source func(P) *stream.Stream[V], fn func(cc chain.Context, p P, v V) (R, error), key memo.KeyFunc[P]) func(P) *stream.Stream[R] {
	type input struct {
		cc chain.Context
		v  V
	}

	return memo.Memoize(d.Cache, name, func(p P) *stream.Stream[R] {
		combined := stream.Combine2(d.Context, source(p), func(cc chain.Context, v V) input {
			return input{cc: cc, v: v}
		})
		return stream.TryMap(combined, func(in input) (R, error) {
			return fn(in.cc, p, in.v)
		})
	}, key)
}
