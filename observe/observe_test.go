package observe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golly-go/vaultstate/blocks"
	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/memo"
	"github.com/golly-go/vaultstate/stream"
	"github.com/golly-go/vaultstate/workers"
)

type fixture struct {
	deps    Deps
	blocks  *blocks.Manual
	context *stream.Subject[chain.Context]
	hook    *test.Hook
}

func newFixture(exec Executor) *fixture {
	logger, hook := test.NewNullLogger()
	b := blocks.NewManual()
	cc := stream.NewSubject[chain.Context]()
	cc.Next(chain.Context{Network: "testnet"})

	return &fixture{
		deps: Deps{
			Cache:    memo.NewCache(),
			Blocks:   b.Stream(),
			Context:  cc.Stream(),
			Executor: exec,
			Logger:   logrus.NewEntry(logger),
		},
		blocks:  b,
		context: cc,
		hook:    hook,
	}
}

type collector[T any] struct {
	mu     sync.Mutex
	values []T
	errs   []error
}

func (c *collector[T]) OnNext(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *collector[T]) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *collector[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

func (c *collector[T]) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

// echo reads "<network>:<param>@<block>" and counts calls per param.
type echo struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newEcho() *echo {
	return &echo{calls: map[string]int{}, fail: map[string]error{}}
}

func (e *echo) call(_ context.Context, cc chain.Context, block uint64, p string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls[p]++
	if err := e.fail[p]; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s@%d", cc.Network, p, block), nil
}

func (e *echo) count(p string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[p]
}

func (e *echo) setFail(p string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.fail, p)
		return
	}
	e.fail[p] = err
}

func TestObserveReadsEveryBlock(t *testing.T) {
	f := newFixture(Inline)
	e := newEcho()
	source := Observe(f.deps, "echo", e.call, nil)

	c := &collector[string]{}
	source("a").Subscribe(c)
	assert.Empty(t, c.Values(), "no read before the first block")

	f.blocks.Push(1)
	f.blocks.Push(2)
	f.context.Next(chain.Context{Network: "mainnet"})

	assert.Equal(t, []string{"testnet:a@1", "testnet:a@2", "mainnet:a@2"}, c.Values())
}

func TestObserveSharesOneReadPerBlock(t *testing.T) {
	f := newFixture(Inline)
	e := newEcho()
	source := Observe(f.deps, "echo", e.call, nil)
	f.blocks.Push(1)

	first, second := &collector[string]{}, &collector[string]{}
	source("a").Subscribe(first)
	source("a").Subscribe(second)
	f.blocks.Push(2)

	assert.Same(t, source("a"), source("a"))
	assert.Equal(t, 2, e.count("a"))
	assert.Equal(t, []string{"testnet:a@1", "testnet:a@2"}, first.Values())
	assert.Equal(t, []string{"testnet:a@1", "testnet:a@2"}, second.Values())
}

func TestObserveErrorIsolation(t *testing.T) {
	f := newFixture(Inline)
	e := newEcho()
	boom := errors.New("execution reverted")
	e.setFail("bad", boom)
	source := Observe(f.deps, "echo", e.call, nil)

	good, bad := &collector[string]{}, &collector[string]{}
	source("good").Subscribe(good)
	source("bad").Subscribe(bad)
	f.blocks.Push(1)
	f.blocks.Push(2)

	assert.Equal(t, []string{"testnet:good@1", "testnet:good@2"}, good.Values())
	require.Len(t, bad.Errors(), 1)
	assert.ErrorIs(t, bad.Errors()[0], boom)
	assert.Contains(t, bad.Errors()[0].Error(), "echo(bad) at block 1")

	entries := f.hook.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, "echo", entries[0].Data["call"])
	assert.Equal(t, "bad", entries[0].Data["key"])
	assert.Equal(t, uint64(1), entries[0].Data["block"])
}

func TestObserveRetriesAfterError(t *testing.T) {
	f := newFixture(Inline)
	e := newEcho()
	e.setFail("a", errors.New("timeout"))
	source := Observe(f.deps, "echo", e.call, nil)
	f.blocks.Push(7)

	failed := &collector[string]{}
	source("a").Subscribe(failed)
	require.Len(t, failed.Errors(), 1)

	e.setFail("a", nil)

	retried := &collector[string]{}
	source("a").Subscribe(retried)

	assert.Equal(t, []string{"testnet:a@7"}, retried.Values())
	assert.Equal(t, 2, e.count("a"))
}

func TestObserveCancelsSupersededReads(t *testing.T) {
	f := newFixture(Goroutines)

	var cancelled atomic.Int32
	slow := func(ctx context.Context, _ chain.Context, block uint64, p string) (string, error) {
		if block == 1 {
			<-ctx.Done()
			cancelled.Add(1)
			return "stale", nil
		}
		return fmt.Sprintf("%s@%d", p, block), nil
	}
	source := Observe(f.deps, "slow", slow, nil)

	c := &collector[string]{}
	source("a").Subscribe(c)
	f.blocks.Push(1)
	f.blocks.Push(2)

	require.Eventually(t, func() bool { return len(c.Values()) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return cancelled.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a@2"}, c.Values())
}

func TestObserveUnsubscribeCancelsRead(t *testing.T) {
	f := newFixture(Goroutines)

	started := make(chan struct{})
	var cancelled atomic.Bool
	hang := func(ctx context.Context, _ chain.Context, _ uint64, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return "", ctx.Err()
	}
	source := Observe(f.deps, "hang", hang, nil)
	f.blocks.Push(1)

	sub := source("a").Subscribe(&collector[string]{})
	<-started
	sub.Unsubscribe()

	require.Eventually(t, cancelled.Load, time.Second, time.Millisecond)
	assert.Empty(t, f.hook.AllEntries(), "cancelled reads are not failures")
}

func TestObserveOnWorkerPool(t *testing.T) {
	pool := workers.NewPool("reads", workers.WithMaxWorkers(4))
	defer pool.Stop()

	f := newFixture(pool)
	e := newEcho()
	source := Observe(f.deps, "echo", e.call, nil)
	f.blocks.Push(3)

	v, err := stream.Await(context.Background(), source("a"))
	require.NoError(t, err)
	assert.Equal(t, "testnet:a@3", v)
}

func TestObserveKeyFunc(t *testing.T) {
	f := newFixture(Inline)

	type pair struct{ ilk, urn string }
	var calls atomic.Int32
	call := func(_ context.Context, _ chain.Context, _ uint64, p pair) (string, error) {
		calls.Add(1)
		return p.ilk + "/" + p.urn, nil
	}
	source := Observe(f.deps, "pair", call, func(p pair) string { return p.ilk + "-" + p.urn })

	assert.Same(t, source(pair{"ETH-A", "0x1"}), source(pair{"ETH-A", "0x1"}))
	assert.NotSame(t, source(pair{"ETH-A", "0x1"}), source(pair{"ETH-A", "0x2"}))
	assert.Equal(t, int32(0), calls.Load(), "building a source reads nothing")
}

func TestDerived(t *testing.T) {
	f := newFixture(Inline)
	e := newEcho()
	source := Observe(f.deps, "echo", e.call, nil)

	derived := Derived(f.deps, "tagged", source, func(cc chain.Context, p string, v string) (string, error) {
		if cc.Network == "broken" {
			return "", errors.New("unsupported network")
		}
		return "[" + v + "]", nil
	}, nil)

	c := &collector[string]{}
	derived("a").Subscribe(c)
	f.blocks.Push(1)

	assert.Equal(t, []string{"[testnet:a@1]"}, c.Values())
	assert.Same(t, derived("a"), derived("a"))

	f.context.Next(chain.Context{Network: "broken"})
	assert.Len(t, c.Errors(), 1)
}
