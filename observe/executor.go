package observe

import (
	"context"

	"github.com/golly-go/vaultstate/workers"
)

// Executor runs asynchronous reads. *workers.Pool satisfies it.
type Executor interface {
	EnQueue(ctx context.Context, fn workers.WorkerFunc) error
}

var (
	// Inline runs each read on the calling goroutine. Deterministic, for tests.
	Inline Executor = inline{}
	// Goroutines runs each read on its own goroutine.
	Goroutines Executor = goroutines{}

	_ Executor = (*workers.Pool)(nil)
)

type inline struct{}

func (inline) EnQueue(ctx context.Context, fn workers.WorkerFunc) error {
	return fn(ctx)
}

type goroutines struct{}

func (goroutines) EnQueue(ctx context.Context, fn workers.WorkerFunc) error {
	go func() { _ = fn(ctx) }()
	return nil
}
