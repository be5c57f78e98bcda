package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// WorkerFunc is a unit of work. A returned error is logged by the worker.
type WorkerFunc func(context.Context) error

// Job holds a WorkerFunc plus the context it runs under.
type Job struct {
	Ctx     context.Context
	Handler WorkerFunc
}

// Worker is a single goroutine that processes jobs from its pool's queue.
type Worker struct {
	id string

	startedAt time.Time
	lastJobAt atomic.Int64

	running    atomic.Bool
	processing atomic.Bool

	jobs   <-chan Job
	quit   chan struct{}
	logger *logrus.Entry

	wg sync.WaitGroup
}

// NewWorker constructs a Worker that reads from jobs.
func NewWorker(id string, jobs <-chan Job, logger *logrus.Entry) *Worker {
	w := &Worker{
		id:        id,
		startedAt: time.Now(),
		jobs:      jobs,
		quit:      make(chan struct{}),
		logger:    logger.WithField("worker", id),
	}
	w.lastJobAt.Store(w.startedAt.UnixNano())
	return w
}

// ID returns the Worker's identifier.
func (w *Worker) ID() string {
	return w.id
}

// Start begins the worker goroutine.
func (w *Worker) Start() {
	w.running.Store(true)

	w.wg.Add(1)
	go w.loop()
}

// IsIdleFor checks if the worker is not processing and has been idle > timeout.
func (w *Worker) IsIdleFor(timeout time.Duration) bool {
	if w.processing.Load() {
		return false
	}
	return time.Since(time.Unix(0, w.lastJobAt.Load())) > timeout
}

func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// loop processes jobs until the queue is closed or the worker is stopped.
func (w *Worker) loop() {
	defer w.wg.Done()
	defer w.running.Store(false)

	for {
		select {
		case <-w.quit:
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.perform(job)
		}
	}
}

func (w *Worker) perform(job Job) {
	w.processing.Store(true)
	defer func() {
		w.lastJobAt.Store(time.Now().UnixNano())
		w.processing.Store(false)

		if r := recover(); r != nil {
			w.logger.Errorf("job panicked: %v", r)
		}
	}()

	if err := job.Handler(job.Ctx); err != nil {
		w.logger.Error(err)
	}
}

// Stop signals the worker to shut down, then waits for it to exit.
func (w *Worker) Stop() {
	if !w.running.Load() {
		return
	}

	close(w.quit)
	w.wg.Wait()
}
