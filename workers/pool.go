package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrPoolStopped = errors.New("workers: pool stopped")
	ErrQueueFull   = errors.New("workers: queue full")
)

const (
	defaultMinWorkers  = 1
	defaultMaxWorkers  = 8
	defaultBuffer      = 256
	defaultIdleTimeout = 30 * time.Second
	heartbeatInterval  = 500 * time.Millisecond
)

// Config configures a Pool.
type Config struct {
	MinWorkers  int32
	MaxWorkers  int32
	Buffer      int
	IdleTimeout time.Duration
	Logger      *logrus.Entry
}

// Option mutates a Config.
type Option func(*Config)

func WithMinWorkers(n int32) Option          { return func(c *Config) { c.MinWorkers = n } }
func WithMaxWorkers(n int32) Option          { return func(c *Config) { c.MaxWorkers = n } }
func WithBuffer(n int) Option                { return func(c *Config) { c.Buffer = n } }
func WithIdleTimeout(d time.Duration) Option { return func(c *Config) { c.IdleTimeout = d } }
func WithLogger(l *logrus.Entry) Option      { return func(c *Config) { c.Logger = l } }

// Pool runs jobs on a bounded, elastic set of workers. Workers are spawned on
// demand up to MaxWorkers and reaped back down to MinWorkers once idle.
type Pool struct {
	name   string
	config Config
	logger *logrus.Entry

	queue chan Job
	quit  chan struct{}
	once  sync.Once

	lock    sync.Mutex
	workers []*Worker

	running       atomic.Bool
	activeWorkers atomic.Int32
	spawned       atomic.Int32
	pending       sync.WaitGroup
}

// NewPool builds a pool that accepts jobs immediately. Run drives reaping.
func NewPool(name string, opts ...Option) *Pool {
	cfg := Config{
		MinWorkers:  defaultMinWorkers,
		MaxWorkers:  defaultMaxWorkers,
		Buffer:      defaultBuffer,
		IdleTimeout: defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.MinWorkers > cfg.MaxWorkers {
		cfg.MinWorkers = cfg.MaxWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	p := &Pool{
		name:   name,
		config: cfg,
		logger: cfg.Logger.WithFields(logrus.Fields{"component": "workers", "pool": name}),
		queue:  make(chan Job, cfg.Buffer),
		quit:   make(chan struct{}),
	}
	p.running.Store(true)

	for i := int32(0); i < cfg.MinWorkers; i++ {
		p.spawn()
	}

	return p
}

func (p *Pool) Name() string { return p.name }

// Active returns the number of live workers.
func (p *Pool) Active() int32 { return p.activeWorkers.Load() }

// EnQueue schedules fn. It never blocks: a full queue returns ErrQueueFull.
func (p *Pool) EnQueue(ctx context.Context, fn WorkerFunc) error {
	if !p.running.Load() {
		return ErrPoolStopped
	}

	p.pending.Add(1)
	job := Job{Ctx: ctx, Handler: func(ctx context.Context) error {
		defer p.pending.Done()
		if ctx.Err() != nil {
			return nil
		}
		return fn(ctx)
	}}

	select {
	case p.queue <- job:
	default:
		p.pending.Done()
		return ErrQueueFull
	}

	if len(p.queue) > 0 && p.activeWorkers.Load() < p.config.MaxWorkers {
		p.spawn()
	}
	return nil
}

func (p *Pool) spawn() {
	if p.activeWorkers.Add(1) > p.config.MaxWorkers {
		p.activeWorkers.Add(-1)
		return
	}

	w := NewWorker(fmt.Sprintf("%s-%06d", p.name, p.spawned.Add(1)), p.queue, p.logger)

	p.lock.Lock()
	p.workers = append(p.workers, w)
	p.lock.Unlock()

	w.Start()
}

func (p *Pool) reap() (reaped int32) {
	p.lock.Lock()
	defer p.lock.Unlock()

	kept := p.workers[:0]
	for _, w := range p.workers {
		if p.activeWorkers.Load() > p.config.MinWorkers && w.IsIdleFor(p.config.IdleTimeout) {
			w.Stop()
			p.activeWorkers.Add(-1)
			reaped++
			continue
		}
		kept = append(kept, w)
	}
	p.workers = kept
	return
}

// Run reaps idle workers until ctx is done or Stop is called, then stops
// every worker after the queued jobs finish.
func (p *Pool) Run(ctx context.Context) {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for p.running.Load() {
		select {
		case <-p.quit:
			p.logger.Debug("stopping quit channel")
			p.running.Store(false)
		case <-ctx.Done():
			p.logger.Debug("stopping context done")
			p.running.Store(false)
		case <-heartbeat.C:
			if reaped := p.reap(); reaped > 0 {
				p.logger.Debugf("%s: reaped %d workers", p.name, reaped)
			}
		}
	}

	p.shutdown()
}

// Stop refuses new jobs and, once the queued ones finish, stops the workers.
// Safe to call more than once and without Run.
func (p *Pool) Stop() {
	p.once.Do(func() {
		p.running.Store(false)
		close(p.quit)
	})
	p.shutdown()
}

// Wait blocks until every accepted job has finished.
func (p *Pool) Wait() { p.pending.Wait() }

func (p *Pool) shutdown() {
	p.pending.Wait()

	p.lock.Lock()
	workers := p.workers
	p.workers = nil
	p.lock.Unlock()

	for _, w := range workers {
		w.Stop()
		p.activeWorkers.Add(-1)
	}
}
