package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/golly-go/vaultstate/blocks"
	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/config"
	"github.com/golly-go/vaultstate/kafka"
	"github.com/golly-go/vaultstate/observe"
	"github.com/golly-go/vaultstate/redis"
	"github.com/golly-go/vaultstate/stream"
	"github.com/golly-go/vaultstate/vaults"
	"github.com/golly-go/vaultstate/workers"
)

// runtime is everything a watch command runs: the demo chain, the block
// source driving it, the read pool and the view graph on top.
type runtime struct {
	config *config.Config
	logger *logrus.Entry

	chain   *chain.Memory
	source  blocks.Source
	pool    *workers.Pool
	context *stream.Subject[chain.Context]
	app     *vaults.AppContext
}

func loadConfig(f *flags) (*config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, nil, err
	}

	if f.blocks != "" || f.logLevel != "" {
		v := cfg.Viper()
		if f.blocks != "" {
			v.Set("blocks.source", f.blocks)
		}
		if f.logLevel != "" {
			v.Set("log.level", f.logLevel)
		}
		if cfg, err = config.FromViper(v); err != nil {
			return nil, nil, err
		}
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newRuntime(f *flags) (*runtime, error) {
	cfg, logger, err := loadConfig(f)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		config:  cfg,
		logger:  logger,
		chain:   chain.NewDemo(),
		context: stream.NewSubject[chain.Context](),
	}

	var closers []vaults.Option

	switch cfg.Blocks.Source {
	case config.SourceTicker:
		rt.source = blocks.NewTicker(rt.chain.Head, cfg.Blocks.Interval, logger)
	case config.SourceRedis:
		s := redis.NewBlockSubscriber(cfg.Blocks.Redis, logger)
		rt.source = s
		closers = append(closers, vaults.WithCloser(s))
	case config.SourceKafka:
		c := kafka.NewBlockConsumer(logger, kafka.OptionsFromViper(cfg.Viper(), "blocks.kafka")...)
		rt.source = c
		closers = append(closers, vaults.WithCloser(c))
	case config.SourceManual:
		rt.source = blocks.NewManual()
	default:
		return nil, fmt.Errorf("unknown block source %q", cfg.Blocks.Source)
	}

	rt.pool = workers.NewPool("reads",
		workers.WithMaxWorkers(int32(cfg.Workers.Size)),
		workers.WithBuffer(cfg.Workers.Buffer),
		workers.WithLogger(logger),
	)
	closers = append(closers, vaults.WithCloser(poolCloser{rt.pool}))

	rt.context.Next(cfg.Chain.Context())

	rt.app = vaults.Setup(observe.Deps{
		Blocks:   rt.source.Stream(),
		Context:  rt.context.Stream(),
		Executor: rt.pool,
		Logger:   logger,
	}, rt.chain, closers...)

	logger.WithFields(logrus.Fields{
		"blocks":  cfg.Blocks.Source,
		"network": cfg.Chain.Network,
		"workers": cfg.Workers.Size,
	}).Info("runtime ready")

	return rt, nil
}

// start runs the block source and the pool on g. With the ticker source the
// demo chain also mines a block every interval.
func (rt *runtime) start(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		rt.pool.Run(ctx)
		return nil
	})

	g.Go(func() error {
		if err := rt.source.Run(ctx); err != nil {
			return fmt.Errorf("block source %s: %w", rt.config.Blocks.Source, err)
		}
		return nil
	})

	switch src := rt.source.(type) {
	case *blocks.Ticker:
		g.Go(func() error { return rt.mine(ctx) })
	case *blocks.Manual:
		head, err := rt.chain.Head(ctx)
		if err == nil {
			src.Push(head)
		}
	}
}

func (rt *runtime) mine(ctx context.Context) error {
	tick := time.NewTicker(rt.config.Blocks.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			rt.logger.WithField("block", rt.chain.Mine()).Debug("mined")
		}
	}
}

func (rt *runtime) close() {
	if err := rt.app.Close(); err != nil {
		rt.logger.WithError(err).Warn("closing runtime")
	}
}

type poolCloser struct{ pool *workers.Pool }

var _ io.Closer = poolCloser{}

func (c poolCloser) Close() error {
	c.pool.Stop()
	return nil
}
