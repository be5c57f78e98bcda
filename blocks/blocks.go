package blocks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/golly-go/vaultstate/stream"
)

// Source produces new block heads. Run blocks until ctx is done or the
// source fails.
type Source interface {
	Stream() *stream.Stream[uint64]
	Run(ctx context.Context) error
}

// Feed is a hot, replaying stream of block heads. Heads that are not newer
// than the latest one are dropped, so consumers only ever see increasing
// block numbers.
type Feed struct {
	subject *stream.Subject[uint64]
}

func NewFeed() *Feed {
	return &Feed{subject: stream.NewSubject[uint64]()}
}

// Push publishes n and reports whether it was newer than the latest head.
func (f *Feed) Push(n uint64) bool {
	pushed := false
	f.subject.Update(func(prev uint64, has bool) (uint64, bool) {
		if has && n <= prev {
			return prev, false
		}
		pushed = true
		return n, true
	})
	return pushed
}

// Latest returns the newest head, if any.
func (f *Feed) Latest() (uint64, bool) { return f.subject.Value() }

func (f *Feed) Stream() *stream.Stream[uint64] { return f.subject.Stream() }

// Manual is a Source driven by the caller through Push.
type Manual struct {
	*Feed
}

func NewManual() *Manual {
	return &Manual{Feed: NewFeed()}
}

// Run waits for ctx; Manual has nothing to drive.
func (m *Manual) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// HeadFunc reads the current chain head.
type HeadFunc func(ctx context.Context) (uint64, error)

// Ticker polls a HeadFunc on an interval and publishes new heads.
type Ticker struct {
	*Feed

	head     HeadFunc
	interval time.Duration
	logger   *logrus.Entry
}

func NewTicker(head HeadFunc, interval time.Duration, logger *logrus.Entry) *Ticker {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Ticker{
		Feed:     NewFeed(),
		head:     head,
		interval: interval,
		logger:   logger.WithField("component", "blocks.ticker"),
	}
}

// Run polls immediately and then on every tick. Poll failures are logged and
// retried on the next tick.
func (t *Ticker) Run(ctx context.Context) error {
	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	for {
		t.poll(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

func (t *Ticker) poll(ctx context.Context) {
	n, err := t.head(ctx)
	if err != nil {
		if ctx.Err() == nil {
			t.logger.WithError(err).Warn("reading chain head")
		}
		return
	}

	if t.Push(n) {
		t.logger.WithField("block", n).Debug("new block")
	}
}
