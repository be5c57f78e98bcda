package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
	"github.com/sirupsen/logrus"

	"github.com/golly-go/vaultstate/blocks"
)

var ErrNoBrokers = errors.New("kafka: no brokers configured; set blocks.kafka.brokers")

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// minimal interfaces for testability

type readerIface interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

type writerIface interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// BlockConsumer is a blocks.Source fed by a Kafka topic carrying new block
// heads. With a group ID, offsets are committed after each message.
type BlockConsumer struct {
	*blocks.Feed

	cfg    Config
	logger *logrus.Entry

	mu     sync.Mutex
	writer writerIface
}

var _ blocks.Source = (*BlockConsumer)(nil)

func NewBlockConsumer(logger *logrus.Entry, opts ...Option) *BlockConsumer {
	cfg := Config{
		Topic:          defaultTopic,
		ReadMinBytes:   1,
		ReadMaxBytes:   1 << 20,
		ReadMaxWait:    250 * time.Millisecond,
		WriteTimeout:   5 * time.Second,
		AllowAutoTopic: true,
	}
	for _, o := range opts {
		o(&cfg)
	}
	cfg.Topic = sanitizeTopic(cfg.Topic)

	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &BlockConsumer{
		Feed:   blocks.NewFeed(),
		cfg:    cfg,
		logger: logger.WithFields(logrus.Fields{"component": "kafka", "topic": cfg.Topic}),
	}
}

// Run reads heads until ctx is done. Fetch failures back off exponentially
// with jitter and are retried.
func (c *BlockConsumer) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kafka: consumer panic recovered: %v", r)
		}
		trace(c.logger, "consumer for %s stopped", c.cfg.Topic)
	}()

	reader, err := c.reader()
	if err != nil {
		return err
	}
	defer reader.Close()

	c.logger.Debugf("[KAFKA]: starting consumer for %s", c.cfg.Topic)

	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}

			// exponential backoff with cap
			backoff = min(backoff*2, maxBackoff)
			delay := backoff/2 + time.Duration(rand.Int63n(int64(backoff/2)))

			trace(c.logger, "fetch message error: %v, retrying in %s", err, delay)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}

		backoff = minBackoff
		c.handle(m)

		if c.cfg.GroupID == "" {
			continue
		}

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Warnf("kafka: commit failed on %s: %v", m.Topic, err)
		}
	}
}

// handle pushes one head. Malformed payloads are logged and still committed:
// they can never succeed on redelivery.
func (c *BlockConsumer) handle(m kafka.Message) {
	n, err := blocks.ParseHead(m.Value)
	if err != nil {
		c.logger.WithError(err).WithField("offset", m.Offset).Warn("dropping block head")
		return
	}

	if c.Push(n) {
		c.logger.WithField("block", n).Debug("new block")
	}
}

// PublishHead writes block n to the topic.
func (c *BlockConsumer) PublishHead(ctx context.Context, n uint64) error {
	w, err := c.producer()
	if err != nil {
		return err
	}

	payload, err := blocks.EncodeHead(n)
	if err != nil {
		return err
	}

	return w.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.Topic,
		Key:   []byte(c.cfg.Topic),
		Value: payload,
	})
}

// Close releases the producer, if one was created.
func (c *BlockConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer == nil {
		return nil
	}
	err := c.writer.Close()
	c.writer = nil
	return err
}

func (c *BlockConsumer) producer() (writerIface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer != nil {
		return c.writer, nil
	}

	if c.cfg.WriterFunc != nil {
		c.writer = c.cfg.WriterFunc()
		return c.writer, nil
	}

	if len(c.cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	w, err := c.newWriter()
	if err != nil {
		return nil, err
	}
	c.writer = w
	return w, nil
}

func (c *BlockConsumer) reader() (readerIface, error) {
	if c.cfg.ReaderFunc != nil {
		return c.cfg.ReaderFunc(c.cfg.Topic, c.cfg.GroupID), nil
	}

	if len(c.cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	return c.newReader()
}

func (c *BlockConsumer) mechanism() (sasl.Mechanism, error) {
	if c.cfg.UserName == "" || c.cfg.Password == "" {
		return nil, nil
	}

	switch c.cfg.SASLMechanism {
	case SCRAM:
		return scram.Mechanism(scram.SHA512, c.cfg.UserName, c.cfg.Password)
	default:
		return plain.Mechanism{Username: c.cfg.UserName, Password: c.cfg.Password}, nil
	}
}

func (c *BlockConsumer) newWriter() (writerIface, error) {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.cfg.Brokers...),
		Balancer:               &kafka.Murmur2Balancer{},
		AllowAutoTopicCreation: c.cfg.AllowAutoTopic,
		WriteTimeout:           c.cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
	}

	mech, err := c.mechanism()
	if err != nil {
		return nil, err
	}
	if mech != nil {
		w.Transport = &kafka.Transport{
			DialTimeout: 20 * time.Second,
			IdleTimeout: 45 * time.Second,
			TLS:         &tls.Config{MinVersion: tls.VersionTLS12},
			SASL:        mech,
		}
	}
	return w, nil
}

func (c *BlockConsumer) newReader() (readerIface, error) {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, KeepAlive: 15 * time.Second, ClientID: c.cfg.ClientID}

	mech, err := c.mechanism()
	if err != nil {
		return nil, err
	}
	if mech != nil {
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
		dialer.SASLMechanism = mech
	}

	rc := kafka.ReaderConfig{
		Brokers:        c.cfg.Brokers,
		Topic:          c.cfg.Topic,
		MinBytes:       max(1, c.cfg.ReadMinBytes),
		MaxBytes:       max(1, c.cfg.ReadMaxBytes),
		MaxWait:        c.cfg.ReadMaxWait,
		Dialer:         dialer,
		ReadBackoffMin: 250 * time.Millisecond,
		ReadBackoffMax: 10 * time.Second,
		QueueCapacity:  100,
		MaxAttempts:    5,
		Logger:         readerLogger{entry: c.logger, level: logrus.TraceLevel},
		ErrorLogger:    readerLogger{entry: c.logger, level: logrus.WarnLevel},
	}

	if c.cfg.GroupID != "" {
		rc.GroupID = sanitizeGroupID(c.cfg.GroupID)
		rc.StartOffset = kafka.FirstOffset
		if c.cfg.StartFromLatest {
			rc.StartOffset = kafka.LastOffset
		}
	}

	return kafka.NewReader(rc), nil
}
