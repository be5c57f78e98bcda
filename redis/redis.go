package redis

import (
	"context"
	"fmt"

	redis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/golly-go/vaultstate/blocks"
)

const defaultChannel = "blocks"

// Config holds the connection settings of the block subscriber.
type Config struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

// client is the slice of go-redis the subscriber needs.
type client interface {
	Ping(ctx context.Context) error
	Subscribe(ctx context.Context, channel string) (<-chan *redis.Message, func() error, error)
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

type goRedis struct {
	*redis.Client
}

func (c goRedis) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c goRedis) Subscribe(ctx context.Context, channel string) (<-chan *redis.Message, func() error, error) {
	pubsub := c.Client.Subscribe(ctx, channel)

	// wait for the subscription confirmation so failures surface here
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}
	return pubsub.Channel(), pubsub.Close, nil
}

func (c goRedis) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.Client.Publish(ctx, channel, payload).Err()
}

// BlockSubscriber is a blocks.Source fed by a Redis pub/sub channel carrying
// new block heads.
type BlockSubscriber struct {
	*blocks.Feed

	config Config
	client client
	logger *logrus.Entry
}

var _ blocks.Source = (*BlockSubscriber)(nil)

// NewBlockSubscriber creates a subscriber. Nothing connects until Initialize.
func NewBlockSubscriber(config Config, logger *logrus.Entry) *BlockSubscriber {
	if config.Channel == "" {
		config.Channel = defaultChannel
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &BlockSubscriber{
		Feed:   blocks.NewFeed(),
		config: config,
		logger: logger.WithFields(logrus.Fields{"component": "redis", "channel": config.Channel}),
	}
}

func newWithClient(config Config, c client, logger *logrus.Entry) *BlockSubscriber {
	s := NewBlockSubscriber(config, logger)
	s.client = c
	return s
}

// Initialize sets up the Redis client and checks the connection.
func (s *BlockSubscriber) Initialize(ctx context.Context) error {
	if s.client == nil {
		s.logger.Infof("Initializing Redis connection to %s", s.config.Address)

		s.client = goRedis{redis.NewClient(&redis.Options{
			Addr:     s.config.Address,
			Password: s.config.Password,
			DB:       s.config.DB,
		})}
	}

	if err := s.client.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Run listens on the channel and pushes every parsable head onto the feed
// until ctx is done.
func (s *BlockSubscriber) Run(ctx context.Context) error {
	if s.client == nil {
		if err := s.Initialize(ctx); err != nil {
			return err
		}
	}

	messages, closeFn, err := s.client.Subscribe(ctx, s.config.Channel)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.config.Channel, err)
	}
	defer closeFn()

	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			s.handle(message)
		}
	}
}

func (s *BlockSubscriber) handle(message *redis.Message) {
	n, err := blocks.ParseHead([]byte(message.Payload))
	if err != nil {
		s.logger.WithError(err).Warn("dropping block head")
		return
	}

	if s.Push(n) {
		s.logger.WithField("block", n).Debug("new block")
	}
}

// PublishHead announces block n on the channel.
func (s *BlockSubscriber) PublishHead(ctx context.Context, n uint64) error {
	if s.client == nil {
		return fmt.Errorf("Redis client is not initialized")
	}

	payload, err := blocks.EncodeHead(n)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.config.Channel, payload)
}

// Close releases the client.
func (s *BlockSubscriber) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
