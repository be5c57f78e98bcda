package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	fetchIdx  int
	failures  int
	committed int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("leader not available")
	}
	if r.fetchIdx < len(r.msgs) {
		m := r.msgs[r.fetchIdx]
		r.fetchIdx++
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(context.Context, ...kafka.Message) error {
	r.mu.Lock()
	r.committed++
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) Committed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed
}

type fakeWriter struct {
	mu     sync.Mutex
	sent   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func collect(c *BlockConsumer) func() []uint64 {
	var (
		mu  sync.Mutex
		got []uint64
	)
	c.Stream().SubscribeFunc(func(n uint64) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	}, nil)

	return func() []uint64 {
		mu.Lock()
		defer mu.Unlock()
		return append([]uint64(nil), got...)
	}
}

func TestBlockConsumer_PushesHeadsAndCommits(t *testing.T) {
	logger, hook := test.NewNullLogger()
	fr := &fakeReader{msgs: []kafka.Message{
		{Topic: "blocks", Value: []byte(`{"number":10}`)},
		{Topic: "blocks", Value: []byte(`garbage`)},
		{Topic: "blocks", Value: []byte(`11`)},
	}}

	var gotTopic, gotGroup string
	c := NewBlockConsumer(logrus.NewEntry(logger),
		WithTopic("Chain/Blocks"),
		WithGroupID("vault state"),
		WithReaderFunc(func(topic, groupID string) readerIface {
			gotTopic, gotGroup = topic, groupID
			return fr
		}),
	)
	got := collect(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return fr.Committed() == 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "chain-blocks", gotTopic)
	assert.Equal(t, "vault state", gotGroup)
	assert.Equal(t, []uint64{10, 11}, got())

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestBlockConsumer_NoCommitWithoutGroup(t *testing.T) {
	fr := &fakeReader{msgs: []kafka.Message{{Value: []byte(`5`)}}}
	c := NewBlockConsumer(nil, WithReaderFunc(func(string, string) readerIface { return fr }))
	got := collect(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(got()) == 1 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 0, fr.Committed())
}

func TestBlockConsumer_RetriesFetchErrors(t *testing.T) {
	fr := &fakeReader{failures: 1, msgs: []kafka.Message{{Value: []byte(`7`)}}}
	c := NewBlockConsumer(nil, WithReaderFunc(func(string, string) readerIface { return fr }))
	got := collect(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(got()) == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []uint64{7}, got())
}

func TestBlockConsumer_NoBrokers(t *testing.T) {
	c := NewBlockConsumer(nil)

	assert.ErrorIs(t, c.Run(context.Background()), ErrNoBrokers)
	assert.ErrorIs(t, c.PublishHead(context.Background(), 1), ErrNoBrokers)
}

func TestBlockConsumer_PublishHead(t *testing.T) {
	fw := &fakeWriter{}
	c := NewBlockConsumer(nil, WithWriterFunc(func() writerIface { return fw }))

	require.NoError(t, c.PublishHead(context.Background(), 42))
	require.Len(t, fw.sent, 1)
	assert.Equal(t, "blocks", fw.sent[0].Topic)
	assert.JSONEq(t, `{"number":42}`, string(fw.sent[0].Value))

	require.NoError(t, c.Close())
	assert.True(t, fw.closed)
}

func TestOptionsFromViper(t *testing.T) {
	v := viper.New()
	v.Set("blocks.kafka.brokers", "a:9092, b:9092")
	v.Set("blocks.kafka.topic", "heads")
	v.Set("blocks.kafka.group_id", "vaultstate")
	v.Set("blocks.kafka.start_from_latest", true)
	v.Set("blocks.kafka.username", "user")
	v.Set("blocks.kafka.password", "secret")
	v.Set("blocks.kafka.sasl", "scram")

	cfg := Config{}
	for _, o := range OptionsFromViper(v, "blocks.kafka") {
		o(&cfg)
	}

	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
	assert.Equal(t, "heads", cfg.Topic)
	assert.Equal(t, "vaultstate", cfg.GroupID)
	assert.True(t, cfg.StartFromLatest)
	assert.Equal(t, "user", cfg.UserName)
	assert.Equal(t, SCRAM, cfg.SASLMechanism)
}

func TestSanitizeGroupID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "vault state", want: "vault-state"},
		{in: "  ", want: "consumer"},
		{in: "a.b:c/d", want: "a.b:c/d"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeGroupID(tt.in))
		})
	}
}
