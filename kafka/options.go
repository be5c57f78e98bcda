package kafka

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultTopic = "blocks"

type SASLMechanism string

const (
	PLAIN SASLMechanism = "PLAIN"
	SCRAM SASLMechanism = "SCRAM"
)

type Config struct {
	Brokers        []string
	Topic          string
	GroupID        string
	ClientID       string
	ReadMinBytes   int           // default: 1
	ReadMaxBytes   int           // default: 1e6
	ReadMaxWait    time.Duration // default: 250ms
	WriteTimeout   time.Duration // default: 5s
	AllowAutoTopic bool

	StartFromLatest bool // if true, use kafka.LastOffset for new groups

	SASLMechanism SASLMechanism
	UserName      string
	Password      string

	// Optional constructor hooks
	ReaderFunc ReaderFunc
	WriterFunc WriterFunc
}

type Option func(*Config)

type ReaderFunc func(topic, groupID string) readerIface

type WriterFunc func() writerIface

func WithBrokers(brokers []string) Option {
	return func(cfg *Config) { cfg.Brokers = brokers }
}

func WithTopic(topic string) Option {
	return func(cfg *Config) { cfg.Topic = topic }
}

func WithGroupID(groupID string) Option {
	return func(cfg *Config) { cfg.GroupID = groupID }
}

func WithClientID(clientID string) Option {
	return func(cfg *Config) { cfg.ClientID = clientID }
}

func WithReaderFunc(factory ReaderFunc) Option {
	return func(cfg *Config) { cfg.ReaderFunc = factory }
}

func WithWriterFunc(factory WriterFunc) Option {
	return func(cfg *Config) { cfg.WriterFunc = factory }
}

func WithReadMaxWait(readMaxWait time.Duration) Option {
	return func(cfg *Config) {
		cfg.ReadMaxWait = readMaxWait
	}
}

func WithWriteTimeout(writeTimeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.WriteTimeout = writeTimeout
	}
}

func WithCredentials(userName string, password string) Option {
	return func(cfg *Config) {
		cfg.UserName = userName
		cfg.Password = password
	}
}

func WithSASLMechanism(mechanism SASLMechanism) Option {
	return func(cfg *Config) {
		cfg.SASLMechanism = mechanism
	}
}

func WithStartFromLatest() Option {
	return func(cfg *Config) {
		cfg.StartFromLatest = true
	}
}

func WithAllowAutoTopic() Option {
	return func(cfg *Config) { cfg.AllowAutoTopic = true }
}

// OptionsFromViper reads the block consumer settings under prefix, e.g.
// "blocks.kafka".
func OptionsFromViper(v *viper.Viper, prefix string) []Option {
	var opts []Option
	key := func(k string) string { return prefix + "." + k }

	// accepts a list or a comma separated string
	if brokers := splitList(strings.Join(v.GetStringSlice(key("brokers")), ",")); len(brokers) > 0 {
		opts = append(opts, WithBrokers(brokers))
	}
	if t := v.GetString(key("topic")); t != "" {
		opts = append(opts, WithTopic(t))
	}
	if g := v.GetString(key("group_id")); g != "" {
		opts = append(opts, WithGroupID(g))
	}
	if id := v.GetString(key("client_id")); id != "" {
		opts = append(opts, WithClientID(id))
	}
	if v.GetBool(key("start_from_latest")) {
		opts = append(opts, WithStartFromLatest())
	}
	if d := v.GetDuration(key("read_max_wait")); d > 0 {
		opts = append(opts, WithReadMaxWait(d))
	}
	if d := v.GetDuration(key("write_timeout")); d > 0 {
		opts = append(opts, WithWriteTimeout(d))
	}

	// Auth
	if u := v.GetString(key("username")); u != "" {
		opts = append(opts, WithCredentials(u, v.GetString(key("password"))))
		if m := v.GetString(key("sasl")); m != "" {
			opts = append(opts, WithSASLMechanism(SASLMechanism(strings.ToUpper(m))))
		}
	}

	return opts
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
