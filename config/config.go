// Package config loads runtime settings from an optional file and
// VAULTSTATE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/redis"
)

const EnvPrefix = "VAULTSTATE"

// Block source kinds.
const (
	SourceTicker = "ticker"
	SourceRedis  = "redis"
	SourceKafka  = "kafka"
	SourceManual = "manual"
)

type LogConfig struct {
	Level  string
	Format string
}

type BlocksConfig struct {
	Source   string
	Interval time.Duration
	Redis    redis.Config
}

type WorkersConfig struct {
	Size   int
	Buffer int
}

type ChainConfig struct {
	Network      string
	Ilks         []string
	CharterIlks  []string
	CropJoinIlks []string
}

type Config struct {
	Log     LogConfig
	Blocks  BlocksConfig
	Workers WorkersConfig
	Chain   ChainConfig

	v *viper.Viper
}

// Viper exposes the underlying settings for packages that read their own
// keys, such as kafka.OptionsFromViper.
func (c *Config) Viper() *viper.Viper { return c.v }

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("blocks.source", SourceTicker)
	v.SetDefault("blocks.interval", 12*time.Second)
	v.SetDefault("blocks.redis.addr", "localhost:6379")
	v.SetDefault("blocks.redis.password", "")
	v.SetDefault("blocks.redis.db", 0)
	v.SetDefault("blocks.redis.channel", "blocks")
	v.SetDefault("blocks.kafka.brokers", []string{})
	v.SetDefault("blocks.kafka.topic", "blocks")
	v.SetDefault("blocks.kafka.group_id", "")
	v.SetDefault("blocks.kafka.start_from_latest", false)

	v.SetDefault("workers.size", 8)
	v.SetDefault("workers.buffer", 256)

	v.SetDefault("chain.network", "mainnet")
	v.SetDefault("chain.ilks", []string{})
	v.SetDefault("chain.charter_ilks", []string{})
	v.SetDefault("chain.cropjoin_ilks", []string{})
}

// Load reads path when given, then overlays the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from already loaded settings.
func FromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Blocks: BlocksConfig{
			Source:   strings.ToLower(v.GetString("blocks.source")),
			Interval: v.GetDuration("blocks.interval"),
			Redis: redis.Config{
				Address:  v.GetString("blocks.redis.addr"),
				Password: v.GetString("blocks.redis.password"),
				DB:       v.GetInt("blocks.redis.db"),
				Channel:  v.GetString("blocks.redis.channel"),
			},
		},
		Workers: WorkersConfig{
			Size:   v.GetInt("workers.size"),
			Buffer: v.GetInt("workers.buffer"),
		},
		Chain: ChainConfig{
			Network:      v.GetString("chain.network"),
			Ilks:         list(v, "chain.ilks"),
			CharterIlks:  list(v, "chain.charter_ilks"),
			CropJoinIlks: list(v, "chain.cropjoin_ilks"),
		},
		v: v,
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Blocks.Source {
	case SourceTicker, SourceRedis, SourceKafka, SourceManual:
	default:
		return fmt.Errorf("unknown block source %q", c.Blocks.Source)
	}

	if c.Blocks.Source == SourceTicker && c.Blocks.Interval <= 0 {
		return fmt.Errorf("blocks.interval must be positive, got %s", c.Blocks.Interval)
	}
	if c.Workers.Size < 1 {
		return fmt.Errorf("workers.size must be at least 1, got %d", c.Workers.Size)
	}
	return nil
}

// Context returns the chain context for the configured network. Ilk lists
// left empty fall back to the demo ones.
func (c ChainConfig) Context() chain.Context {
	cc := chain.DemoContext(c.Network)
	if len(c.Ilks) > 0 {
		cc.Ilks = c.Ilks
	}
	if len(c.CharterIlks) > 0 {
		cc.CharterIlks = c.CharterIlks
	}
	if len(c.CropJoinIlks) > 0 {
		cc.CropJoinIlks = c.CropJoinIlks
	}
	return cc
}

// NewLogger builds the root logger entry.
func NewLogger(c LogConfig) (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)

	switch c.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}

	return logrus.NewEntry(logger), nil
}

// list accepts either a list or a comma separated string.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
