// Package config loads the application's single TOML configuration file
// and applies environment-variable overrides, following the teacher
// framework's feeders pattern (BurntSushi/toml plus an env pass) without
// pulling in its generic multi-tenant config machinery.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full application configuration, covering every key
// enumerated in spec §6.
type Config struct {
	HTTP HTTPConfig `toml:"http"`
	DB   DBConfig   `toml:"db"`
	NATS NATSConfig `toml:"nats"`
	Feeds FeedsConfig `toml:"feeds"`
}

// HTTPConfig configures the read-RPC listener.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// DBConfig configures the Postgres connection.
type DBConfig struct {
	Endpoint string `toml:"endpoint"`
}

// NATSConfig configures the JetStream connection shared by both
// consumers.
type NATSConfig struct {
	Endpoint string `toml:"endpoint"`
	Stream   string `toml:"stream"`
}

// FeedsConfig is the feed-fanout core's own configuration surface.
type FeedsConfig struct {
	Limits     LimitsConfig     `toml:"limits"`
	Processing ProcessingConfig `toml:"processing"`
	Messaging  MessagingConfig  `toml:"messaging"`
}

// LimitsConfig bounds read-path page sizes.
type LimitsConfig struct {
	User int `toml:"user"`
}

// ProcessingConfig holds the processor loop's settings. BatchSize is
// decoded but not read by any component: each processor tick claims
// queue.BatchSize tasks regardless of this value.
type ProcessingConfig struct {
	BatchSize int `toml:"batch_size"`
}

// MessagingConfig declares the two durable bus subscriptions.
type MessagingConfig struct {
	Message   ConsumerConfig `toml:"message"`
	TopicUser ConsumerConfig `toml:"topic_user"`
}

// ConsumerConfig names a durable JetStream consumer and the subject
// filters it pulls from.
type ConsumerConfig struct {
	Subjects []string `toml:"subjects"`
	Consumer string   `toml:"consumer"`
}

// Defaults returns a Config with the spec's documented defaults
// (VisibilityTimeout and the membership page size live in internal/feeds, not here,
// since they aren't operator-tunable per spec §5/§9).
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		DB:   DBConfig{Endpoint: "postgres://localhost:5432/bzd_flux"},
		NATS: NATSConfig{Endpoint: "nats://localhost:4222", Stream: "bzd-flux"},
		Feeds: FeedsConfig{
			Limits:     LimitsConfig{User: 50},
			Processing: ProcessingConfig{BatchSize: 20},
			Messaging: MessagingConfig{
				Message: ConsumerConfig{
					Subjects: []string{"messaging.message.created"},
					Consumer: "messaging.message.consumer",
				},
				TopicUser: ConsumerConfig{
					Subjects: []string{"messaging.topic_user.*"},
					Consumer: "messaging.topic_user.consumer",
				},
			},
		},
	}
}

// Load reads path (if non-empty and present) over the defaults, then
// applies environment-variable overrides for the handful of secrets and
// endpoints operators most commonly need to override without touching a
// file (BZD_FLUX_DB_ENDPOINT, BZD_FLUX_NATS_ENDPOINT, BZD_FLUX_HTTP_ADDR).
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BZD_FLUX_DB_ENDPOINT"); v != "" {
		cfg.DB.Endpoint = v
	}
	if v := os.Getenv("BZD_FLUX_NATS_ENDPOINT"); v != "" {
		cfg.NATS.Endpoint = v
	}
	if v := os.Getenv("BZD_FLUX_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
}
