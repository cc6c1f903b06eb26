// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Gateway configures the realtime websocket service.
type Gateway struct {
	Addr           string        `env:"GATEWAY_ADDR" envDefault:":8080"`
	MemoryStore    bool          `env:"MEMORY_STORE" envDefault:"false"`
	ScyllaHosts    []string      `env:"SCYLLA_HOSTS" envDefault:"localhost:9042"`
	ScyllaKeyspace string        `env:"SCYLLA_KEYSPACE" envDefault:"chat"`
	SnowflakeNode  int64         `env:"SNOWFLAKE_NODE" envDefault:"1"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS"`
	KafkaTopic     string        `env:"KAFKA_TOPIC" envDefault:"chat-messages"`
}

// API configures the REST service consumed by the UI.
type API struct {
	Addr           string        `env:"API_ADDR" envDefault:":8081"`
	MemoryStore    bool          `env:"MEMORY_STORE" envDefault:"false"`
	ScyllaHosts    []string      `env:"SCYLLA_HOSTS" envDefault:"localhost:9042"`
	ScyllaKeyspace string        `env:"SCYLLA_KEYSPACE" envDefault:"chat"`
	SnowflakeNode  int64         `env:"SNOWFLAKE_NODE" envDefault:"2"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// ParseGateway reads gateway configuration from the environment.
func ParseGateway() (Gateway, error) {
	var cfg Gateway
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseAPI reads api configuration from the environment.
func ParseAPI() (API, error) {
	var cfg API
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
