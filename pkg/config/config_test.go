package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseGatewayDefaults(t *testing.T) {
	cfg, err := ParseGateway()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if !reflect.DeepEqual(cfg.ScyllaHosts, []string{"localhost:9042"}) {
		t.Fatalf("scylla hosts = %v", cfg.ScyllaHosts)
	}
	if cfg.ScyllaKeyspace != "chat" || cfg.KafkaTopic != "chat-messages" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RedisAddr != "" || len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("optional backends defaulted on: %+v", cfg)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.CacheTTL)
	}
}

func TestParseGatewayOverrides(t *testing.T) {
	t.Setenv("GATEWAY_ADDR", ":9090")
	t.Setenv("SCYLLA_HOSTS", "db1:9042,db2:9042")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("MEMORY_STORE", "true")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := ParseGateway()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Addr != ":9090" || !cfg.MemoryStore {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ScyllaHosts, []string{"db1:9042", "db2:9042"}) {
		t.Fatalf("scylla hosts = %v", cfg.ScyllaHosts)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"broker1:9092", "broker2:9092"}) {
		t.Fatalf("kafka brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("cache ttl = %v", cfg.CacheTTL)
	}
}

func TestParseAPIDefaults(t *testing.T) {
	cfg, err := ParseAPI()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8081" || cfg.ScyllaKeyspace != "chat" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
