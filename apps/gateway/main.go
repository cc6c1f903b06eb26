package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/mahaj/community-chat/pkg/config"
	"github.com/mahaj/community-chat/pkg/firehose"
	"github.com/mahaj/community-chat/pkg/hub"
	"github.com/mahaj/community-chat/pkg/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.ParseGateway()
	if err != nil {
		logger.Error("bad configuration", slog.Any("error", err))
		os.Exit(1)
	}

	st := buildStore(cfg, logger)

	var sink firehose.Sink = firehose.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := firehose.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaSink.Close()
		sink = kafkaSink
		logger.Info("firehose enabled", slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.KafkaTopic))
	}

	h := hub.New(st, sink, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(h, w, r)
	})

	logger.Info("gateway listening", slog.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildStore(cfg config.Gateway, logger *slog.Logger) store.Store {
	var st store.Store
	if cfg.MemoryStore {
		logger.Info("using in-memory store")
		st = store.NewMemory()
	} else {
		scylla, err := store.NewScylla(cfg.ScyllaHosts, cfg.ScyllaKeyspace, cfg.SnowflakeNode)
		if err != nil {
			logger.Error("scylla connection failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("connected to scylla", slog.Any("hosts", cfg.ScyllaHosts))
		st = scylla
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		st = store.NewCached(st, rdb, cfg.CacheTTL, logger)
		logger.Info("store cache enabled", slog.String("redis", cfg.RedisAddr))
	}
	return st
}
