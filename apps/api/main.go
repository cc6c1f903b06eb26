package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/mahaj/community-chat/pkg/config"
	"github.com/mahaj/community-chat/pkg/store"
)

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*") // Allow all for dev, or specific origin
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.ParseAPI()
	if err != nil {
		logger.Error("bad configuration", slog.Any("error", err))
		os.Exit(1)
	}

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
		defer scylla.Close()
		logger.Info("connected to scylla", slog.Any("hosts", cfg.ScyllaHosts))
		st = scylla
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		st = store.NewCached(st, rdb, cfg.CacheTTL, logger)
		logger.Info("store cache enabled", slog.String("redis", cfg.RedisAddr))
	}

	srv := newServer(st, logger)

	logger.Info("api listening", slog.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, CORSMiddleware(srv.routes())); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
