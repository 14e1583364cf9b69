// Command notification-server relays section changes from Redis to stream clients. It lets the
// event streams run apart from the API instances that accept writes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"boardpacks/internal/config"
	"boardpacks/internal/logging"
	"boardpacks/internal/metrics"
	"boardpacks/internal/query"
	"boardpacks/internal/realtime"
	"boardpacks/internal/server"
	"boardpacks/internal/service"
	"boardpacks/internal/storage"
	"boardpacks/internal/storage/providers"
	httptransport "boardpacks/internal/transport/http"

	"github.com/topi314/tint"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(os.Stderr, cfg.Log)

	if cfg.Realtime.RedisAddr == "" {
		slog.Error("realtime.redis_addr is required: the relay has no other source of changes")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := storage.InitDB(cfg.DatabaseUrl, storage.PoolConfig{
		MaxConns: cfg.Storage.MaxConns,
		MinConns: cfg.Storage.MinConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", tint.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	bus, err := realtime.NewRedisBus(cfg.Realtime.RedisAddr, cfg.Realtime.RedisPassword, cfg.Realtime.RedisChannel)
	if err != nil {
		slog.Error("failed to connect to redis", tint.Err(err))
		os.Exit(1)
	}

	m := metrics.New()
	queryCfg := query.DefaultConfig()
	queryCfg.Prod = cfg.IsProd()
	q, err := query.New(queryCfg, m)
	if err != nil {
		slog.Error("failed to create query client", tint.Err(err))
		os.Exit(1)
	}

	hub := realtime.NewHub(m)
	broker := realtime.NewBroker(bus, hub, nil)
	defer broker.Close()
	if err := broker.Start(ctx); err != nil {
		slog.Error("failed to subscribe to section changes", tint.Err(err))
		os.Exit(1)
	}

	all := providers.New(db)
	router := httptransport.StreamRouter(httptransport.Dependencies{
		Packs:     service.NewPackService(all.PackProvider, all.TemplateProvider, q, broker),
		Query:     q,
		Hub:       hub,
		Metrics:   m,
		JWTSecret: cfg.JWT.Secret,
	})

	addr := ":" + cfg.Server.Port
	if err := server.Start(ctx, addr, cfg.CORS.AllowedOrigins, router); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", tint.Err(err))
		os.Exit(1)
	}
}
