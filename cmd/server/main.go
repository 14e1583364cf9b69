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
	"boardpacks/internal/scheduler"
	"boardpacks/internal/server"
	"boardpacks/internal/service"
	"boardpacks/internal/storage"
	"boardpacks/internal/storage/memstore"
	"boardpacks/internal/storage/providers"
	httptransport "boardpacks/internal/transport/http"

	"github.com/google/uuid"
	"github.com/topi314/tint"
)

type backends struct {
	templates service.TemplateProvider
	packs     service.PackProvider
	documents service.DocumentProvider
	orphans   scheduler.OrphanProvider
	close     func()
}

func openStorage(cfg *config.Config) (backends, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		slog.Warn("using in-memory storage; data is lost on restart")
		store := memstore.New()
		return backends{templates: store, packs: store, documents: store, orphans: store, close: func() {}}, nil
	}

	db, err := storage.InitDB(cfg.DatabaseUrl, storage.PoolConfig{
		MaxConns: cfg.Storage.MaxConns,
		MinConns: cfg.Storage.MinConns,
	})
	if err != nil {
		return backends{}, err
	}
	all := providers.New(db)
	return backends{
		templates: all.TemplateProvider,
		packs:     all.PackProvider,
		documents: all.DocumentProvider,
		orphans:   all.MaintenanceProvider,
		close:     db.Close,
	}, nil
}

func openBus(cfg *config.Config) realtime.Bus {
	if cfg.Realtime.RedisAddr == "" {
		return realtime.NewLocalBus()
	}
	bus, err := realtime.NewRedisBus(cfg.Realtime.RedisAddr, cfg.Realtime.RedisPassword, cfg.Realtime.RedisChannel)
	if err != nil {
		slog.Warn("redis unavailable, section changes stay on this instance", tint.Err(err))
		return realtime.NewLocalBus()
	}
	return bus
}

func main() {
	cfg := config.MustLoad()
	logging.Setup(os.Stderr, cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStorage(cfg)
	if err != nil {
		slog.Error("failed to open storage", tint.Err(err))
		os.Exit(1)
	}
	defer store.close()

	m := metrics.New()
	queryCfg := query.DefaultConfig()
	queryCfg.CacheSize = cfg.Cache.Size
	queryCfg.CacheTTL = cfg.Cache.TTL
	queryCfg.Prod = cfg.IsProd()
	q, err := query.New(queryCfg, m)
	if err != nil {
		slog.Error("failed to create query client", tint.Err(err))
		os.Exit(1)
	}

	hub := realtime.NewHub(m)
	broker := realtime.NewBroker(openBus(cfg), hub, func(packID uuid.UUID) {
		q.Invalidate(query.PackSections(packID))
	})
	defer broker.Close()
	if err := broker.Start(ctx); err != nil {
		slog.Error("failed to start change forwarder", tint.Err(err))
		os.Exit(1)
	}

	scheduler.NewSweeper(store.orphans, q, m, cfg.Sweeper.Interval, cfg.Sweeper.GracePeriod).Start(ctx)

	router := httptransport.Router(httptransport.Dependencies{
		Templates:   service.NewTemplateService(store.templates, q),
		Packs:       service.NewPackService(store.packs, store.templates, q, broker),
		Submissions: service.NewSubmissionService(store.documents, q, broker, m),
		Query:       q,
		Hub:         hub,
		Metrics:     m,
		JWTSecret:   cfg.JWT.Secret,
	})

	addr := ":" + cfg.Server.Port
	if err := server.Start(ctx, addr, cfg.CORS.AllowedOrigins, router); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", tint.Err(err))
		os.Exit(1)
	}
}
