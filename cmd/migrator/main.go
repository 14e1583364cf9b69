package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"boardpacks/internal/config"
	"boardpacks/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/topi314/tint"
)

func main() {
	var migrationPath, databaseURL, configPath string
	var down bool
	flag.StringVar(&databaseURL, "database-url", "", "postgres URL; defaults to database_url from the config file")
	flag.StringVar(&configPath, "config", "", "config path")
	flag.StringVar(&migrationPath, "migration-path", "./migrations", "path to the migrations directory")
	flag.BoolVar(&down, "down", false, "roll back every migration")
	flag.Parse()

	logCfg := config.LogConfig{Level: "info", Format: logging.FormatText}
	if databaseURL == "" && configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			slog.Error("failed to load config", tint.Err(err))
			os.Exit(1)
		}
		databaseURL = cfg.DatabaseUrl
		logCfg = cfg.Log
	}
	logging.Setup(os.Stderr, logCfg)

	if databaseURL == "" {
		slog.Error("database URL is required")
		os.Exit(1)
	}

	m, err := migrate.New("file://"+migrationPath, databaseURL)
	if err != nil {
		slog.Error("failed to open migrations", tint.Err(err))
		os.Exit(1)
	}
	defer m.Close()

	apply := m.Up
	if down {
		apply = m.Down
	}
	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("no migrations to apply")
			return
		}
		slog.Error("migration failed", tint.Err(err))
		os.Exit(1)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}
