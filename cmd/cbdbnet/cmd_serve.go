package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cbdb-network/cbdbnet/internal/api"
	"github.com/cbdb-network/cbdbnet/internal/config"
	"github.com/cbdb-network/cbdbnet/internal/db"
	"github.com/cbdb-network/cbdbnet/internal/dbpool"
	"github.com/cbdb-network/cbdbnet/internal/models"
	"github.com/cbdb-network/cbdbnet/internal/service"
	"github.com/cbdb-network/cbdbnet/internal/store"
	"github.com/cbdb-network/cbdbnet/internal/ws"
)

const (
	shutdownTimeout = 15 * time.Second
	warmQueueSize   = 256
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Long:  "Run the server. Settings come from environment variables such as DATABASE_URL, PORT and API_TOKEN.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, newLogger(cfg.LogLevel))
		},
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	database, err := dbpool.Open(ctx, cfg.DatabaseURL.Value(), dbpool.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close() //nolint:errcheck // best-effort close on exit

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, database, log, db.Migrations); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	relations := store.NewRelationStore(store.Base{DB: database, Log: log})
	network := service.NewNetworkService(relations, service.NetworkConfig{
		MaxDepth:     cfg.MaxDepth,
		MaxNodes:     cfg.MaxNodes,
		MaxSeedEdges: cfg.MaxSeedEdges,
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
	}, log)

	var (
		warm        api.Warmer
		cacheMaxAge time.Duration
	)

	if cfg.CacheSize > 0 {
		cacheMaxAge = cfg.CacheTTL

		worker := service.NewWarmWorker(network, log, warmQueueSize)
		go worker.Run(ctx)

		for _, id := range cfg.WarmPersonIDs {
			if !worker.Enqueue(models.ExploreRequest{PersonIDs: []int64{id}}) {
				log.WithField("person_id", id).Warn("warm queue full, skipping")
			}
		}
		warm = worker
	}

	hub := ws.NewHub(log, cfg.WSMaxSessions, cfg.WSMaxPerIP)
	go hub.Run(ctx)

	handler := api.NewRouter(ctx, &api.RouterDeps{
		Log:         log,
		DB:          database,
		Hub:         hub,
		Network:     network,
		People:      network,
		Warm:        warm,
		CORSOrigins: cfg.CORSOrigins,
		CacheMaxAge: cacheMaxAge,
		Version:     config.Version,
		APIToken:    cfg.APIToken.Value(),
		MaxNodes:    cfg.MaxNodes,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Explorations can run long; WriteTimeout stays unset.
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"dialect": database.Dialect(),
			"version": config.Version,
		}).Info("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Shutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
