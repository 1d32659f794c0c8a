package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/o3as/o3as-export-server/cache"
	"github.com/o3as/o3as-export-server/config"
	"github.com/o3as/o3as-export-server/export"
	"github.com/o3as/o3as-export-server/format"
	"github.com/o3as/o3as-export-server/httpapi"
	"github.com/o3as/o3as-export-server/observability"
	"github.com/o3as/o3as-export-server/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var Version = "0.1.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("o3as-export-server %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// stdout carries the MCP stream
	logger := observability.NewLogger(cfg, os.Stderr)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	exportCache := cache.New[export.Result](cfg.Cache.TTL, cfg.Cache.MaxEntries)
	defer exportCache.Close()
	exporter := export.NewService(exportCache, metrics, logger)

	var (
		db         *store.Client
		queryCache *cache.Cache[format.Table]
		ready      httpapi.ReadinessChecker
	)
	if cfg.Database.Enabled() {
		var err error
		db, err = openDatabase(ctx, cfg)
		if err != nil {
			logger.Warn("could not connect to database; query tools are disabled", "error", err)
			db = nil
		} else {
			defer db.Close()
			queryCache = cache.New[format.Table](cfg.Cache.TTL, cfg.Cache.MaxEntries)
			defer queryCache.Close()
			ready = readiness{db}
			logger.Info("database connection established", "driver", db.Driver())
		}
	}

	server := NewMCPServer(os.Stdin, os.Stdout, exporter, db, queryCache, metrics, logger)

	var srv *httpapi.Server
	if cfg.HTTPAddr != "" {
		srv = httpapi.NewServer(cfg.HTTPAddr, exporter, ready, reg, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
				stop()
			}
		}()
	}

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-done:
		if srv != nil && serveErr == nil {
			// stdin closed but downloads are still being served
			<-ctx.Done()
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

func openDatabase(ctx context.Context, cfg *config.Config) (*store.Client, error) {
	return store.NewClient(ctx, &store.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
	})
}

// readiness adapts the store client to the HTTP readiness probe.
type readiness struct {
	db *store.Client
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	return r.db.Ping(ctx)
}
