package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/inference-gateway/internal/backend"
	"github.com/nulzo/inference-gateway/internal/config"
	"github.com/nulzo/inference-gateway/internal/dispatch"
	"github.com/nulzo/inference-gateway/internal/gateway"
	"github.com/nulzo/inference-gateway/internal/platform/logger"
	"github.com/nulzo/inference-gateway/internal/platform/otel"
	"github.com/nulzo/inference-gateway/internal/queue"
	"github.com/nulzo/inference-gateway/internal/registry"
	"github.com/nulzo/inference-gateway/internal/server"
	"github.com/nulzo/inference-gateway/internal/store/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceName = "inference-gateway"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("gateway exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traceFile, err := os.Create("traces.json")
	if err != nil {
		return err
	}
	defer func() { _ = traceFile.Close() }()

	shutdownTracer, err := otel.InitTracer(serviceName, log, traceFile)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	store, err := sqlite.Open(cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	reg := registry.New()

	// Restore any snapshot first so configured models win on conflict.
	var snapshotter *registry.Snapshotter
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		snapshotter = registry.NewSnapshotter(rdb)
		if err := snapshotter.Load(ctx, reg); err != nil {
			log.Warn("registry snapshot restore failed", zap.Error(err))
		}
	}

	for _, m := range cfg.Models {
		if err := reg.Register(m); err != nil {
			log.Error("skipping invalid model",
				zap.String("name", m.Name),
				zap.String("version", m.Version),
				zap.Error(err),
			)
			continue
		}
		log.Info("registered model",
			zap.String("name", m.Name),
			zap.String("version", m.Version),
			zap.String("type", string(m.ModelType)),
		)
	}

	if snapshotter != nil {
		if err := snapshotter.Save(ctx, reg); err != nil {
			log.Warn("registry snapshot save failed", zap.Error(err))
		}
	}

	checker := registry.NewHealthChecker(reg, cfg.Health.Interval, cfg.Health.ProbeTimeout, log)
	go checker.Run(ctx)

	q := queue.New(cfg.Queue.Capacity)

	invoker := backend.NewHTTPInvoker(&http.Client{})
	dispatcher := dispatch.New(q, store, reg, invoker, cfg.Queue.Workers, cfg.Queue.JobTimeout, log)
	dispatcher.Start(ctx)

	service := gateway.NewService(log, store, reg, q, dispatcher)

	srv := server.New(cfg, log, service).HTTPServer()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("gateway listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	// Stop accepting requests, then stop accepting work, then drain workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", zap.Error(err))
	}

	q.Close()
	dispatcher.Stop()

	log.Info("shutdown complete")
	return nil
}
