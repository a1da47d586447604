package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/app"
	"github.com/kursadbilgin/workshop-checkin/internal/config"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("workshop-checkin api stopped with error", zap.Error(err))
	}
	logger.Info("workshop-checkin api stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()

	rt, err := app.Build(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close failed", zap.Error(err))
		}
	}()

	server, err := newApp(appDeps{
		logger:       logger,
		metrics:      rt.Metrics,
		sqlDB:        rt.SQLDB,
		redis:        rt.Redis,
		gate:         rt.Gate,
		verifier:     rt.Verifier,
		auditSchema:  rt.AuditLogSchema,
		registration: rt.Registration,
		delivery:     rt.Delivery,
		retry:        rt.Sweeper,
		checkIn:      rt.CheckIn,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("workshop-checkin api started", zap.String("addr", addr))
		return server.Listen(addr)
	})
	if cfg.RetrySweepInterval > 0 {
		g.Go(func() error {
			logger.Info("retry sweeper started", zap.Duration("interval", cfg.RetrySweepInterval))
			return rt.Sweeper.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := rt.Gate.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("drain in-flight dispatches: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
