package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"fairshare/internal/backend"
	"fairshare/internal/cache"
	"fairshare/internal/cli"
	"fairshare/internal/config"
	apphttp "fairshare/internal/http"
	"fairshare/internal/ledger"
	"fairshare/internal/log"
	"fairshare/internal/services"
)

func main() {
	cfg, logger := cli.MustLoadConfig(log.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	deps, err := backend.NewFactory(logger).Open(ctx, bcfg)
	if err != nil {
		return err
	}

	l := ledger.New(
		ledger.WithStrictBalance(cfg.StrictBalance),
		ledger.WithLogger(logger),
	)
	svc := services.NewLedgerService(l, deps.Store, deps.Publisher, services.CacheConfig{
		Size: cfg.CacheSize,
		TTL:  cfg.CacheTTL,
	}, logger)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close ledger service", log.FieldError, err)
		}
	}()

	if err := svc.Hydrate(ctx); err != nil {
		return err
	}

	caches := cache.NewManager()
	for _, c := range svc.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(cfg.CacheTTL)
	defer caches.Stop()

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ViewpointUser:      cfg.ViewpointUser,
	}, svc, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fairshare server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"strict_balance", strconv.FormatBool(cfg.StrictBalance))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
