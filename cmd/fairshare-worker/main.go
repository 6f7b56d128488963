package main

import (
	"os"

	"golang.org/x/sync/errgroup"

	"fairshare/internal/amqp"
	"fairshare/internal/backend"
	"fairshare/internal/cli"
	"fairshare/internal/config"
	"fairshare/internal/log"
	"fairshare/internal/storage"
	"fairshare/internal/worker"
)

func main() {
	cfg, logger := cli.MustLoadConfig(log.ComponentWorker)
	logger.Info("Starting fairshare-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	// The worker always reads the persisted ledger, whatever backend the
	// HTTP service runs with.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	exporter, err := backend.NewFactory(logger).OpenExporter(ctx, bcfg.Sheets)
	if err != nil {
		return err
	}

	syncWorker := worker.NewSyncWorker(repo, exporter, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// Don't exit - the periodic scan retries
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()
		g.Go(func() error {
			return cli.IgnoreCanceled(client.ConsumeTransactionEvents(gctx, syncWorker.HandleEvent))
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	g.Go(func() error {
		return cli.IgnoreCanceled(syncWorker.Run(gctx, cfg.SyncInterval))
	})

	return g.Wait()
}
