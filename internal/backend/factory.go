// Package backend opens the storage, event and export dependencies the
// binaries wire into the ledger service and the sync worker.
package backend

import (
	"context"
	"fmt"

	"fairshare/internal/amqp"
	"fairshare/internal/log"
	"fairshare/internal/services"
	"fairshare/internal/sheets"
	gsheet "fairshare/internal/sheets/google"
	mem "fairshare/internal/sheets/memory"
	"fairshare/internal/storage"
)

// Result carries the ledger service dependencies. Store is nil for the
// memory backend and Publisher is nil when AMQP is disabled or unreachable;
// the service accepts both. Closing the service releases them.
type Result struct {
	Store     services.Store
	Publisher services.Publisher
}

// Factory opens backends based on configuration
type Factory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger}
}

// Open creates the store and publisher for the ledger service. A broker that
// cannot be reached is logged and skipped: the worker's pending scan exports
// whatever the missing events would have announced.
func (f *Factory) Open(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}

	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Store = repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend; transactions are lost on restart")
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "AMQP unavailable, transaction events disabled", log.FieldError, err)
		} else {
			res.Publisher = client
		}
	}

	return res, nil
}

// OpenExporter returns the Google Sheets exporter when a spreadsheet is
// configured, otherwise an in-memory one.
func (f *Factory) OpenExporter(ctx context.Context, cfg SheetsConfig) (sheets.Exporter, error) {
	if cfg.SpreadsheetID == "" {
		f.logger.InfoContext(ctx, "Google Sheets disabled - exporting to memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.SpreadsheetID,
		SheetName:       cfg.SheetName,
		CredentialsJSON: cfg.CredentialsJSON,
		CredentialsFile: cfg.CredentialsFile,
		OAuthClientJSON: cfg.OAuthClientJSON,
		OAuthClientFile: cfg.OAuthClientFile,
		OAuthTokenFile:  cfg.OAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
	}
	f.logger.InfoContext(ctx, "Google Sheets exporter initialized", "spreadsheet_id", cfg.SpreadsheetID)
	return client, nil
}
