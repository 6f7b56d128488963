package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"fairshare/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means an earlier migration failed halfway; the schema has
// to be repaired and its version forced before the ledger can open it.
var ErrDirtySchema = errors.New("schema is dirty")

// MigrationResult is the schema version before and after a migration run.
// Version 0 is an empty database.
type MigrationResult struct {
	From uint
	To   uint
}

// Applied reports whether the run changed the schema.
func (r MigrationResult) Applied() bool {
	return r.From != r.To
}

// RunMigrations brings the ledger schema at dbPath up to date. The migrator
// gets its own connection because closing it closes the database.
func RunMigrations(ctx context.Context, dbPath string) (MigrationResult, error) {
	var res MigrationResult
	err := withMigrator(dbPath, func(m *migrate.Migrate) error {
		from, dirty, err := schemaVersion(m)
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("%w at version %d", ErrDirtySchema, from)
		}
		res.From = from

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate from version %d: %w", from, err)
		}

		res.To, _, err = schemaVersion(m)
		return err
	})
	if err != nil {
		return res, err
	}

	logger := slog.Default().With(log.FieldComponent, log.ComponentStorage)
	if res.Applied() {
		logger.InfoContext(ctx, "Applied ledger schema migrations",
			"from_version", res.From,
			"to_version", res.To,
			"path", dbPath)
	} else {
		logger.DebugContext(ctx, "Ledger schema up to date", "version", res.To)
	}
	return res, nil
}

// SchemaVersion reports the schema version at dbPath without migrating.
func SchemaVersion(dbPath string) (version uint, dirty bool, err error) {
	err = withMigrator(dbPath, func(m *migrate.Migrate) error {
		version, dirty, err = schemaVersion(m)
		return err
	})
	return version, dirty, err
}

func withMigrator(dbPath string, fn func(*migrate.Migrate) error) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	return fn(m)
}

func schemaVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return v, dirty, nil
}
