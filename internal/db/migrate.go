// Package db applies the goose migrations that prepare a CBDB database for
// network exploration: the subset schema the service reads (a no-op on a stock
// CBDB file) and the indexes behind batched and recursive edge queries.
//
// Migration files live in internal/db/migrations/ and are embedded as Migrations.
// With AUTO_MIGRATE=true, serve applies pending migrations on startup; the
// migrate subcommand applies them explicitly.
package db

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/dbpool"
)

// MigrationState is the applied/pending state of a single migration.
type MigrationState struct {
	Version int64  `json:"version"`
	File    string `json:"file"`
	Applied bool   `json:"applied"`
}

func gooseDialect(d dbpool.Dialect) (goose.Dialect, error) {
	switch d {
	case dbpool.DialectSQLite:
		return goose.DialectSQLite3, nil
	case dbpool.DialectPostgres:
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("no migration dialect for %q", d)
	}
}

func newProvider(database *dbpool.DB, fsys fs.FS) (*goose.Provider, error) {
	dialect, err := gooseDialect(database.Dialect())
	if err != nil {
		return nil, err
	}

	provider, err := goose.NewProvider(dialect, database.SQL(), fsys)
	if err != nil {
		return nil, fmt.Errorf("creating goose provider: %w", err)
	}

	return provider, nil
}

// RunMigrations applies all pending migrations from the provided filesystem.
// The fsys should contain goose-annotated SQL files (e.g. "00001_cbdb_schema.sql").
func RunMigrations(ctx context.Context, database *dbpool.DB, log *logrus.Logger, fsys fs.FS) error {
	provider, err := newProvider(database, fsys)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
		}

		log.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"file":     r.Source.Path,
			"duration": r.Duration,
		}).Info("migration applied")
	}

	if len(results) == 0 {
		log.Debug("all migrations already applied")
	}

	return nil
}

// Status reports the state of every known migration.
func Status(ctx context.Context, database *dbpool.DB, fsys fs.FS) ([]MigrationState, error) {
	provider, err := newProvider(database, fsys)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading migration status: %w", err)
	}

	states := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		states = append(states, MigrationState{
			Version: s.Source.Version,
			File:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}

	return states, nil
}
