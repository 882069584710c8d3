package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cbdb-network/cbdbnet/internal/db"
	"github.com/cbdb-network/cbdbnet/internal/dbpool"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database", os.Getenv("DATABASE_URL"), "Database URL (env: DATABASE_URL)")

	open := func(ctx context.Context) (*dbpool.DB, error) {
		if databaseURL == "" {
			return nil, errors.New("no database: set --database or DATABASE_URL")
		}
		return dbpool.Open(ctx, databaseURL, dbpool.Options{MaxConns: 1})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := open(ctx)
			if err != nil {
				return err
			}
			defer database.Close() //nolint:errcheck // best-effort close on exit

			if err := db.RunMigrations(ctx, database, newLogger("info"), db.Migrations); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", db.SchemaVersion())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := open(ctx)
			if err != nil {
				return err
			}
			defer database.Close() //nolint:errcheck // best-effort close on exit

			states, err := db.Status(ctx, database, db.Migrations)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), states, func(w io.Writer) { migrationTable(w, states) })
		},
	})

	return cmd
}

func migrationTable(w io.Writer, states []db.MigrationState) {
	rows := make([][]string, 0, len(states))
	for _, s := range states {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		rows = append(rows, []string{strconv.FormatInt(s.Version, 10), s.File, state})
	}
	formatTable(w, []string{"VERSION", "FILE", "STATE"}, rows)
}
