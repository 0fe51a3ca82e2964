package main

import (
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/activityfeed/migrations"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	var dsn string

	open := func() (*goose.Provider, func(), error) {
		if dsn == "" {
			cfg, err := root.load()
			if err != nil {
				return nil, nil, err
			}
			dsn = cfg.Database.DSN
		}
		if dsn == "" {
			return nil, nil, fmt.Errorf("database dsn is not configured")
		}
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create goose provider: %w", err)
		}
		return provider, func() { _ = provider.Close() }, nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the activity_logs schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (default database.dsn from config)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := provider.Up(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := provider.Down(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			return writeResults(cmd.OutOrStdout(), []*goose.MigrationResult{result})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := provider.Status(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("migrate status: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
			for _, s := range statuses {
				applied := "-"
				if !s.AppliedAt.IsZero() {
					applied = s.AppliedAt.Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
			}
			return tw.Flush()
		},
	})
	return cmd
}

func writeResults(w io.Writer, results []*goose.MigrationResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no migrations to apply")
		return err
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s (%s)\n", r.Direction, r.Source.Path, r.Duration.Round(time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}
