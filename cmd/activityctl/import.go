package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/activityfeed/internal/adapter/postgres"
	"github.com/heartmarshall/activityfeed/internal/adapter/postgres/activitylog"
	"github.com/heartmarshall/activityfeed/internal/adapter/restapi"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

func newImportCommand(root *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Append log records from an activity-logs JSON page into PostgreSQL",
		Long: "Reads a body in the activity-logs wire format ({\"logs\": [...]}) and appends\n" +
			"every record in one transaction. Use --file - to read stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			page, err := restapi.DecodePage(in)
			if err != nil {
				return err
			}

			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			pool, err := postgres.NewPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := importRecords(ctx, postgres.NewTxManager(pool), activitylog.New(pool), page.Records)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", n)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file to import")
	return cmd
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type logAppender interface {
	Append(ctx context.Context, rec domain.LogRecord) (string, error)
}

// importRecords appends records oldest first so generated ids follow
// creation order. Nothing is written if any record fails or could only be
// partly decoded.
func importRecords(ctx context.Context, tx txRunner, repo logAppender, records []domain.LogRecord) (int, error) {
	for i, rec := range records {
		if rec.DecodeErr != nil {
			return 0, fmt.Errorf("record %d (%s): %w", i, rec.ID, rec.DecodeErr)
		}
	}
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		for i := len(records) - 1; i >= 0; i-- {
			if _, err := repo.Append(ctx, records[i]); err != nil {
				return fmt.Errorf("record %d (%s): %w", i, records[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
