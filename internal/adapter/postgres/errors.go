package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

// MapError converts pgx/pgconn errors to domain errors, prefixed with entity
// and id. context.DeadlineExceeded and context.Canceled are NOT mapped.
//
// An unreachable database or a missing activity_logs table is reported as
// domain.ErrFetchFailed so readers see the same failure as an upstream API
// outage.
func MapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%s %s: %w: %w", entity, id, domain.ErrFetchFailed, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrAlreadyExists)
		case pgErr.Code == "23514", pgErr.Code == "23502", // check, not_null
			pgErr.Code == "22P02", pgErr.Code == "22007", pgErr.Code == "22008": // bad text, datetime
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		case pgErr.Code == "42P01": // undefined_table
			return fmt.Errorf("%s %s: %w: schema not migrated: %w", entity, id, domain.ErrFetchFailed, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"): // connection, shutdown
			return fmt.Errorf("%s %s: %w: %w", entity, id, domain.ErrFetchFailed, err)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
