// Package activitylog implements the activity log source using PostgreSQL.
// Rows are read newest first from the activity_logs table.
package activitylog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	postgres "github.com/heartmarshall/activityfeed/internal/adapter/postgres"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

const table = "activity_logs"

var columns = []string{
	"id::text AS id",
	"table_name",
	"operation",
	"old_data",
	"new_data",
	"changed_by_id",
	"changed_by_name",
	"changed_by_email",
	"related",
	"created_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo provides activity log persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new activity log repository. db is usually a *pgxpool.Pool.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// logRow mirrors one activity_logs row.
type logRow struct {
	ID             string    `db:"id"`
	TableName      string    `db:"table_name"`
	Operation      string    `db:"operation"`
	OldData        []byte    `db:"old_data"`
	NewData        []byte    `db:"new_data"`
	ChangedByID    *string   `db:"changed_by_id"`
	ChangedByName  *string   `db:"changed_by_name"`
	ChangedByEmail *string   `db:"changed_by_email"`
	Related        []byte    `db:"related"`
	CreatedAt      time.Time `db:"created_at"`
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// FetchPage returns the newest limit records, optionally restricted to
// tables. HasMore is derived by reading one extra row. The token is not
// used: access control happens before the database is reached.
func (r *Repo) FetchPage(ctx context.Context, _ string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
	if limit < 1 {
		return domain.LogPage{}, domain.NewValidationError("limit", "must be positive")
	}

	query := psql.Select(columns...).
		From(table).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit) + 1)
	if len(tables) > 0 {
		names := make([]string, len(tables))
		for i, t := range tables {
			names[i] = string(t)
		}
		query = query.Where(sq.Eq{"table_name": names})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return domain.LogPage{}, fmt.Errorf("build activity_logs query: %w", err)
	}

	var rows []logRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sql, args...); err != nil {
		return domain.LogPage{}, postgres.MapError(err, table, "page")
	}

	page := domain.LogPage{HasMore: len(rows) > limit}
	if page.HasMore {
		rows = rows[:limit]
	}
	page.Records = make([]domain.LogRecord, 0, len(rows))
	for _, row := range rows {
		page.Records = append(page.Records, toDomain(row))
	}
	return page, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Append inserts rec and returns its generated id. A zero CreatedAt lets the
// database assign now().
func (r *Repo) Append(ctx context.Context, rec domain.LogRecord) (string, error) {
	if !rec.Operation.IsValid() {
		return "", domain.NewValidationError("operation", "must be insert, update or delete")
	}
	if rec.TableName == "" {
		return "", domain.NewValidationError("table_name", "required")
	}

	oldData, err := encodeSnapshot(rec.OldData)
	if err != nil {
		return "", err
	}
	newData, err := encodeSnapshot(rec.NewData)
	if err != nil {
		return "", err
	}
	related, err := encodeRelated(rec.Related)
	if err != nil {
		return "", err
	}

	cols := []string{"table_name", "operation", "old_data", "new_data",
		"changed_by_id", "changed_by_name", "changed_by_email", "related"}
	vals := []any{rec.TableName, string(rec.Operation), oldData, newData,
		nullable(rec.Actor.ID), nullable(rec.Actor.Name), nullable(rec.Actor.Email), related}
	if !rec.CreatedAt.IsZero() {
		cols = append(cols, "created_at")
		vals = append(vals, rec.CreatedAt)
	}

	sql, args, err := psql.Insert(table).Columns(cols...).Values(vals...).
		Suffix("RETURNING id::text").ToSql()
	if err != nil {
		return "", fmt.Errorf("build activity_logs insert: %w", err)
	}

	var id string
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return "", postgres.MapError(err, table, rec.TableName)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

// toDomain keeps a row whose JSON columns do not hold objects. The bad
// column is left nil and the reason goes to DecodeErr.
func toDomain(row logRow) domain.LogRecord {
	var errs []error
	oldData, err := domain.DecodeSnapshot(row.OldData)
	if err != nil {
		errs = append(errs, fmt.Errorf("old_data: %w", err))
	}
	newData, err := domain.DecodeSnapshot(row.NewData)
	if err != nil {
		errs = append(errs, fmt.Errorf("new_data: %w", err))
	}
	related, err := domain.DecodeRelated(row.Related)
	if err != nil {
		errs = append(errs, err)
	}

	return domain.LogRecord{
		ID:        row.ID,
		TableName: row.TableName,
		Operation: domain.Operation(row.Operation),
		OldData:   oldData,
		NewData:   newData,
		Actor: domain.Actor{
			ID:    deref(row.ChangedByID),
			Name:  deref(row.ChangedByName),
			Email: deref(row.ChangedByEmail),
		},
		CreatedAt: row.CreatedAt.UTC(),
		Related:   related,
		DecodeErr: errors.Join(errs...),
	}
}

func encodeSnapshot(s domain.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func encodeRelated(rel map[domain.Relation]domain.Snapshot) ([]byte, error) {
	out := make(map[string]domain.Snapshot, len(rel))
	for k, v := range rel {
		if v != nil {
			out[string(k)] = v
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode related: %w", err)
	}
	return b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
