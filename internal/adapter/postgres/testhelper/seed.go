package testhelper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

// SeedActivityLog inserts rec into activity_logs and returns its generated id.
// A zero CreatedAt is stored as now().
func SeedActivityLog(t *testing.T, pool *pgxpool.Pool, rec domain.LogRecord) string {
	t.Helper()
	ctx := context.Background()

	related := map[string]domain.Snapshot{}
	for rel, snap := range rec.Related {
		related[string(rel)] = snap
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id string
	err := pool.QueryRow(ctx,
		`INSERT INTO activity_logs
		   (table_name, operation, old_data, new_data, changed_by_id, changed_by_name, changed_by_email, related, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)
		 RETURNING id::text`,
		rec.TableName, string(rec.Operation),
		mustJSON(t, rec.OldData), mustJSON(t, rec.NewData),
		rec.Actor.ID, rec.Actor.Name, rec.Actor.Email,
		mustJSON(t, related), createdAt,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testhelper: SeedActivityLog insert: %v", err)
	}
	return id
}

// mustJSON encodes v for a JSONB column; a nil snapshot becomes SQL NULL.
func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	if s, ok := v.(domain.Snapshot); ok && s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("testhelper: marshal %T: %v", v, err)
	}
	return b
}
