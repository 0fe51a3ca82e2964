// Package fielddiff compares two row snapshots column by column and renders
// the differences for display.
package fielddiff

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

// Kind selects how a column is normalized and rendered.
type Kind int

const (
	Plain Kind = iota
	Date
	DateTime
	Truncated
	Count
)

const (
	// Empty is rendered for missing, null and blank values.
	Empty = "(empty)"
	// NoDate is rendered for a null date.
	NoDate = "none"
	// MaxTextLen is the rune limit for Truncated columns.
	MaxTextLen = 40

	ellipsis       = "..."
	dateLayout     = "Jan 2, 2006"
	dateTimeLayout = "Jan 2, 2006 3:04 PM"
)

// Field describes one column taking part in a diff.
type Field struct {
	// Column is the snapshot key that is compared.
	Column string
	// Label is reported as ChangeField.Field. Defaults to Column.
	Label string
	Kind  Kind
	// Display, when set, names a column whose value is shown instead of
	// Column's. Comparison still uses Column.
	Display string
}

// Name returns the label reported for this field.
func (f Field) Name() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Column
}

// Spec is an ordered list of fields. Diff output follows this order.
type Spec []Field

// Columns returns the compared column names in order.
func (s Spec) Columns() []string {
	cols := make([]string, len(s))
	for i, f := range s {
		cols[i] = f.Column
	}
	return cols
}

// Diff returns a ChangeField for every spec field whose normalized value
// differs between oldData and newData. The result is never nil.
func Diff(oldData, newData domain.Snapshot, spec Spec) []domain.ChangeField {
	changes := make([]domain.ChangeField, 0, len(spec))
	for _, f := range spec {
		before := normalize(f, oldData.Get(f.Column))
		after := normalize(f, newData.Get(f.Column))
		if before == after {
			continue
		}
		changes = append(changes, domain.ChangeField{
			Field:    f.Name(),
			OldValue: FormatValue(f, oldData),
			NewValue: FormatValue(f, newData),
		})
	}
	return changes
}

// canonical is the comparison form of a value. empty is decided before any
// placeholder substitution, so a literal "(empty)" string never equals a
// missing value.
type canonical struct {
	empty bool
	value string
}

func normalize(f Field, raw any) canonical {
	s, ok := domain.Scalar(raw)
	if !ok || strings.TrimSpace(s) == "" {
		return canonical{empty: true}
	}

	switch f.Kind {
	case Date, DateTime:
		if t, ok := parseTime(raw); ok {
			return canonical{value: formatTime(f.Kind, t)}
		}
	case Count:
		if n, ok := parseNumber(s); ok {
			return canonical{value: n}
		}
	}
	return canonical{value: s}
}

// FormatValue formats the value a snapshot holds for f.
func FormatValue(f Field, s domain.Snapshot) string {
	col := f.Column
	if f.Display != "" && s.Has(f.Display) && s.Has(f.Column) {
		col = f.Display
	}
	raw := s.Get(col)

	str, ok := domain.Scalar(raw)
	blank := !ok || strings.TrimSpace(str) == ""

	switch f.Kind {
	case Date, DateTime:
		if blank {
			return NoDate
		}
		if t, ok := parseTime(raw); ok {
			return formatTime(f.Kind, t)
		}
		return str
	case Count:
		if blank {
			return Empty
		}
		if n, ok := parseNumber(str); ok {
			return n
		}
		return str
	case Truncated:
		if blank {
			return Empty
		}
		return Truncate(str, MaxTextLen)
	}

	if blank {
		return Empty
	}
	return str
}

// Truncate cuts s to n runes and appends "..." when it is longer than n.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + ellipsis
}

// FormatDate renders a date value the way Date fields are rendered.
func FormatDate(raw any) string {
	return FormatValue(Field{Column: "v", Kind: Date}, domain.Snapshot{"v": raw})
}

func formatTime(k Kind, t time.Time) string {
	if k == DateTime {
		return t.UTC().Format(dateTimeLayout)
	}
	return t.UTC().Format(dateLayout)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case float64:
		return fromEpoch(int64(v)), true
	case int64:
		return fromEpoch(v), true
	case int:
		return fromEpoch(int64(v)), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return fromEpoch(n), true
		}
		if f, err := v.Float64(); err == nil {
			return fromEpoch(int64(f)), true
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// fromEpoch accepts seconds or milliseconds.
func fromEpoch(n int64) time.Time {
	if n > 1e12 || n < -1e12 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

func parseNumber(s string) (string, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}
