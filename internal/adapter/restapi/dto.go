package restapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

// pageDTO is the body of GET /activity-logs. Records stay raw so one bad
// record cannot fail the page.
type pageDTO struct {
	Logs    []json.RawMessage `json:"logs"`
	HasMore bool              `json:"has_more"`
}

// logDTO is one record on the wire. Side-loaded entities arrive either
// under "related" or, from older API versions, as top-level keys.
type logDTO struct {
	ID             flexString      `json:"id"`
	TableName      string          `json:"table_name"`
	Operation      string          `json:"operation"`
	OldData        json.RawMessage `json:"old_data"`
	NewData        json.RawMessage `json:"new_data"`
	ChangedByID    flexString      `json:"changed_by_id"`
	ChangedByName  flexString      `json:"changed_by_name"`
	ChangedByEmail flexString      `json:"changed_by_email"`
	CreatedAt      string          `json:"created_at"`
	Related        json.RawMessage `json:"related"`

	Project       json.RawMessage `json:"project"`
	Task          json.RawMessage `json:"task"`
	ProjectMember json.RawMessage `json:"projectMember"`
	File          json.RawMessage `json:"file"`
	Assignment    json.RawMessage `json:"assignment"`
	Invitation    json.RawMessage `json:"invitation"`
	Comment       json.RawMessage `json:"comment"`
	Milestone     json.RawMessage `json:"milestone"`
	Label         json.RawMessage `json:"label"`
	ParentTask    json.RawMessage `json:"parentTask"`
	User          json.RawMessage `json:"user"`
}

// flexString accepts a JSON string or number. Null and any other JSON type
// decode to the empty string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = ""
	switch {
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*f = flexString(b)
	}
	return nil
}

func (d logDTO) legacy() map[domain.Relation]json.RawMessage {
	return map[domain.Relation]json.RawMessage{
		domain.RelatedProject:       d.Project,
		domain.RelatedTask:          d.Task,
		domain.RelatedProjectMember: d.ProjectMember,
		domain.RelatedFile:          d.File,
		domain.RelatedAssignment:    d.Assignment,
		domain.RelatedInvitation:    d.Invitation,
		domain.RelatedComment:       d.Comment,
		domain.RelatedMilestone:     d.Milestone,
		domain.RelatedLabel:         d.Label,
		domain.RelatedParentTask:    d.ParentTask,
		domain.RelatedUser:          d.User,
	}
}

// toDomain never fails. Fields that cannot be decoded are left empty and
// reported through the record's DecodeErr.
func (d logDTO) toDomain() domain.LogRecord {
	var errs []error

	oldData, err := domain.DecodeSnapshot(d.OldData)
	if err != nil {
		errs = append(errs, fmt.Errorf("old_data: %w", err))
	}
	newData, err := domain.DecodeSnapshot(d.NewData)
	if err != nil {
		errs = append(errs, fmt.Errorf("new_data: %w", err))
	}
	related, err := domain.DecodeRelated(d.Related)
	if err != nil {
		errs = append(errs, err)
	}

	// "related" wins over the legacy keys when both are present.
	for rel, raw := range d.legacy() {
		if len(raw) == 0 {
			continue
		}
		if _, ok := related[rel]; ok {
			continue
		}
		snap, err := domain.DecodeSnapshot(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		if snap == nil {
			continue
		}
		if related == nil {
			related = make(map[domain.Relation]domain.Snapshot)
		}
		related[rel] = snap
	}

	createdAt, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		errs = append(errs, fmt.Errorf("created_at: %w", err))
	}

	return domain.LogRecord{
		ID:        string(d.ID),
		TableName: d.TableName,
		Operation: domain.Operation(strings.ToLower(d.Operation)),
		OldData:   oldData,
		NewData:   newData,
		Actor: domain.Actor{
			ID:    string(d.ChangedByID),
			Name:  string(d.ChangedByName),
			Email: string(d.ChangedByEmail),
		},
		CreatedAt: createdAt,
		Related:   related,
		DecodeErr: errors.Join(errs...),
	}
}

// parseTimestamp accepts RFC 3339 and the looser layouts PostgreSQL and
// older API versions emit. Zone-less values are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// DecodePage reads a page body in the activity-logs wire format. The same
// format is accepted by the import command. Only a malformed envelope is an
// error: every element of "logs" yields a record, with DecodeErr set when
// part of it could not be decoded.
func DecodePage(r io.Reader) (domain.LogPage, error) {
	var body pageDTO
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return domain.LogPage{}, fmt.Errorf("decode page: %w", err)
	}

	page := domain.LogPage{
		HasMore: body.HasMore,
		Records: make([]domain.LogRecord, 0, len(body.Logs)),
	}
	for i, raw := range body.Logs {
		var dto logDTO
		// A type mismatch still fills the other fields.
		decodeErr := json.Unmarshal(raw, &dto)
		rec := dto.toDomain()
		if decodeErr != nil {
			rec.DecodeErr = errors.Join(fmt.Errorf("log %d: %w", i, decodeErr), rec.DecodeErr)
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}
