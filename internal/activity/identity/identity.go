// Package identity decides how people appear in activity descriptions:
// "You" for the viewer, a name for everyone else.
package identity

import (
	"strings"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

const (
	You     = "You"
	They    = "They"
	Unknown = "Unknown user"
)

// Subject is a person a record refers to. Invitees may only have an email.
type Subject struct {
	ID    string
	Email string
	Name  string
}

// IsZero reports whether nothing is known about the subject.
func (s Subject) IsZero() bool {
	return s.ID == "" && s.Email == "" && s.Name == ""
}

// FromSnapshot reads a subject out of a snapshot using the given columns.
func FromSnapshot(s domain.Snapshot, idKey, emailKey, nameKey string) Subject {
	return Subject{
		ID:    s.ID(idKey),
		Email: strings.TrimSpace(s.Text(emailKey)),
		Name:  strings.TrimSpace(s.Text(nameKey)),
	}
}

// Matches compares by id when both ids are known and by email (case
// insensitive) otherwise.
func Matches(subject Subject, viewer *domain.Identity) bool {
	if viewer == nil {
		return false
	}
	if subject.ID != "" && viewer.ID != "" {
		return subject.ID == viewer.ID
	}
	return EmailMatches(subject.Email, viewer)
}

// EmailMatches compares only emails. Used where the subject may not have an
// account yet.
func EmailMatches(email string, viewer *domain.Identity) bool {
	if viewer == nil || email == "" || viewer.Email == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(viewer.Email))
}

// DisplayName renders subject for viewer.
func DisplayName(subject Subject, viewer *domain.Identity) string {
	if subject.IsZero() {
		return Unknown
	}
	if Matches(subject, viewer) {
		return You
	}
	switch {
	case subject.Name != "" && subject.Email != "":
		return subject.Name + " (" + subject.Email + ")"
	case subject.Name != "":
		return subject.Name
	case subject.Email != "":
		return subject.Email
	}
	return They
}

// Label is the short in-sentence form: "you" for the viewer, otherwise the
// name, email, or fallback.
func Label(subject Subject, viewer *domain.Identity, fallback string) string {
	if Matches(subject, viewer) {
		return "you"
	}
	if subject.Name != "" {
		return subject.Name
	}
	if subject.Email != "" {
		return subject.Email
	}
	return fallback
}

// Actor returns who made the change recorded by rec. When the record has no
// changed_by fields the inviter on the related membership or invitation is
// used.
func Actor(rec domain.LogRecord) Subject {
	if !rec.Actor.IsZero() {
		return Subject{ID: rec.Actor.ID, Email: rec.Actor.Email, Name: rec.Actor.Name}
	}

	candidates := []domain.Snapshot{
		rec.RelatedSnapshot(domain.RelatedProjectMember),
		rec.RelatedSnapshot(domain.RelatedInvitation),
		rec.NewData,
		rec.OldData,
	}
	for _, s := range candidates {
		sub := FromSnapshot(s, "inviter_user_id", "inviter_email", "inviter_name")
		if !sub.IsZero() {
			return sub
		}
	}
	return Subject{}
}

// ChangedBy is the "changed by" attribution shown next to a feed item.
func ChangedBy(rec domain.LogRecord, viewer *domain.Identity) string {
	return DisplayName(Actor(rec), viewer)
}
