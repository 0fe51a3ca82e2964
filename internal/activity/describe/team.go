package describe

import (
	"strings"

	"github.com/heartmarshall/activityfeed/internal/activity/fielddiff"
	"github.com/heartmarshall/activityfeed/internal/activity/identity"
	"github.com/heartmarshall/activityfeed/internal/activity/links"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

var memberFields = fielddiff.Spec{
	{Column: "role"},
	{Column: "status"},
}

var userFields = fielddiff.Spec{
	{Column: "name"},
	{Column: "email"},
	{Column: "premium_start_date", Kind: fielddiff.DateTime},
	{Column: "premium_end_date", Kind: fielddiff.DateTime},
}

// membership is who a project_members row is about and who invited them.
type membership struct {
	member    identity.Subject
	inviterID string
}

// membershipOf reads the member from the related project_member snapshot.
// Updates may lack it and fall back to the row itself.
func membershipOf(rec domain.LogRecord) membership {
	pm := rec.RelatedSnapshot(domain.RelatedProjectMember)
	m := membership{
		member:    identity.FromSnapshot(pm, "user_id", "user_email", "user_name"),
		inviterID: pm.ID("inviter_user_id"),
	}
	if pm == nil && rec.Operation == domain.OperationUpdate {
		m.member = identity.FromSnapshot(rec.Current(), "user_id", "user_email", "user_name")
	}

	user := rec.RelatedSnapshot(domain.RelatedUser)
	if uid := user.ID("id"); user != nil && (uid == "" || uid == m.member.ID) {
		if m.member.Name == "" {
			m.member.Name = user.Text("name")
		}
		if m.member.Email == "" {
			m.member.Email = user.Text("email")
		}
	}
	return m
}

func describeMember(in input, fields fielddiff.Spec) Description {
	rec := in.rec
	m := membershipOf(rec)
	self := identity.Matches(m.member, in.viewer)
	label := identity.Label(m.member, in.viewer, "a member")
	profile := links.Profile(rec)
	project := links.Project(rec)
	projectName := links.ProjectName(rec)

	switch in.op() {
	case domain.OperationInsert:
		switch {
		case self:
			return Description{Sentence: newSentence("You joined ").ref("project", project, projectName).build()}
		case in.viewer != nil && in.viewer.ID != "" && m.inviterID == in.viewer.ID:
			s := newSentence("You added ").person(profile, label, false).text(" to ").ref("project", project, projectName)
			return Description{Sentence: s.build()}
		}
		newcomer := identity.Label(m.member, in.viewer, "A new member")
		s := newSentence("").person(profile, newcomer, false).text(" joined ").ref("project", project, projectName)
		return Description{Sentence: s.build()}

	case domain.OperationDelete:
		if self {
			return Description{Sentence: newSentence("You left ").ref("project", project, projectName).build()}
		}
		s := newSentence("Removed ").person(profile, label, false).text(" from ").ref("project", project, projectName)
		return Description{Sentence: s.build()}

	case domain.OperationUpdate:
		s := newSentence("Updated ")
		if self {
			s.text("your")
		} else {
			s.person(profile, label, false).text("'s")
		}
		s.text(" membership in ").ref("project", project, projectName)
		return Description{Sentence: s.build(), Changes: in.changes(fields)}
	}

	s := newSentence("Modified membership of ").person(profile, label, self).
		scope("in", "project", project, projectName)
	return Description{Sentence: s.build()}
}

func describeInvitation(in input, _ fielddiff.Spec) Description {
	rec := in.rec
	email := strings.TrimSpace(rec.RelatedSnapshot(domain.RelatedInvitation).Text("email"))
	if email == "" {
		email, _ = rec.Field("email")
		email = strings.TrimSpace(email)
	}
	self := identity.EmailMatches(email, in.viewer)
	project := links.Project(rec)
	projectName := links.ProjectName(rec)

	invitee := email
	switch {
	case self:
		invitee = "you"
	case invitee == "":
		invitee = "a pending invitee"
	}

	switch in.op() {
	case domain.OperationInsert:
		if self {
			return Description{Sentence: newSentence("You were invited to ").ref("project", project, projectName).build()}
		}
		s := newSentence("Sent an invitation for ")
		if email != "" {
			s = newSentence("Sent invitation to " + email + " for ")
		}
		return Description{Sentence: s.ref("project", project, projectName).build()}
	case domain.OperationDelete:
		s := newSentence("Cancelled invitation for " + invitee + " to ").ref("project", project, projectName)
		return Description{Sentence: s.build()}
	}
	s := newSentence("Modified invitation for "+invitee).scope("to", "project", project, projectName)
	return Description{Sentence: s.build()}
}

func describeUser(in input, fields fielddiff.Spec) Description {
	rec := in.rec
	email := strings.TrimSpace(rec.RelatedSnapshot(domain.RelatedUser).Text("email"))
	if email == "" {
		email, _ = rec.Field("email")
	}
	subject, possessive := identity.They, "their"
	if identity.EmailMatches(email, in.viewer) {
		subject, possessive = identity.You, "your"
	}

	say := func(rest string) Description {
		return Description{Sentence: newSentence(subject + " " + rest).build()}
	}

	switch in.op() {
	case domain.OperationInsert:
		return say("created " + possessive + " account")
	case domain.OperationDelete:
		return say("deleted " + possessive + " account")
	case domain.OperationUpdate:
		if premium, changed := flagChange(rec, "is_premium"); changed {
			if premium {
				return say("upgraded to Premium")
			}
			return say("downgraded from Premium")
		}
		if cancelled, changed := flagChange(rec, "user_cancelled_premium"); changed {
			if cancelled {
				return say("cancelled " + possessive + " Premium subscription")
			}
			return say("reactivated " + possessive + " Premium subscription")
		}
		d := say("updated " + possessive + " profile")
		d.Changes = in.changes(fields)
		return d
	}
	return say("modified " + possessive + " account")
}

// flagChange reports the new value of a boolean column and whether it
// differs from the old one. A missing old value counts as false.
func flagChange(rec domain.LogRecord, key string) (now, changed bool) {
	after, ok := rec.NewData.Bool(key)
	if !ok {
		return false, false
	}
	before, _ := rec.OldData.Bool(key)
	return after, before != after
}
