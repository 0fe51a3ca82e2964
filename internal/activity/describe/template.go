package describe

import (
	"strings"

	"github.com/heartmarshall/activityfeed/internal/activity/links"
)

// SegmentKind tells a renderer whether a segment is plain text or a link.
type SegmentKind string

const (
	SegmentText      SegmentKind = "text"
	SegmentProject   SegmentKind = SegmentKind(links.KindProject)
	SegmentTask      SegmentKind = SegmentKind(links.KindTask)
	SegmentMilestone SegmentKind = SegmentKind(links.KindMilestone)
	SegmentFile      SegmentKind = SegmentKind(links.KindFile)
	SegmentLabel     SegmentKind = SegmentKind(links.KindLabel)
	SegmentProfile   SegmentKind = SegmentKind(links.KindProfile)
)

// Segment is one piece of a sentence. Link is set for every kind except
// SegmentText.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
	Link *links.Link `json:"link,omitempty"`
}

// Template is a sentence made of text and link segments.
type Template []Segment

// String renders the template as plain text.
func (t Template) String() string {
	var b strings.Builder
	for _, s := range t {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Links returns the link segments in order.
func (t Template) Links() []*links.Link {
	var out []*links.Link
	for _, s := range t {
		if s.Link != nil {
			out = append(out, s.Link)
		}
	}
	return out
}

// sentence accumulates segments, merging adjacent text.
type sentence struct {
	segs Template
}

func newSentence(text string) *sentence {
	s := &sentence{}
	return s.text(text)
}

func (s *sentence) text(t string) *sentence {
	if t == "" {
		return s
	}
	if n := len(s.segs); n > 0 && s.segs[n-1].Kind == SegmentText {
		s.segs[n-1].Text += t
		return s
	}
	s.segs = append(s.segs, Segment{Kind: SegmentText, Text: t})
	return s
}

func (s *sentence) link(l *links.Link) *sentence {
	s.segs = append(s.segs, Segment{Kind: SegmentKind(l.Kind), Text: l.Label, Link: l})
	return s
}

// ref writes "noun {link}", `noun "name"` when only a name is known, or
// "a noun" when nothing is.
func (s *sentence) ref(noun string, l *links.Link, name string) *sentence {
	switch {
	case l != nil:
		return s.text(noun + " ").link(l)
	case name != "":
		return s.text(noun + ` "` + name + `"`)
	}
	return s.text(article(noun) + " " + noun)
}

// scope appends " prep noun {link}" and is skipped entirely when neither a
// link nor a name is known.
func (s *sentence) scope(prep, noun string, l *links.Link, name string) *sentence {
	if l == nil && name == "" {
		return s
	}
	return s.text(" " + prep + " ").ref(noun, l, name)
}

// person writes a profile link labelled label, or plain text when the
// person is the viewer or has no profile.
func (s *sentence) person(l *links.Link, label string, self bool) *sentence {
	if self || l == nil {
		return s.text(label)
	}
	cp := *l
	cp.Label = label
	return s.link(&cp)
}

func (s *sentence) build() Template {
	return s.segs
}

func article(noun string) string {
	if noun != "" && strings.ContainsRune("aeiou", rune(noun[0])) {
		return "an"
	}
	return "a"
}
