package symbols

import (
	"iter"
	"regexp"
	"strings"
)

type SegmentType string

const (
	SegmentText   SegmentType = "text"
	SegmentSymbol SegmentType = "symbol"
)

// Segment is either a literal text run or a resolved symbol.
type Segment struct {
	Type   SegmentType `json:"type"`
	Value  string      `json:"value,omitempty"`
	Key    string      `json:"key,omitempty"`
	Icon   string      `json:"icon,omitempty"`
	Offset float64     `json:"offset,omitempty"`
}

// Text returns the literal form of the segment: the text itself, or the
// braced key for a symbol.
func (s Segment) Text() string {
	if s.Type == SegmentSymbol {
		return "{" + s.Key + "}"
	}
	return s.Value
}

var tokenPattern = regexp.MustCompile(`\{[^}]+\}`)

// Iter yields the segments of s lazily. Unknown tokens are emitted as text,
// braces included, so concatenating every segment's Text reproduces s.
func (r *Registry) Iter(s string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		pos := 0
		for _, loc := range tokenPattern.FindAllStringIndex(s, -1) {
			if loc[0] > pos {
				if !yield(Segment{Type: SegmentText, Value: s[pos:loc[0]]}) {
					return
				}
			}
			raw := s[loc[0]:loc[1]]
			seg := Segment{Type: SegmentText, Value: raw}
			if sym, ok := r.Lookup(raw[1 : len(raw)-1]); ok {
				seg = Segment{Type: SegmentSymbol, Key: sym.Key, Icon: sym.Icon, Offset: sym.Offset}
			}
			if !yield(seg) {
				return
			}
			pos = loc[1]
		}
		if pos < len(s) {
			yield(Segment{Type: SegmentText, Value: s[pos:]})
		}
	}
}

// Tokenize collects Iter into a slice.
func (r *Registry) Tokenize(s string) []Segment {
	var out []Segment
	for seg := range r.Iter(s) {
		out = append(out, seg)
	}
	return out
}

// ManaCost splits an encoded cost like "{2}{W}{U}" into symbol segments.
// Braces are dropped and the rest split on whitespace; keys that do not
// resolve are skipped rather than drawn as text.
func (r *Registry) ManaCost(cost string) []Segment {
	cost = strings.ReplaceAll(cost, "{", " ")
	cost = strings.ReplaceAll(cost, "}", " ")
	var out []Segment
	for _, key := range strings.Fields(cost) {
		sym, ok := r.Lookup(key)
		if !ok {
			continue
		}
		out = append(out, Segment{Type: SegmentSymbol, Key: sym.Key, Icon: sym.Icon, Offset: sym.Offset})
	}
	return out
}

// Tokenize splits s with the built-in registry.
func Tokenize(s string) []Segment { return builtin.Tokenize(s) }

// ManaCost splits a cost string with the built-in registry.
func ManaCost(cost string) []Segment { return builtin.ManaCost(cost) }

// Join concatenates the literal form of segments.
func Join(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text())
	}
	return b.String()
}
