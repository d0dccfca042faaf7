// Package phrase picks the opening phrase a user would select before typing.
package phrase

import (
	"strings"
	"unicode/utf8"

	"github.com/verte-zerg/clicksim/internal/tokenize"
)

// Cost is the click cost of selecting an initial phrase.
const Cost = 1

var defaults = map[string][]string{
	"ja": {"私は", "あなたは", "皆さんは", "こんにちは", "すみません", "ありがとう", "おはよう", "こんばんは"},
	"en": {"I", "You", "They", "What", "Why", "When", "Where", "How", "Who", "Can", "Could you", "Would you", "Do you"},
}

// Defaults returns the built-in phrase set for a language.
func Defaults(lang string) []string {
	return append([]string(nil), defaults[strings.ToLower(lang)]...)
}

// Segmenter splits text into surface tokens.
type Segmenter interface {
	Segment(text string) []string
}

// Match is the selected opening phrase.
type Match struct {
	Phrase string
	Tokens []string
}

type entry struct {
	text   string
	length int
	tokens []string
}

// Matcher holds an ordered phrase list with pre-segmented tokens.
type Matcher struct {
	entries []entry
}

// NewMatcher segments every phrase once with seg.
func NewMatcher(seg Segmenter, phrases []string) *Matcher {
	m := &Matcher{entries: make([]entry, 0, len(phrases))}
	for _, p := range phrases {
		if p == "" {
			continue
		}
		tokens := seg.Segment(p)
		if len(tokens) == 0 {
			continue
		}
		m.entries = append(m.entries, entry{text: p, length: utf8.RuneCountInString(p), tokens: tokens})
	}
	return m
}

// Phrases lists the usable phrases in order.
func (m *Matcher) Phrases() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.text)
	}
	return out
}

// Match returns the longest phrase that starts the target on a token boundary.
// Ties keep the earliest phrase in list order.
func (m *Matcher) Match(target string, targetTokens []string) (Match, bool) {
	var best *entry
	for i := range m.entries {
		e := &m.entries[i]
		if !strings.HasPrefix(target, e.text) {
			continue
		}
		if best != nil && e.length <= best.length {
			continue
		}
		if !tokenize.HasPrefix(targetTokens, e.tokens) {
			continue
		}
		best = e
	}
	if best == nil {
		return Match{}, false
	}
	return Match{Phrase: best.text, Tokens: append([]string(nil), best.tokens...)}, true
}
