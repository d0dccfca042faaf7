// Package oracle defines the suggestion oracle boundary and its backends.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Mode selects sentence-level or word-level continuations.
type Mode string

const (
	Sentence Mode = "sentence"
	Word     Mode = "word"
)

var (
	// ErrUnavailable reports that the backend could not be reached.
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrMalformed reports a response that is not a candidate list.
	ErrMalformed = errors.New("malformed oracle response")
)

// Candidate is one ranked continuation returned by an oracle.
type Candidate struct {
	Text string `json:"text"`
}

// Valid reports whether the candidate carries usable text.
func (c Candidate) Valid() bool {
	return strings.TrimSpace(c.Text) != ""
}

// Oracle returns up to count ranked continuations for the context text.
// Index 0 is the top pick. No result is an empty slice, not an error.
type Oracle interface {
	Suggest(ctx context.Context, mode Mode, text string, count int) ([]Candidate, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, mode Mode, text string, count int) ([]Candidate, error)

// Suggest calls f.
func (f Func) Suggest(ctx context.Context, mode Mode, text string, count int) ([]Candidate, error) {
	return f(ctx, mode, text, count)
}

// None never suggests anything. It yields the no-assistance baseline.
type None struct{}

// Suggest returns no candidates.
func (None) Suggest(context.Context, Mode, string, int) ([]Candidate, error) {
	return nil, nil
}

// ParseMode converts a user supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Sentence:
		return Sentence, nil
	case Word:
		return Word, nil
	default:
		return "", fmt.Errorf("unknown mode %q (available: sentence, word)", s)
	}
}

var listIndex = regexp.MustCompile(`^\d+\.\s?`)

// ParseNumberedList extracts candidates from a "1. foo\n2. bar" listing.
// Lines without an index are ignored, as are backslash line continuations.
func ParseNumberedList(text string) []Candidate {
	text = strings.ReplaceAll(text, "\\\n", "")
	var out []Candidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !listIndex.MatchString(line) {
			continue
		}
		c := Candidate{Text: strings.TrimSpace(listIndex.ReplaceAllString(line, ""))}
		if !c.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Limit truncates candidates to at most n entries and drops invalid ones.
func Limit(candidates []Candidate, n int) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if n >= 0 && len(out) >= n {
			break
		}
		if !c.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out
}
