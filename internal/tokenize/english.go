package tokenize

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/words"
)

// English segments text on Unicode word boundaries.
type English struct{}

// NewEnglish returns an English tokenizer.
func NewEnglish() English {
	return English{}
}

// Segment returns words and punctuation, dropping whitespace.
func (English) Segment(text string) []string {
	segs := words.SegmentAll([]byte(text))
	out := make([]string, 0, len(segs))
	for _, seg := range segs {
		s := string(seg)
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Reading is the normalized spelling of the token.
func (English) Reading(token string) string {
	return Normalize(token)
}

// Join separates words with spaces and keeps sentence punctuation attached.
func (English) Join(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && !isClosingPunct(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func isClosingPunct(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !strings.ContainsRune(".,!?;:", r) && !unicode.Is(unicode.Pe, r) {
			return false
		}
	}
	return true
}
