// Package tokenize adapts morphological tokenizers to the surface-token and
// phonetic-reading view used by the simulator.
package tokenize

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer segments text into surface tokens and spells tokens phonetically.
// Implementations must be deterministic and safe for concurrent use.
type Tokenizer interface {
	// Segment splits text into ordered surface tokens.
	Segment(text string) []string
	// Reading returns the phonetic spelling of a single token. When no
	// reading is known the normalized token itself is returned.
	Reading(token string) string
	// Join renders committed tokens back into the text a user would see.
	Join(tokens []string) string
}

// New returns the tokenizer for a language code. dict selects the kagome
// dictionary for Japanese and is ignored otherwise.
func New(lang, dict string) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "ja":
		return NewJapanese(dict)
	case "en":
		return NewEnglish(), nil
	default:
		return nil, fmt.Errorf("unsupported language %q (available: ja, en)", lang)
	}
}

// Normalize folds width variants, lower-cases and converts katakana to hiragana.
func Normalize(s string) string {
	return KatakanaToHiragana(strings.ToLower(norm.NFKC.String(s)))
}

// KatakanaToHiragana maps katakana letters onto their hiragana counterparts.
func KatakanaToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// Characters splits text into single-character tokens, skipping whitespace.
// It is the last-resort segmentation when a tokenizer yields nothing.
func Characters(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, string(r))
	}
	return out
}

// Equal reports whether two token sequences are identical.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CommonPrefix returns the longest shared leading run of target and other.
func CommonPrefix(target, other []string) []string {
	i := 0
	for i < len(target) && i < len(other) && target[i] == other[i] {
		i++
	}
	return target[:i]
}

// HasPrefix reports whether prefix is a leading run of tokens.
func HasPrefix(tokens, prefix []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	return Equal(tokens[:len(prefix)], prefix)
}
