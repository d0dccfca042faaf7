package tokenize

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Japanese segments text with kagome and reads tokens from dictionary readings.
type Japanese struct {
	kg       *tokenizer.Tokenizer
	readings sync.Map
}

// NewJapanese builds a kagome tokenizer with the named dictionary ("ipa" or "uni").
func NewJapanese(dictName string) (*Japanese, error) {
	d, err := loadDict(dictName)
	if err != nil {
		return nil, err
	}
	kg, err := tokenizer.New(d, tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to create kagome tokenizer: %w", err)
	}
	return &Japanese{kg: kg}, nil
}

func loadDict(name string) (*dict.Dict, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ipa":
		return ipa.Dict(), nil
	case "uni":
		return uni.Dict(), nil
	default:
		return nil, fmt.Errorf("unknown dictionary %q (available: ipa, uni)", name)
	}
}

// Segment returns kagome surface forms in order.
func (j *Japanese) Segment(text string) []string {
	if text == "" {
		return nil
	}
	ktoks := j.kg.Tokenize(text)
	out := make([]string, 0, len(ktoks))
	for _, kt := range ktoks {
		if kt.Surface == "" {
			continue
		}
		out = append(out, kt.Surface)
	}
	return out
}

// Reading concatenates the hiragana readings of the token's morphemes,
// using the surface where the dictionary has none.
func (j *Japanese) Reading(token string) string {
	if cached, ok := j.readings.Load(token); ok {
		return cached.(string)
	}
	var b strings.Builder
	for _, kt := range j.kg.Tokenize(token) {
		reading, ok := kt.Reading()
		if !ok || reading == "" || reading == "*" {
			reading = kt.Surface
		}
		b.WriteString(reading)
	}
	out := Normalize(b.String())
	if out == "" {
		out = Normalize(token)
	}
	j.readings.Store(token, out)
	return out
}

// Join concatenates tokens; Japanese text has no inter-word spacing.
func (j *Japanese) Join(tokens []string) string {
	return strings.Join(tokens, "")
}
