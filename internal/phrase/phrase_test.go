package phrase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// table segmenter: known texts map to fixed tokens, anything else splits per rune.
type tableSeg map[string][]string

func (s tableSeg) Segment(text string) []string {
	if toks, ok := s[text]; ok {
		return toks
	}
	return strings.Split(text, "")
}

func TestMatchPicksLongestAlignedPhrase(t *testing.T) {
	seg := tableSeg{
		"私は":      {"私", "は"},
		"私":       {"私"},
		"私は元気です": {"私", "は", "元気", "です"},
	}
	m := NewMatcher(seg, []string{"私", "私は"})
	got, ok := m.Match("私は元気です", seg.Segment("私は元気です"))
	require.True(t, ok)
	assert.Equal(t, "私は", got.Phrase)
	assert.Equal(t, []string{"私", "は"}, got.Tokens)
}

func TestMatchRequiresTokenBoundary(t *testing.T) {
	seg := tableSeg{
		"こんにちは":  {"こんにちは"},
		"こんにちわ":  {"こんにち", "わ"},
		"こん":     {"こん"},
		"こんにちは。": {"こんにちは", "。"},
	}
	m := NewMatcher(seg, []string{"こん"})
	_, ok := m.Match("こんにちは。", seg.Segment("こんにちは。"))
	assert.False(t, ok, "string prefix alone must not match")
}

func TestMatchTieKeepsListOrder(t *testing.T) {
	seg := tableSeg{
		"ab":  {"ab"},
		"abc": {"ab", "c"},
	}
	// Both phrases have the same length; the first listed wins.
	m := NewMatcher(seg, []string{"ab", "ab"})
	got, ok := m.Match("abc", seg.Segment("abc"))
	require.True(t, ok)
	assert.Equal(t, "ab", got.Phrase)
}

func TestMatchNone(t *testing.T) {
	seg := tableSeg{}
	m := NewMatcher(seg, Defaults("ja"))
	_, ok := m.Match("今日は", []string{"今日", "は"})
	assert.False(t, ok)
}

func TestDefaults(t *testing.T) {
	assert.Contains(t, Defaults("ja"), "ありがとう")
	assert.Contains(t, Defaults("EN"), "Could you")
	assert.Empty(t, Defaults("fr"))

	d := Defaults("ja")
	d[0] = "changed"
	assert.Equal(t, "私は", Defaults("ja")[0])
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.txt")
	require.NoError(t, os.WriteFile(path, []byte("# openers\nおはよう\n\n  お疲れ様  \n"), 0o644))
	phrases, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"おはよう", "お疲れ様"}, phrases)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o644))
	_, err = LoadFile(empty)
	require.Error(t, err)
}
