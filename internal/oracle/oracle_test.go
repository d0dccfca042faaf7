package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Text)
	}
	return out
}

func TestParseNumberedList(t *testing.T) {
	body := "Here you go:\n1. 私は元気です。\n2.私は学生です。\n\n3. \n4. 私は\\\nカレーが好きです。\nnot numbered"
	assert.Equal(t, []string{"私は元気です。", "私は学生です。", "私はカレーが好きです。"}, texts(ParseNumberedList(body)))
	assert.Empty(t, ParseNumberedList(""))
}

func TestDecodeMacroResponse(t *testing.T) {
	cands, err := DecodeMacroResponse([]byte(`{"messages":[{"text":"1. hello\n2. help"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "help"}, texts(cands))

	cands, err = DecodeMacroResponse([]byte(`{"messages":[]}`))
	require.NoError(t, err)
	assert.Empty(t, cands)

	for _, body := range []string{``, `not json`, `{}`, `{"messages":[{}]}`, `{"messages":"x"}`} {
		_, err := DecodeMacroResponse([]byte(body))
		assert.ErrorIs(t, err, ErrMalformed, "body %q", body)
	}
}

func TestLimitDropsInvalid(t *testing.T) {
	in := []Candidate{{Text: " "}, {Text: "a"}, {Text: "b"}, {Text: "c"}}
	assert.Equal(t, []string{"a", "b"}, texts(Limit(in, 2)))
}

func TestHTTPSuggest(t *testing.T) {
	var gotInputs map[string]string
	var gotID, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		gotID = r.PostForm.Get("id")
		gotModel = r.PostForm.Get("model_id")
		assert.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("userInputs")), &gotInputs))
		_, _ = w.Write([]byte(`{"messages":[{"text":"1. 私は元気です。\n2. 私は学生です。\n3. 私は猫です。"}]}`))
	}))
	defer srv.Close()

	h := NewHTTP(HTTPConfig{Endpoint: srv.URL, Language: "ja"}, nil)
	cands, err := h.Suggest(context.Background(), Sentence, "私は", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"私は元気です。", "私は学生です。"}, texts(cands))
	assert.Equal(t, "SentenceJapanese20240628", gotID)
	assert.Equal(t, DefaultModel, gotModel)
	assert.Equal(t, map[string]string{"language": "Japanese", "num": "2", "text": "私は"}, gotInputs)

	_, err = h.Suggest(context.Background(), Word, "私は", 5)
	require.NoError(t, err)
	assert.Equal(t, DefaultWordMacro, gotID)
	assert.Equal(t, "http:"+DefaultModel+":ja:SentenceJapanese20240628:"+DefaultWordMacro+":0@"+srv.URL, h.Name())
}

func TestHTTPNameSeparatesConfigurations(t *testing.T) {
	base := HTTPConfig{Language: "ja"}
	name := NewHTTP(base, nil).Name()

	variants := map[string]HTTPConfig{
		"sentence macro": {Language: "ja", SentenceMacro: "SentenceJapaneseLong20241002"},
		"word macro":     {Language: "ja", WordMacro: "WordOther"},
		"temperature":    {Language: "ja", Temperature: 0.9},
		"language":       {Language: "en"},
		"model":          {Language: "ja", Model: "other-model"},
		"endpoint":       {Language: "ja", Endpoint: "http://10.0.0.1:5000/run-macro"},
	}
	seen := map[string]string{name: "base"}
	for label, cfg := range variants {
		got := NewHTTP(cfg, nil).Name()
		prev, dup := seen[got]
		assert.False(t, dup, "%s shares cache namespace with %s: %s", label, prev, got)
		seen[got] = label
	}
	assert.Equal(t, name, NewHTTP(base, nil).Name())
}

func TestHTTPSuggestRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := NewHTTP(HTTPConfig{Endpoint: srv.URL, Language: "en", Retries: 1}, nil)
	_, err := h.Suggest(context.Background(), Sentence, "I", 5)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSuggestMalformedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	h := NewHTTP(HTTPConfig{Endpoint: srv.URL, Retries: 3}, nil)
	_, err := h.Suggest(context.Background(), Word, "I", 5)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.toml")
	body := `
[[response]]
mode = "sentence"
context = "私は"
candidates = ["私は元気です。", "私は学生です。"]

[[response]]
mode = "word"
context = "私は"
candidates = ["元気"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	ctx := context.Background()

	cands, err := s.Suggest(ctx, Sentence, "私は", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"私は元気です。"}, texts(cands))

	cands, err = s.Suggest(ctx, Word, "私は", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"元気"}, texts(cands))

	cands, err = s.Suggest(ctx, Word, "あなた", 5)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestLoadScriptBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[response]]\nmode = \"phrase\"\n"), 0o644))
	_, err := LoadScript(path)
	require.Error(t, err)
}

type memCache struct {
	entries map[string][]string
	puts    int
}

func (m *memCache) key(backend, mode, text string, count int) string {
	return backend + "|" + mode + "|" + text + "|" + string(rune('0'+count))
}

func (m *memCache) GetSuggestions(_ context.Context, backend, mode, text string, count int) ([]string, bool, error) {
	v, ok := m.entries[m.key(backend, mode, text, count)]
	return v, ok, nil
}

func (m *memCache) PutSuggestions(_ context.Context, backend, mode, text string, count int, candidates []string) error {
	m.puts++
	m.entries[m.key(backend, mode, text, count)] = candidates
	return nil
}

func TestCachedServesRepeatQueries(t *testing.T) {
	calls := 0
	next := Func(func(_ context.Context, _ Mode, text string, _ int) ([]Candidate, error) {
		calls++
		return []Candidate{{Text: text + "です"}}, nil
	})
	cache := &memCache{entries: map[string][]string{}}
	c := NewCached(next, cache, "test", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cands, err := c.Suggest(ctx, Word, "元気", 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"元気です"}, texts(cands))
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.puts)
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	next := Func(func(context.Context, Mode, string, int) ([]Candidate, error) {
		return nil, ErrUnavailable
	})
	cache := &memCache{entries: map[string][]string{}}
	c := NewCached(next, cache, "test", nil)

	_, err := c.Suggest(context.Background(), Sentence, "I", 5)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, cache.puts)
}

func TestNoneSuggestsNothing(t *testing.T) {
	cands, err := None{}.Suggest(context.Background(), Sentence, "x", 5)
	require.NoError(t, err)
	assert.Empty(t, cands)
}
