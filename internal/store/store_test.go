package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/clicksim/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "clicksim.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestInsertAndListRuns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := model.RunRecord{
		StartedAt: start,
		EndedAt:   start.Add(time.Minute),
		Lang:      "ja",
		Oracle:    "script",
		Fallback:  "phonetic",
		Lines:     2,
		Failed:    1,
		Clicks:    7,
		Baseline:  10,
	}
	sentences := []model.SentenceRecord{
		{
			Line:   1,
			Target: "私は元気です。",
			Status: model.StatusOK,
			Result: model.Result{
				Clicks:        7,
				FallbackCount: 3,
				TargetLength:  7,
				Baseline:      10,
				Events: []model.CostEvent{
					{Kind: model.InitialPhrase, Clicks: 1, Tokens: []string{"私", "は"}},
				},
			},
		},
		{Line: 2, Target: "???", Status: model.StatusFailed, Err: "simulation stuck"},
	}

	id, err := st.InsertRun(ctx, run, sentences)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := st.ListRuns(ctx, model.RunFilter{Lang: "ja"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.True(t, runs[0].StartedAt.Equal(start))
	assert.Equal(t, 7, runs[0].Clicks)
	assert.Equal(t, 1, runs[0].Failed)

	other, err := st.ListRuns(ctx, model.RunFilter{Lang: "en"})
	require.NoError(t, err)
	assert.Empty(t, other)

	got, err := st.ListSentences(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.StatusOK, got[0].Status)
	assert.Equal(t, sentences[0].Result.Events, got[0].Result.Events)
	assert.Equal(t, "私は元気です。", got[0].Result.Target)
	assert.Equal(t, model.StatusFailed, got[1].Status)
	assert.Equal(t, "simulation stuck", got[1].Err)
}

func TestInsertRunKeepsGivenID(t *testing.T) {
	st := openTestStore(t)
	id, err := st.InsertRun(context.Background(), model.RunRecord{ID: "fixed", Lang: "en"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	_, err = st.InsertRun(context.Background(), model.RunRecord{ID: "fixed", Lang: "en"}, nil)
	require.Error(t, err, "duplicate run id must fail")
}

func TestSuggestionCache(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, ok, err := st.GetSuggestions(ctx, "http:m", "word", "私は", 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.PutSuggestions(ctx, "http:m", "word", "私は", 5, []string{"元気", "学生"}))
	got, ok, err := st.GetSuggestions(ctx, "http:m", "word", "私は", 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"元気", "学生"}, got)

	require.NoError(t, st.PutSuggestions(ctx, "http:m", "word", "私は", 5, nil))
	got, ok, err = st.GetSuggestions(ctx, "http:m", "word", "私は", 5)
	require.NoError(t, err)
	assert.True(t, ok, "empty answers are cached too")
	assert.Empty(t, got)

	_, ok, err = st.GetSuggestions(ctx, "http:m", "sentence", "私は", 5)
	require.NoError(t, err)
	assert.False(t, ok)
}
