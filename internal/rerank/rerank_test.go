package rerank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

func TestRerankBoostsHigherPriorityForFactualIntent(t *testing.T) {
	r := New(nil, nil)

	hits := []storage.SearchHit{
		{Memory: types.Memory{ID: "low-pri", Priority: 3, Vitality: 1.0}, Score: 1.0},
		{Memory: types.Memory{ID: "high-pri", Priority: 0, Vitality: 1.0}, Score: 1.0},
	}

	ranked, classification := r.Rerank(context.Background(), "what is the deadline", hits)
	require.Equal(t, IntentFactual, classification.Intent)
	require.Equal(t, "high-pri", ranked[0].Memory.ID)
}

func TestRerankAppliesVitalityFloor(t *testing.T) {
	r := New(nil, nil)

	hits := []storage.SearchHit{
		{Memory: types.Memory{ID: "faded", Priority: 2, Vitality: 0.0}, Score: 1.0},
	}
	ranked, _ := r.Rerank(context.Background(), "tell me about this", hits)
	require.InDelta(t, 0.1, ranked[0].Score, 0.001)
}

func TestRerankTruncatesToIntentHardLimit(t *testing.T) {
	r := New(nil, nil)

	var hits []storage.SearchHit
	for i := 0; i < 20; i++ {
		hits = append(hits, storage.SearchHit{
			Memory: types.Memory{ID: string(rune('a' + i)), Priority: 2, Vitality: 1.0},
			Score:  1.0,
		})
	}

	ranked, classification := r.Rerank(context.Background(), "tell me about the whole system", hits)
	require.Equal(t, IntentExploratory, classification.Intent)
	require.Len(t, ranked, 15)
}

type stubExternal struct {
	scores []RerankedIndex
	err    error
}

func (s stubExternal) Rerank(ctx context.Context, query string, contents []string) ([]RerankedIndex, error) {
	return s.scores, s.err
}

func TestRerankUsesExternalScoreWhenAvailable(t *testing.T) {
	ext := stubExternal{scores: []RerankedIndex{{Index: 0, RelevanceScore: 0.9}}}
	r := New(ext, nil)

	hits := []storage.SearchHit{
		{Memory: types.Memory{ID: "only", Priority: 2, Vitality: 1.0}, Score: 0.1, MatchReason: "bm25"},
	}
	ranked, _ := r.Rerank(context.Background(), "what happened", hits)
	require.Len(t, ranked, 1)
	require.Contains(t, ranked[0].MatchReason, "+rerank")
}

func TestRerankFallsBackToLocalOnExternalFailure(t *testing.T) {
	ext := stubExternal{err: errors.New("provider timeout")}
	r := New(ext, nil)

	hits := []storage.SearchHit{
		{Memory: types.Memory{ID: "only", Priority: 0, Vitality: 1.0}, Score: 1.0, MatchReason: "bm25"},
	}
	ranked, _ := r.Rerank(context.Background(), "what happened", hits)
	require.Len(t, ranked, 1)
	require.NotContains(t, ranked[0].MatchReason, "+rerank")
}

func TestRerankBoostsRecentForTemporalIntent(t *testing.T) {
	r := New(nil, nil)

	hits := []storage.SearchHit{
		{Memory: types.Memory{ID: "stale", Priority: 2, Vitality: 1.0, UpdatedAt: time.Now().Add(-90 * 24 * time.Hour)}, Score: 1.0},
		{Memory: types.Memory{ID: "fresh", Priority: 2, Vitality: 1.0, UpdatedAt: time.Now()}, Score: 1.0},
	}
	ranked, _ := r.Rerank(context.Background(), "what happened yesterday", hits)
	require.Equal(t, "fresh", ranked[0].Memory.ID)
}
