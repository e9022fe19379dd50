package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

func TestBM25SearchRanksByRelevance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := types.NewMemory("agent-1", "the cat sat on the mat", types.TypeKnowledge, nil)
	b := types.NewMemory("agent-1", "cats are independent animals, unlike dogs", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, a)
	require.NoError(t, err)
	_, err = s.CreateMemory(ctx, b)
	require.NoError(t, err)

	hits, err := s.BM25Search(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "cat"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		require.Equal(t, "bm25", h.MatchReason)
	}
}

func TestBM25SearchRespectsMinVitality(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem := types.NewMemory("agent-1", "a fading memory about oceans", types.TypeEvent, nil)
	mem.Vitality = 0.05
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	hits, err := s.BM25Search(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "oceans", MinVitality: 0.5})
	require.NoError(t, err)
	require.Empty(t, hits)

	hits, err = s.BM25Search(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "oceans", MinVitality: 0})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestBM25SearchEmptyQueryReturnsNoHits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	hits, err := s.BM25Search(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "   "})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestVectorCandidatesReturnsUpsertedEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem := types.NewMemory("agent-1", "embedded content", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	vec := []float32{0.1, 0.2, 0.3}
	emb := &types.Embedding{AgentID: "agent-1", MemoryID: mem.ID, Model: "qwen-embed", Dim: len(vec), Vector: vec}
	require.NoError(t, s.UpsertEmbedding(ctx, emb))

	cands, err := s.VectorCandidates(ctx, "agent-1", "qwen-embed")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.InDeltaSlice(t, vec64(vec), vec64(cands[0].Vector), 0.0001)
}

func vec64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func TestMemoriesMissingEmbeddingExcludesUpserted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := types.NewMemory("agent-1", "has embedding", types.TypeKnowledge, nil)
	b := types.NewMemory("agent-1", "lacks embedding", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, a)
	require.NoError(t, err)
	_, err = s.CreateMemory(ctx, b)
	require.NoError(t, err)

	require.NoError(t, s.UpsertEmbedding(ctx, &types.Embedding{
		AgentID: "agent-1", MemoryID: a.ID, Model: "qwen-embed", Dim: 2, Vector: []float32{1, 1},
	}))

	missing, err := s.MemoriesMissingEmbedding(ctx, "agent-1", "qwen-embed")
	require.NoError(t, err)
	require.Contains(t, missing, b.ID)
	require.NotContains(t, missing, a.ID)
}
