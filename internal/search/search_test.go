package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/internal/embedding"
	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/internal/storage/sqlite"
	"github.com/agentmem/engine/pkg/types"
)

func newTestEngine(t *testing.T, provider embedding.Provider) (*Engine, *sqlite.Store) {
	t.Helper()
	s, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, provider, nil), s
}

func TestBM25DelegatesToStore(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t, nil)

	mem := types.NewMemory("agent-1", "a memory about lighthouses", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	hits, err := eng.BM25(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "lighthouses"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestHybridWithoutProviderFallsBackToBM25(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t, nil)

	mem := types.NewMemory("agent-1", "a memory about glaciers", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	hits, err := eng.Hybrid(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "glaciers"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "bm25", hits[0].MatchReason)
}

func TestHybridFusesLexicalAndSemanticHits(t *testing.T) {
	ctx := context.Background()

	prov := embedding.NewProvider(embedding.Config{
		ID: "test", Model: "test-model", Dimension: 3,
		Backend: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
	})
	eng, s := newTestEngine(t, prov)

	lexOnly := types.NewMemory("agent-1", "mentions kangaroos explicitly", types.TypeKnowledge, nil)
	semanticOnly := types.NewMemory("agent-1", "an unrelated sentence entirely", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, lexOnly)
	require.NoError(t, err)
	_, err = s.CreateMemory(ctx, semanticOnly)
	require.NoError(t, err)

	require.NoError(t, s.UpsertEmbedding(ctx, &types.Embedding{
		AgentID: "agent-1", MemoryID: semanticOnly.ID, Model: "test-model", Dim: 3, Vector: []float32{1, 0, 0},
	}))

	hits, err := eng.Hybrid(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "kangaroos", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	var sawSemantic bool
	for _, h := range hits {
		require.NotEmpty(t, h.Memory.Content, "hydration must fill in content for semantic-only hits")
		if h.Memory.ID == semanticOnly.ID {
			sawSemantic = true
			require.Contains(t, h.MatchReason, "semantic")
		}
	}
	require.True(t, sawSemantic)
}

func TestHybridDegradesOnProviderFailure(t *testing.T) {
	ctx := context.Background()

	prov := embedding.NewProvider(embedding.Config{
		ID: "broken", Model: "broken-model", Dimension: 3,
		Backend: func(ctx context.Context, text string) ([]float32, error) {
			return nil, assertErr
		},
	})
	eng, s := newTestEngine(t, prov)

	mem := types.NewMemory("agent-1", "degraded path still returns lexical hits", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	hits, err := eng.Hybrid(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "degraded"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestHybridServesVectorCandidatesFromCache(t *testing.T) {
	ctx := context.Background()

	prov := embedding.NewProvider(embedding.Config{
		ID: "test", Model: "test-model", Dimension: 3,
		Backend: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
	})
	s, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cache, err := embedding.NewCandidateCache(8)
	require.NoError(t, err)
	eng := New(s, prov, cache)

	mem := types.NewMemory("agent-1", "a memory never written to storage embeddings", types.TypeKnowledge, nil)
	_, err = s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	// Pre-seed the cache with a candidate that does not exist in storage;
	// a cache hit must surface it without touching VectorCandidates.
	cache.Set("agent-1", "test-model", []types.Embedding{
		{AgentID: "agent-1", MemoryID: mem.ID, Model: "test-model", Vector: []float32{1, 0, 0}},
	})

	hits, err := eng.Hybrid(ctx, storage.SearchOptions{AgentID: "agent-1", Query: "kangaroos", Limit: 10})
	require.NoError(t, err)

	var sawSemantic bool
	for _, h := range hits {
		if h.Memory.ID == mem.ID && h.MatchReason == "semantic" {
			sawSemantic = true
		}
	}
	require.True(t, sawSemantic, "cached candidate should be surfaced without a storage round trip")
}

var assertErr = errTest("embedding backend unavailable")

type errTest string

func (e errTest) Error() string { return string(e) }
