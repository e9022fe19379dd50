package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/pkg/types"
)

func TestCandidateCacheRoundTrip(t *testing.T) {
	c, err := NewCandidateCache(8)
	require.NoError(t, err)

	_, ok := c.Get("agent-1", "qwen-embed")
	require.False(t, ok)

	candidates := []types.Embedding{{AgentID: "agent-1", MemoryID: "m1", Model: "qwen-embed", Vector: []float32{1, 2}}}
	c.Set("agent-1", "qwen-embed", candidates)

	got, ok := c.Get("agent-1", "qwen-embed")
	require.True(t, ok)
	require.Equal(t, candidates, got)
}

func TestCandidateCacheScopedByAgentAndModel(t *testing.T) {
	c, err := NewCandidateCache(8)
	require.NoError(t, err)

	c.Set("agent-1", "qwen-embed", []types.Embedding{{MemoryID: "m1"}})

	_, ok := c.Get("agent-2", "qwen-embed")
	require.False(t, ok)
	_, ok = c.Get("agent-1", "gemini-embedding-001")
	require.False(t, ok)
}

func TestCandidateCacheInvalidate(t *testing.T) {
	c, err := NewCandidateCache(8)
	require.NoError(t, err)

	c.Set("agent-1", "qwen-embed", []types.Embedding{{MemoryID: "m1"}})
	c.Invalidate("agent-1", "qwen-embed")

	_, ok := c.Get("agent-1", "qwen-embed")
	require.False(t, ok)
}

func TestNilCandidateCacheIsNoCaching(t *testing.T) {
	var c *CandidateCache

	c.Set("agent-1", "qwen-embed", []types.Embedding{{MemoryID: "m1"}})
	c.Invalidate("agent-1", "qwen-embed")
	_, ok := c.Get("agent-1", "qwen-embed")
	require.False(t, ok)
}
