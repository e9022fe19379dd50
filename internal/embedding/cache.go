package embedding

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentmem/engine/pkg/types"
)

// CandidateCache is a bounded LRU over (agent_id, model) -> the full
// VectorCandidates slice for that pair, sitting inside the hybrid-search
// path so a burst of recall calls within a short window skips a full scan
// of embeddings (SPEC_FULL DOMAIN STACK). Every embedding upsert for a
// given (agent_id, model) invalidates its entry so recall never serves a
// stale candidate set. The zero value *CandidateCache(nil) is valid and
// behaves as "no caching" — callers that construct an Engine without one
// don't need a nil check of their own.
type CandidateCache struct {
	cache *lru.Cache[string, []types.Embedding]
}

// NewCandidateCache builds a cache holding up to size (agent_id, model)
// entries.
func NewCandidateCache(size int) (*CandidateCache, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, []types.Embedding](size)
	if err != nil {
		return nil, err
	}
	return &CandidateCache{cache: cache}, nil
}

func candidateKey(agentID, model string) string {
	return agentID + "\x00" + model
}

func (c *CandidateCache) Get(agentID, model string) ([]types.Embedding, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(candidateKey(agentID, model))
}

func (c *CandidateCache) Set(agentID, model string, candidates []types.Embedding) {
	if c == nil {
		return
	}
	c.cache.Add(candidateKey(agentID, model), candidates)
}

// Invalidate drops the cached candidate slice for (agentID, model); call
// after any UpsertEmbedding for that pair.
func (c *CandidateCache) Invalidate(agentID, model string) {
	if c == nil {
		return
	}
	c.cache.Remove(candidateKey(agentID, model))
}
