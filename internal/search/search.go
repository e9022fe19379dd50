// Package search orchestrates BM25 lexical and hybrid lexical+semantic
// retrieval on top of storage.SearchProvider (spec §4.5, §4.6).
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentmem/engine/internal/embedding"
	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

// rrfK is the Reciprocal Rank Fusion constant (spec §4.6 step 3).
const rrfK = 60

// defaultVectorTopK bounds how many semantic candidates survive the
// in-memory cosine ranking before fusion (spec §4.6 step 2, default 50).
const defaultVectorTopK = 50

// Store is the narrow slice of storage.Store the search engine needs: the
// lexical/vector providers plus a way to hydrate bare ids surfaced by
// semantic-only matches back into full records (spec §4.6 step 4).
type Store interface {
	storage.SearchProvider
	GetMemory(ctx context.Context, agentID, id string) (*types.Memory, error)
}

// Engine wraps a Store with an optional embedding provider for hybrid
// search and an optional candidate cache sitting in front of
// VectorCandidates (SPEC_FULL DOMAIN STACK).
type Engine struct {
	store    Store
	provider embedding.Provider
	cache    *embedding.CandidateCache
}

// New builds an Engine. cache may be nil (no candidate caching).
func New(store Store, provider embedding.Provider, cache *embedding.CandidateCache) *Engine {
	return &Engine{store: store, provider: provider, cache: cache}
}

// BM25 runs plain lexical search (spec §4.5), delegating directly to the
// store — the LIKE-fallback behavior lives in the storage backend itself
// since it depends on the backend's own query-syntax errors.
func (e *Engine) BM25(ctx context.Context, opts storage.SearchOptions) ([]storage.SearchHit, error) {
	opts.Normalize()
	return e.store.BM25Search(ctx, opts)
}

// Hybrid runs BM25 and (if a provider is configured) semantic search, then
// fuses the two ranked lists with Reciprocal Rank Fusion (spec §4.6). With
// no provider configured, it degrades to a plain BM25 call truncated to N.
func (e *Engine) Hybrid(ctx context.Context, opts storage.SearchOptions) ([]storage.SearchHit, error) {
	opts.Normalize()
	n := opts.Limit

	if e.provider == nil {
		lexOpts := opts
		hits, err := e.store.BM25Search(ctx, lexOpts)
		if err != nil {
			return nil, err
		}
		return truncate(hits, n), nil
	}

	lexOpts := opts
	lexOpts.Limit = n * 3
	lexicalHits, err := e.store.BM25Search(ctx, lexOpts)
	if err != nil {
		return nil, err
	}

	semanticHits, err := e.semanticSearch(ctx, opts)
	if err != nil {
		// Embedding/rerank provider errors degrade gracefully to the
		// remaining signal (spec §4.12).
		return truncate(lexicalHits, n), nil
	}

	fused := fuseRRF(lexicalHits, semanticHits)
	hydrated, err := e.hydrate(ctx, opts.AgentID, fused)
	if err != nil {
		return nil, err
	}
	return truncate(hydrated, n), nil
}

// hydrate fills in the full memory record for any hit whose Content is
// still empty (a semantic-only stub), skipping ids that no longer resolve
// within the tenant (e.g. deleted since the embedding was produced).
func (e *Engine) hydrate(ctx context.Context, agentID string, hits []storage.SearchHit) ([]storage.SearchHit, error) {
	out := make([]storage.SearchHit, 0, len(hits))
	for _, h := range hits {
		if h.Memory.Content == "" {
			mem, err := e.store.GetMemory(ctx, agentID, h.Memory.ID)
			if err != nil {
				continue
			}
			h.Memory = *mem
		}
		out = append(out, h)
	}
	return out, nil
}

func (e *Engine) semanticSearch(ctx context.Context, opts storage.SearchOptions) ([]storage.SearchHit, error) {
	queryVec, err := e.provider.EmbedQuery(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	model := e.provider.Model()
	candidates, ok := e.cache.Get(opts.AgentID, model)
	if !ok {
		candidates, err = e.store.VectorCandidates(ctx, opts.AgentID, model)
		if err != nil {
			return nil, fmt.Errorf("search: vector candidates: %w", err)
		}
		e.cache.Set(opts.AgentID, model, candidates)
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{id: c.MemoryID, score: types.CosineSimilarity(queryVec, c.Vector)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	topK := defaultVectorTopK
	if len(ranked) < topK {
		topK = len(ranked)
	}
	ranked = ranked[:topK]

	hits := make([]storage.SearchHit, 0, len(ranked))
	for _, r := range ranked {
		hits = append(hits, storage.SearchHit{
			Memory:      types.Memory{ID: r.id},
			Score:       r.score,
			MatchReason: "semantic",
		})
	}
	return hits, nil
}

// fuseRRF combines two ranked hit lists using Reciprocal Rank Fusion,
// hydrating each surviving id once with whichever hit carries the fuller
// memory record (the lexical list, since semantic hits are id-only stubs).
func fuseRRF(lists ...[]storage.SearchHit) []storage.SearchHit {
	type accumulator struct {
		score   float64
		reasons map[string]bool
		hit     storage.SearchHit
		hasFull bool
	}
	acc := make(map[string]*accumulator)

	for _, list := range lists {
		for rank, hit := range list {
			id := hit.Memory.ID
			a, ok := acc[id]
			if !ok {
				a = &accumulator{reasons: make(map[string]bool)}
				acc[id] = a
			}
			a.score += 1.0 / float64(rrfK+rank+1)
			a.reasons[hit.MatchReason] = true
			if hit.Memory.Content != "" || !a.hasFull {
				a.hit = hit
				a.hasFull = hit.Memory.Content != ""
			}
		}
	}

	out := make([]storage.SearchHit, 0, len(acc))
	for id, a := range acc {
		reasonOrder := []string{"bm25", "like_fallback", "semantic"}
		joined := ""
		for _, r := range reasonOrder {
			if a.reasons[r] {
				if joined != "" {
					joined += "+"
				}
				joined += r
			}
		}
		hit := a.hit
		hit.Memory.ID = id
		hit.Score = a.score
		hit.MatchReason = joined
		out = append(out, hit)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func truncate(hits []storage.SearchHit, n int) []storage.SearchHit {
	if n > 0 && len(hits) > n {
		return hits[:n]
	}
	return hits
}
