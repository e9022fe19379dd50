package rerank

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/agentmem/engine/internal/storage"
)

// priorityMultiplier maps a memory's priority tier to the local reranker's
// boost factor (spec §4.8: "{4, 3, 2, 1}[priority]").
var priorityMultiplier = [4]float64{4, 3, 2, 1}

// ExternalReranker is the optional best-effort provider contract: given a
// query and candidate contents, return a relevance score per surviving
// index. A failure here never aborts reranking — the local pass runs
// regardless (spec §4.8 "on failure the provider is bypassed").
type ExternalReranker interface {
	Rerank(ctx context.Context, query string, contents []string) ([]RerankedIndex, error)
}

// RerankedIndex pairs a candidate's original index with its external score.
type RerankedIndex struct {
	Index           int
	RelevanceScore  float64
}

// Reranker applies the intent-driven local reranking pass, optionally
// preceded by an external provider pass (spec §4.8).
type Reranker struct {
	external ExternalReranker
	logger   *log.Logger
}

func New(external ExternalReranker, logger *log.Logger) *Reranker {
	if logger == nil {
		logger = log.Default()
	}
	return &Reranker{external: external, logger: logger}
}

// Rerank classifies query's intent, optionally applies the external
// reranker, then always applies the local reranker, sorts descending, and
// truncates to the intent's hard limit.
func (r *Reranker) Rerank(ctx context.Context, query string, hits []storage.SearchHit) ([]storage.SearchHit, Classification) {
	classification := Classify(query)
	strategy := StrategyFor(classification.Intent)

	hits = r.applyExternal(ctx, query, hits)
	hits = applyLocal(hits, strategy)

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if strategy.HardLimit > 0 && len(hits) > strategy.HardLimit {
		hits = hits[:strategy.HardLimit]
	}
	return hits, classification
}

func (r *Reranker) applyExternal(ctx context.Context, query string, hits []storage.SearchHit) []storage.SearchHit {
	if r.external == nil {
		return hits
	}

	contents := make([]string, len(hits))
	for i, h := range hits {
		contents[i] = h.Memory.Content
	}

	scored, err := r.external.Rerank(ctx, query, contents)
	if err != nil {
		r.logger.Printf("rerank: external provider failed, falling back to local pass: %v", err)
		return hits
	}

	out := make([]storage.SearchHit, 0, len(scored))
	for _, s := range scored {
		if s.Index < 0 || s.Index >= len(hits) {
			continue
		}
		h := hits[s.Index]
		h.Score = s.RelevanceScore
		h.MatchReason = fmt.Sprintf("%s+rerank", h.MatchReason)
		out = append(out, h)
	}
	return out
}

func applyLocal(hits []storage.SearchHit, strategy Strategy) []storage.SearchHit {
	now := time.Now().UTC()
	out := make([]storage.SearchHit, len(hits))
	for i, h := range hits {
		score := h.Score

		if strategy.BoostPriority {
			p := h.Memory.Priority
			if p < 0 {
				p = 0
			}
			if p > 3 {
				p = 3
			}
			score *= priorityMultiplier[p]
		}

		if strategy.BoostRecent {
			days := now.Sub(h.Memory.UpdatedAt).Hours() / 24
			if days < 0 {
				days = 0
			}
			score *= math.Max(0.1, 1/(1+0.1*days))
		}

		score *= math.Max(0.1, h.Memory.Vitality)

		h.Score = score
		out[i] = h
	}
	return out
}
