// Package guard implements the Write Guard admission pipeline: the
// multi-stage decision procedure that classifies every incoming write as
// add, update, merge, or skip before any mutation happens (spec §4.4).
package guard

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/internal/tokenize"
	"github.com/agentmem/engine/pkg/types"
)

// maxSimilarityPrefix bounds how much of the incoming content feeds the
// similarity-merge tokenizer pass (spec §4.4 stage 3: "first 200 characters").
const maxSimilarityPrefix = 200

// maxSimilarityTokens caps the OR-query built from that prefix.
const maxSimilarityTokens = 8

// Guard classifies writes against a Store. It never mutates; the caller
// applies the returned decision.
type Guard struct {
	store storage.Store
}

func New(store storage.Store) *Guard {
	return &Guard{store: store}
}

// Classify runs the four-stage admission pipeline against req and returns
// the first matching decision.
func (g *Guard) Classify(ctx context.Context, req types.WriteRequest) (*types.GuardDecision, error) {
	if req.AgentID == "" {
		req.AgentID = "default"
	}
	if !req.Type.IsValid() {
		req.Type = types.TypeKnowledge
	}

	hash := types.ContentHash(req.Content)
	if existing, err := g.store.FindByHash(ctx, req.AgentID, hash); err == nil {
		return &types.GuardDecision{
			Action:     types.ActionSkip,
			Rationale:  "exact duplicate of an existing memory",
			ExistingID: existing.ID,
		}, nil
	} else if err != storage.ErrNotFound {
		return nil, fmt.Errorf("guard: exact-dup lookup: %w", err)
	}

	if req.URI != "" {
		if p, err := g.store.GetPathByURI(ctx, req.AgentID, req.URI); err == nil {
			return &types.GuardDecision{
				Action:     types.ActionUpdate,
				Rationale:  fmt.Sprintf("uri %q already anchors an existing memory", req.URI),
				ExistingID: p.MemoryID,
			}, nil
		} else if err != storage.ErrNotFound {
			return nil, fmt.Errorf("guard: uri-conflict lookup: %w", err)
		}
	}

	decision, err := g.similarityMerge(ctx, req)
	if err != nil {
		return nil, err
	}
	if decision != nil {
		return decision, nil
	}

	if failed := qualityGateFailures(req); len(failed) > 0 {
		return &types.GuardDecision{
			Action:         types.ActionSkip,
			Rationale:      "failed quality gate",
			FailedCriteria: failed,
		}, nil
	}

	return &types.GuardDecision{Action: types.ActionAdd, Rationale: "passed admission pipeline"}, nil
}

// similarityMerge implements spec §4.4 stage 3. It returns a nil decision
// (not an error) when no sufficiently-similar same-type match exists, so the
// caller falls through to the quality gate.
func (g *Guard) similarityMerge(ctx context.Context, req types.WriteRequest) (*types.GuardDecision, error) {
	prefix := req.Content
	if r := []rune(prefix); len(r) > maxSimilarityPrefix {
		prefix = string(r[:maxSimilarityPrefix])
	}
	tokens := tokenize.Tokenize(prefix)
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > maxSimilarityTokens {
		tokens = tokens[:maxSimilarityTokens]
	}

	hits, err := g.store.BM25Search(ctx, storage.SearchOptions{
		AgentID: req.AgentID,
		Query:   strings.Join(tokens, " "),
		Limit:   3,
	})
	if err != nil {
		return nil, fmt.Errorf("guard: similarity search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	best := hits[0]
	topRank := best.Score
	if topRank < 0 {
		topRank = -topRank
	}
	threshold := float64(len(tokens)) * 1.5

	if topRank > threshold && best.Memory.Type == req.Type {
		merged := best.Memory.Content + "\n\n[Updated] " + req.Content
		return &types.GuardDecision{
			Action:        types.ActionMerge,
			Rationale:     "similar same-type memory found via full-text match",
			ExistingID:    best.Memory.ID,
			MergedContent: merged,
		}, nil
	}
	return nil, nil
}

// qualityGateFailures runs the four-criterion quality gate (spec §4.4 stage
// 4), returning the list of criteria names that failed (empty = pass).
func qualityGateFailures(req types.WriteRequest) []string {
	var failed []string

	minLen := 8
	if req.Priority != nil && *req.Priority <= 1 {
		minLen = 4
	}
	if len(req.Content) < minLen {
		failed = append(failed, "specificity")
	}

	if !hasNonStopwordToken(req.Content) {
		failed = append(failed, "novelty")
	}

	if !isRelevant(req.Content) {
		failed = append(failed, "relevance")
	}

	if coherenceScore(req.Content) < 0.3 {
		failed = append(failed, "coherence")
	}

	return failed
}

func hasNonStopwordToken(content string) bool {
	return len(tokenize.Tokenize(content)) > 0
}

func isRelevant(content string) bool {
	if len(content) >= 15 {
		return true
	}
	hasCJK := false
	hasCapitalized := false
	hasDigit := false
	for _, r := range content {
		switch {
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			hasCJK = true
		case unicode.IsUpper(r):
			hasCapitalized = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if hasCJK || hasCapitalized || hasDigit {
		return true
	}
	if strings.Contains(content, "://") {
		return true
	}
	if strings.ContainsAny(content, "@#") {
		return true
	}
	return false
}

// coherenceScore starts at 1.0 and deducts for degenerate content shapes
// (spec §4.4 stage 4 "coherence").
func coherenceScore(content string) float64 {
	score := 1.0

	if len(content) > 20 && isAllCapsMonolith(content) {
		score -= 0.5
	}
	if len(content) > 20 && !strings.ContainsAny(content, " \t\n") && !containsPunctuation(content) {
		score -= 0.3
	}
	if hasLongRun(content, 10) {
		score -= 0.5
	}

	return score
}

func isAllCapsMonolith(s string) bool {
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if !unicode.IsUpper(r) || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func containsPunctuation(s string) bool {
	for _, r := range s {
		if unicode.IsPunct(r) {
			return true
		}
	}
	return false
}

func hasLongRun(s string, n int) bool {
	runes := []rune(s)
	if len(runes) < n {
		return false
	}
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
