// Package storage defines the composable persistence interfaces for the
// agent memory engine and their shared option/result types. Concrete
// backends (sqlite, postgres) live in subpackages.
package storage

import "github.com/agentmem/engine/pkg/types"

// ListOptions filters and paginates a memory listing (spec §4.3 listMemories).
type ListOptions struct {
	AgentID     string
	Type        types.MemoryType
	Priority    *int
	MinVitality *float64
	Page        int
	Limit       int
	SortBy      string // "priority" | "updated_at"; default "priority"
	SortOrder   string // "asc" | "desc"
}

// Normalize fills in the spec-mandated defaults: page 1, limit 20, default
// order priority ASC, updated_at DESC.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.SortBy == "" {
		o.SortBy = "priority"
	}
	if o.SortOrder == "" {
		o.SortOrder = "asc"
	}
}

// Offset returns the row offset implied by Page/Limit.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// PaginatedResult is a generic page of results with enough metadata for the
// caller to decide whether to fetch another page.
type PaginatedResult[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// SearchOptions parametrizes BM25 / vector / hybrid search.
type SearchOptions struct {
	AgentID       string
	Query         string
	Limit         int
	Offset        int
	MinVitality   float64
	FuzzyFallback bool
}

// Normalize applies the spec's search defaults (limit 10).
func (o *SearchOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = 10
	}
}

// SearchHit pairs a retrieved memory with its score and the signal(s) that
// produced it, e.g. "bm25", "semantic", "bm25+semantic".
type SearchHit struct {
	Memory      types.Memory `json:"memory"`
	Score       float64      `json:"score"`
	MatchReason string       `json:"match_reason"`
}

// TraversalResult is one node discovered by a bounded BFS over the links
// table (spec §4.9).
type TraversalResult struct {
	ID       string        `json:"id"`
	Hop      int           `json:"hop"`
	Relation types.Relation `json:"relation"`
	Memory   *types.Memory `json:"memory,omitempty"`
}

// DecayReport summarizes one run of the decay phase (spec §4.10.2).
type DecayReport struct {
	Updated        int `json:"updated"`
	Decayed        int `json:"decayed"`
	BelowThreshold int `json:"below_threshold"`
}

// TidyReport summarizes one run of the tidy phase (spec §4.10.3).
type TidyReport struct {
	Archived        int `json:"archived"`
	OrphansCleaned  int `json:"orphans_cleaned"`
	SnapshotsPruned int `json:"snapshots_pruned"`
	Embedded        int `json:"embedded"`
}

// GovernReport summarizes one run of the governance phase (spec §4.10.4).
type GovernReport struct {
	OrphanPaths   int `json:"orphan_paths"`
	OrphanLinks   int `json:"orphan_links"`
	EmptyMemories int `json:"empty_memories"`
}

// StatusReport backs the `status` tool (spec §6.3).
type StatusReport struct {
	CountsByType     map[types.MemoryType]int `json:"counts_by_type"`
	CountsByPriority map[int]int              `json:"counts_by_priority"`
	TotalPaths       int                      `json:"total_paths"`
	TotalLinks       int                      `json:"total_links"`
	TotalSnapshots   int                      `json:"total_snapshots"`
	LowVitalityCount int                      `json:"low_vitality_count"`
	TopAccessed      map[types.MemoryType][]string `json:"top_accessed,omitempty"`
}
