package storage

import (
	"context"

	"github.com/agentmem/engine/pkg/types"
)

// Store is the full durable-storage contract for the agent memory engine:
// schema lifecycle, memory/path/link/snapshot/embedding CRUD, the full-text
// projection, and graph traversal. A single concrete type (sqlite.Store or
// postgres.Store) implements all of it — the interface is kept whole,
// rather than segregated per the teacher's Phase-1/2/3 split, because every
// sleep-cycle phase needs transactional access across entities at once.
type Store interface {
	MemoryStore
	PathStore
	LinkStore
	SnapshotStore
	EmbeddingStore
	SearchProvider
	GraphProvider

	MaintenanceStore
	StatsProvider

	// Reindex drops and rebuilds the full-text projection from current
	// memory content using the indexing tokenizer (spec §9 "Reindex").
	Reindex(ctx context.Context, agentID string) error

	// SchemaVersion returns the currently recorded schema_meta version.
	SchemaVersion(ctx context.Context) (int, error)

	// Atomic runs fn inside a single serializable transaction, passing a
	// Store handle scoped to that transaction. Every sleep-cycle phase is
	// wrapped in exactly one Atomic call (spec §4.12): a crash mid-phase
	// leaves the store in the pre-phase state.
	Atomic(ctx context.Context, fn func(tx Store) error) error

	Close() error
}

// MaintenanceStore backs the sleep-cycle phases with the bulk queries they
// need that don't belong on the narrower per-entity interfaces above.
type MaintenanceStore interface {
	// ListDecayCandidates returns memories with priority > 0 in scope
	// (agentID may be empty to span all tenants).
	ListDecayCandidates(ctx context.Context, agentID string) ([]types.Memory, error)

	// UpdateDecay writes back a recomputed vitality for a memory, used only
	// by the decay phase (it bypasses RecordAccess's growth semantics).
	UpdateDecay(ctx context.Context, agentID, id string, vitality float64) error

	// ListArchivalCandidates returns memories with vitality < threshold and
	// priority >= minPriority (spec §4.10.3: only P3/event memories archive).
	ListArchivalCandidates(ctx context.Context, agentID string, threshold float64, minPriority int) ([]types.Memory, error)

	// ListEmptyContent returns memories whose trimmed content is empty,
	// used by the governance phase.
	ListEmptyContent(ctx context.Context, agentID string) ([]types.Memory, error)
}

// MemoryStore provides CRUD and dedup-aware creation for memories.
type MemoryStore interface {
	// CreateMemory inserts mem. If (hash, agent_id) already exists, it is a
	// no-op: the existing memory's ID is returned and created is false.
	CreateMemory(ctx context.Context, mem *types.Memory) (created bool, err error)

	GetMemory(ctx context.Context, agentID, id string) (*types.Memory, error)

	// FindByHash looks up a memory by its (hash, agent_id) key.
	FindByHash(ctx context.Context, agentID, hash string) (*types.Memory, error)

	ListMemories(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Memory], error)

	// UpdateContent overwrites a memory's content (and recomputes its hash),
	// mirroring the change into the full-text index in the same transaction.
	UpdateContent(ctx context.Context, agentID, id, content string) error

	// RecordAccess applies the access-strengthening primitive (spec §4.3):
	// stability *= growth (capped at 999999), vitality *= 1.2 (capped at
	// 1.0), access_count++, last_accessed = now.
	RecordAccess(ctx context.Context, agentID, id string, growth float64) error

	// SetVitality overwrites vitality directly (used by forget's soft path).
	SetVitality(ctx context.Context, agentID, id string, vitality float64) error

	// DeleteMemory hard-deletes a memory and cascades to its paths, links,
	// snapshots, embeddings, and full-text row.
	DeleteMemory(ctx context.Context, agentID, id string) error
}

// PathStore manages URI paths onto memories.
type PathStore interface {
	CreatePath(ctx context.Context, p *types.Path) error
	GetPathByURI(ctx context.Context, agentID, uri string) (*types.Path, error)
	ListPathsByPrefix(ctx context.Context, agentID, uriPrefix string) ([]types.Path, error)
	DeleteOrphanPaths(ctx context.Context, agentID string) (int, error)
}

// LinkStore manages directed typed edges between memories.
type LinkStore interface {
	CreateLink(ctx context.Context, l *types.Link) error
	ListLinks(ctx context.Context, agentID, memoryID string) ([]types.Link, error)
	DeleteOrphanLinks(ctx context.Context, agentID string) (int, error)
}

// SnapshotStore manages the append-only history of a memory's content.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, s *types.Snapshot) error
	ListSnapshots(ctx context.Context, agentID, memoryID string) ([]types.Snapshot, error)
	GetSnapshot(ctx context.Context, agentID, snapshotID string) (*types.Snapshot, error)
	// PruneSnapshots keeps only the newest `keep` snapshots per memory
	// (by created_at DESC), returning the number of rows deleted.
	PruneSnapshots(ctx context.Context, agentID string, keep int) (int, error)
}

// EmbeddingStore manages dense vectors attached to memories.
type EmbeddingStore interface {
	UpsertEmbedding(ctx context.Context, e *types.Embedding) error
	ListEmbeddings(ctx context.Context, agentID, model string) ([]types.Embedding, error)
	// MemoriesMissingEmbedding returns memory IDs for agentID that have no
	// row in embeddings for model, used by the background embed sweep.
	MemoriesMissingEmbedding(ctx context.Context, agentID, model string) ([]string, error)
}

// SearchProvider provides lexical and vector retrieval over memory content.
type SearchProvider interface {
	// BM25Search runs the tokenized OR-query against the full-text index.
	// It never returns a raw FTS error: malformed queries fall back to a
	// LIKE scan transparently (spec §4.5).
	BM25Search(ctx context.Context, opts SearchOptions) ([]SearchHit, error)

	// VectorCandidates returns every stored embedding for (agentID, model),
	// used by the hybrid search's in-memory cosine ranking.
	VectorCandidates(ctx context.Context, agentID, model string) ([]types.Embedding, error)
}

// GraphProvider performs bounded BFS traversal over the links table.
type GraphProvider interface {
	Traverse(ctx context.Context, agentID, startID string, maxHops int) ([]TraversalResult, error)
}

// StatsProvider backs the `status` tool (spec §6.3).
type StatsProvider interface {
	Stats(ctx context.Context, agentID string) (*StatusReport, error)
}
