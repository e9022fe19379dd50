// Package sleepcycle implements the four maintenance phases — sync, decay,
// tidy, govern — plus the boot loader (spec §4.10).
package sleepcycle

import (
	"context"
	"fmt"

	"github.com/agentmem/engine/internal/embedding"
	"github.com/agentmem/engine/internal/guard"
	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

// Engine runs the sleep-cycle phases against a Store, each wrapped in
// exactly one Atomic transaction (spec §4.12). provider and cache may both
// be nil, in which case embedding production is skipped entirely.
type Engine struct {
	store    storage.Store
	provider embedding.Provider
	cache    *embedding.CandidateCache
}

func New(store storage.Store, provider embedding.Provider, cache *embedding.CandidateCache) *Engine {
	return &Engine{store: store, provider: provider, cache: cache}
}

// SyncInput is one capture/merge request fed to the sync phase.
type SyncInput struct {
	types.WriteRequest
}

// SyncResult records the guard decision applied to one input and the id of
// the memory it resolved to.
type SyncResult struct {
	Decision types.GuardDecision
	MemoryID string
}

// Sync applies the Write Guard to each item and executes its decision, all
// inside one transaction: either the whole batch commits or none does
// (spec §4.10.1).
func (e *Engine) Sync(ctx context.Context, items []SyncInput) ([]SyncResult, error) {
	var results []SyncResult

	err := e.store.Atomic(ctx, func(tx storage.Store) error {
		g := guard.New(tx)
		results = make([]SyncResult, 0, len(items))

		for _, item := range items {
			decision, err := g.Classify(ctx, item.WriteRequest)
			if err != nil {
				return fmt.Errorf("sleepcycle: sync classify: %w", err)
			}

			id, err := applyDecision(ctx, tx, item.WriteRequest, decision)
			if err != nil {
				return fmt.Errorf("sleepcycle: sync apply: %w", err)
			}
			results = append(results, SyncResult{Decision: *decision, MemoryID: id})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Embedding production is opportunistic, never on the critical write
	// path (spec §4.12, §9): it runs after the transaction has committed
	// and never fails Sync.
	for i, result := range results {
		if result.Decision.Action == types.ActionSkip {
			continue
		}
		e.embedOpportunistic(ctx, items[i].AgentID, result.MemoryID)
	}

	return results, nil
}

// embedOpportunistic produces and upserts an embedding for a single memory
// right after a successful write (spec §3.5). Best-effort: any failure
// (provider down, circuit open, store error) is swallowed since the write
// itself already succeeded.
func (e *Engine) embedOpportunistic(ctx context.Context, agentID, memoryID string) {
	if e.provider == nil {
		return
	}
	mem, err := e.store.GetMemory(ctx, agentID, memoryID)
	if err != nil {
		return
	}
	vec, err := e.provider.Embed(ctx, mem.Content)
	if err != nil {
		return
	}
	model := e.provider.Model()
	if err := e.store.UpsertEmbedding(ctx, &types.Embedding{
		AgentID:  agentID,
		MemoryID: memoryID,
		Model:    model,
		Dim:      e.provider.Dimension(),
		Vector:   vec,
	}); err != nil {
		return
	}
	e.cache.Invalidate(agentID, model)
}

// embedMissing runs the background "embed missing for agent" sweep (spec
// §3.5): embeds and upserts every memory in a bounded batch that has no
// embedding yet for the provider's model, returning how many it produced.
func (e *Engine) embedMissing(ctx context.Context, agentID string) int {
	if e.provider == nil {
		return 0
	}
	ids, err := e.store.MemoriesMissingEmbedding(ctx, agentID, e.provider.Model())
	if err != nil {
		return 0
	}
	n := 0
	for _, id := range ids {
		mem, err := e.store.GetMemory(ctx, agentID, id)
		if err != nil {
			continue
		}
		vec, err := e.provider.Embed(ctx, mem.Content)
		if err != nil {
			continue
		}
		if err := e.store.UpsertEmbedding(ctx, &types.Embedding{
			AgentID:  agentID,
			MemoryID: id,
			Model:    e.provider.Model(),
			Dim:      e.provider.Dimension(),
			Vector:   vec,
		}); err != nil {
			continue
		}
		n++
	}
	if n > 0 {
		e.cache.Invalidate(agentID, e.provider.Model())
	}
	return n
}

func applyDecision(ctx context.Context, tx storage.Store, req types.WriteRequest, d *types.GuardDecision) (string, error) {
	switch d.Action {
	case types.ActionSkip:
		return d.ExistingID, nil

	case types.ActionAdd:
		mem := types.NewMemory(req.AgentID, req.Content, req.Type, req.Priority)
		mem.EmotionVal = req.EmotionVal
		mem.Source = req.Source
		if _, err := tx.CreateMemory(ctx, mem); err != nil {
			return "", err
		}
		if req.URI != "" {
			path := &types.Path{MemoryID: mem.ID, AgentID: req.AgentID, URI: req.URI}
			if domain, _, perr := types.ParseURI(req.URI, nil); perr == nil {
				path.Domain = domain
			}
			if err := tx.CreatePath(ctx, path); err != nil && err != storage.ErrConflict {
				return "", err
			}
		}
		return mem.ID, nil

	case types.ActionUpdate:
		existing, err := tx.GetMemory(ctx, req.AgentID, d.ExistingID)
		if err != nil {
			return "", err
		}
		if err := tx.CreateSnapshot(ctx, &types.Snapshot{
			MemoryID: existing.ID, Content: existing.Content, ChangedBy: "sync", Action: types.SnapshotUpdate,
		}); err != nil {
			return "", err
		}
		if err := tx.UpdateContent(ctx, req.AgentID, existing.ID, req.Content); err != nil {
			return "", err
		}
		return existing.ID, nil

	case types.ActionMerge:
		existing, err := tx.GetMemory(ctx, req.AgentID, d.ExistingID)
		if err != nil {
			return "", err
		}
		if err := tx.CreateSnapshot(ctx, &types.Snapshot{
			MemoryID: existing.ID, Content: existing.Content, ChangedBy: "sync", Action: types.SnapshotMerge,
		}); err != nil {
			return "", err
		}
		if err := tx.UpdateContent(ctx, req.AgentID, existing.ID, d.MergedContent); err != nil {
			return "", err
		}
		return existing.ID, nil

	default:
		return "", fmt.Errorf("sleepcycle: unknown guard action %q", d.Action)
	}
}
