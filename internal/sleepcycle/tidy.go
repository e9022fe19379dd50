package sleepcycle

import (
	"context"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

// archivalVitalityThreshold and minArchivalPriority implement spec §4.10.3
// step 1: only events (priority >= 3) below this vitality may be archived.
const archivalVitalityThreshold = 0.05
const minArchivalPriority = 3

// maxSnapshotsPerMemory is the default retention cap (spec §4.10.3 step 3).
const maxSnapshotsPerMemory = 10

// Tidy archives low-vitality event memories, cleans orphan paths, and
// prunes snapshot history, all inside one transaction (spec §4.10.3).
func (e *Engine) Tidy(ctx context.Context, agentID string) (*storage.TidyReport, error) {
	var report storage.TidyReport

	err := e.store.Atomic(ctx, func(tx storage.Store) error {
		candidates, err := tx.ListArchivalCandidates(ctx, agentID, archivalVitalityThreshold, minArchivalPriority)
		if err != nil {
			return err
		}
		for _, mem := range candidates {
			// Best-effort: a failed snapshot must not block archival.
			_ = tx.CreateSnapshot(ctx, &types.Snapshot{
				MemoryID: mem.ID, Content: mem.Content, ChangedBy: "tidy", Action: types.SnapshotDelete,
			})
			if err := tx.DeleteMemory(ctx, mem.AgentID, mem.ID); err != nil {
				return err
			}
			report.Archived++
		}

		orphanPaths, err := tx.DeleteOrphanPaths(ctx, agentID)
		if err != nil {
			return err
		}
		report.OrphansCleaned += orphanPaths

		pruned, err := tx.PruneSnapshots(ctx, agentID, maxSnapshotsPerMemory)
		if err != nil {
			return err
		}
		report.SnapshotsPruned = pruned

		return nil
	})
	if err != nil {
		return nil, err
	}

	// The embed-missing sweep runs outside the transaction above: it is
	// its own best-effort pass over whatever still lacks an embedding
	// (spec §3.5), not part of archival/orphan/snapshot atomicity.
	report.Embedded = e.embedMissing(ctx, agentID)

	return &report, nil
}
