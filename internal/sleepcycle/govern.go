package sleepcycle

import (
	"context"

	"github.com/agentmem/engine/internal/storage"
)

// Govern runs the integrity sweep: orphan paths, orphan links, and
// empty-content memories, all inside one transaction (spec §4.10.4).
func (e *Engine) Govern(ctx context.Context, agentID string) (*storage.GovernReport, error) {
	var report storage.GovernReport

	err := e.store.Atomic(ctx, func(tx storage.Store) error {
		orphanPaths, err := tx.DeleteOrphanPaths(ctx, agentID)
		if err != nil {
			return err
		}
		report.OrphanPaths = orphanPaths

		orphanLinks, err := tx.DeleteOrphanLinks(ctx, agentID)
		if err != nil {
			return err
		}
		report.OrphanLinks = orphanLinks

		empties, err := tx.ListEmptyContent(ctx, agentID)
		if err != nil {
			return err
		}
		for _, mem := range empties {
			if err := tx.DeleteMemory(ctx, mem.AgentID, mem.ID); err != nil {
				return err
			}
			report.EmptyMemories++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}
