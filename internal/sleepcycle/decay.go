package sleepcycle

import (
	"context"
	"math"
	"time"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

// decayWriteBackThreshold suppresses no-op writes for negligible vitality
// drift (spec §4.10.2: "update a row only if |new - old| > 0.001").
const decayWriteBackThreshold = 0.001

// belowThresholdVitality is the crossing point reported separately from
// ordinary decay (spec §4.10.2 "belowThreshold").
const belowThresholdVitality = 0.05

// Decay runs the Ebbinghaus forgetting curve over every priority>0 memory
// in scope (spec §4.10.2), wrapped in a single transaction.
func (e *Engine) Decay(ctx context.Context, agentID string) (*storage.DecayReport, error) {
	var report storage.DecayReport

	err := e.store.Atomic(ctx, func(tx storage.Store) error {
		candidates, err := tx.ListDecayCandidates(ctx, agentID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, mem := range candidates {
			newVitality := computeDecay(mem, now)
			if math.Abs(newVitality-mem.Vitality) <= decayWriteBackThreshold {
				continue
			}

			if err := tx.UpdateDecay(ctx, mem.AgentID, mem.ID, newVitality); err != nil {
				return err
			}
			report.Updated++
			if newVitality < mem.Vitality {
				report.Decayed++
			}
			if mem.Vitality >= belowThresholdVitality && newVitality < belowThresholdVitality {
				report.BelowThreshold++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// computeDecay applies the Ebbinghaus forgetting curve. The reference time
// prefers the last recall, so oft-recalled memories decay more slowly
// (spec §4.10.2).
func computeDecay(mem types.Memory, now time.Time) float64 {
	reference := mem.CreatedAt
	if mem.LastAccessed != nil {
		reference = *mem.LastAccessed
	}
	deltaDays := now.Sub(reference).Hours() / 24

	stability := mem.Stability
	if stability < 0.01 {
		stability = 0.01
	}
	retention := math.Exp(-deltaDays / stability)

	floor := types.VitalityFloor(mem.Priority)
	if retention < floor {
		return floor
	}
	return retention
}
