package postgres

import (
	"context"
	"fmt"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

// lowVitalityThreshold matches the crossing point the decay phase reports
// separately (spec §4.10.2 "belowThreshold"), so `status`'s count lines up
// with what the next sleep cycle would flag.
const lowVitalityThreshold = 0.05

// topAccessedPerType caps the per-type "most accessed" list the status tool
// reports (spec §9 access-count analytics).
const topAccessedPerType = 5

// Stats aggregates the counters the `status` tool reports (spec §6.3).
func (s *Store) Stats(ctx context.Context, agentID string) (*storage.StatusReport, error) {
	report := &storage.StatusReport{
		CountsByType:     make(map[types.MemoryType]int),
		CountsByPriority: make(map[int]int),
		TopAccessed:      make(map[types.MemoryType][]string),
	}

	typeRows, err := s.tx().QueryContext(ctx,
		rebind(`SELECT type, COUNT(*) FROM memories WHERE agent_id = ? GROUP BY type`), agentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats by type: %w", err)
	}
	for typeRows.Next() {
		var t string
		var n int
		if err := typeRows.Scan(&t, &n); err != nil {
			typeRows.Close()
			return nil, err
		}
		report.CountsByType[types.MemoryType(t)] = n
	}
	typeRows.Close()
	if err := typeRows.Err(); err != nil {
		return nil, err
	}

	priorityRows, err := s.tx().QueryContext(ctx,
		rebind(`SELECT priority, COUNT(*) FROM memories WHERE agent_id = ? GROUP BY priority`), agentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats by priority: %w", err)
	}
	for priorityRows.Next() {
		var p, n int
		if err := priorityRows.Scan(&p, &n); err != nil {
			priorityRows.Close()
			return nil, err
		}
		report.CountsByPriority[p] = n
	}
	priorityRows.Close()
	if err := priorityRows.Err(); err != nil {
		return nil, err
	}

	if err := s.tx().QueryRowContext(ctx,
		rebind(`SELECT COUNT(*) FROM paths WHERE agent_id = ?`), agentID).Scan(&report.TotalPaths); err != nil {
		return nil, fmt.Errorf("postgres: stats total paths: %w", err)
	}
	if err := s.tx().QueryRowContext(ctx,
		rebind(`SELECT COUNT(*) FROM links WHERE agent_id = ?`), agentID).Scan(&report.TotalLinks); err != nil {
		return nil, fmt.Errorf("postgres: stats total links: %w", err)
	}
	if err := s.tx().QueryRowContext(ctx, rebind(`
		SELECT COUNT(*) FROM snapshots s JOIN memories m ON m.id = s.memory_id
		WHERE m.agent_id = ?`), agentID).Scan(&report.TotalSnapshots); err != nil {
		return nil, fmt.Errorf("postgres: stats total snapshots: %w", err)
	}
	if err := s.tx().QueryRowContext(ctx,
		rebind(`SELECT COUNT(*) FROM memories WHERE agent_id = ? AND vitality < ?`),
		agentID, lowVitalityThreshold).Scan(&report.LowVitalityCount); err != nil {
		return nil, fmt.Errorf("postgres: stats low vitality: %w", err)
	}

	for memType := range report.CountsByType {
		ids, err := s.topAccessedIDs(ctx, agentID, memType)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			report.TopAccessed[memType] = ids
		}
	}

	return report, nil
}

func (s *Store) topAccessedIDs(ctx context.Context, agentID string, memType types.MemoryType) ([]string, error) {
	rows, err := s.tx().QueryContext(ctx, rebind(`
		SELECT id FROM memories
		WHERE agent_id = ? AND type = ?
		ORDER BY access_count DESC, updated_at DESC
		LIMIT ?`), agentID, string(memType), topAccessedPerType)
	if err != nil {
		return nil, fmt.Errorf("postgres: top accessed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
