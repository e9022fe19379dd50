package sqlite

import (
	"context"
	"fmt"

	"github.com/agentmem/engine/pkg/types"
)

// ListDecayCandidates returns every non-permanent memory (priority > 0) in
// scope for the decay phase (spec §4.10.2). P0 memories never decay and are
// excluded at the query level rather than filtered after load.
func (s *Store) ListDecayCandidates(ctx context.Context, agentID string) ([]types.Memory, error) {
	q := `SELECT ` + memoryColumns + ` FROM memories WHERE priority > 0`
	args := []any{}
	if agentID != "" {
		q += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	rows, err := s.tx().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list decay candidates: %w", err)
	}
	defer rows.Close()

	var out []types.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *mem)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDecay(ctx context.Context, agentID, id string, vitality float64) error {
	res, err := s.tx().ExecContext(ctx,
		`UPDATE memories SET vitality = ?, updated_at = ? WHERE id = ? AND agent_id = ?`,
		vitality, now(), id, agentID)
	if err != nil {
		return fmt.Errorf("sqlite: update decay: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("sqlite: update decay: memory %s not found", id)
	}
	return nil
}

// ListArchivalCandidates returns memories below threshold vitality whose
// priority is at least minPriority (spec §4.10.3: only P3/event-level
// memories are eligible for archival, never P0/P1).
func (s *Store) ListArchivalCandidates(ctx context.Context, agentID string, threshold float64, minPriority int) ([]types.Memory, error) {
	q := `SELECT ` + memoryColumns + ` FROM memories WHERE vitality < ? AND priority >= ?`
	args := []any{threshold, minPriority}
	if agentID != "" {
		q += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	rows, err := s.tx().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list archival candidates: %w", err)
	}
	defer rows.Close()

	var out []types.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *mem)
	}
	return out, rows.Err()
}

// ListEmptyContent returns memories whose content is empty once trimmed of
// whitespace, for the governance phase's integrity sweep (spec §4.10.4).
func (s *Store) ListEmptyContent(ctx context.Context, agentID string) ([]types.Memory, error) {
	q := `SELECT ` + memoryColumns + ` FROM memories WHERE TRIM(content) = ''`
	args := []any{}
	if agentID != "" {
		q += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	rows, err := s.tx().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list empty content: %w", err)
	}
	defer rows.Close()

	var out []types.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *mem)
	}
	return out, rows.Err()
}
