package postgres

import (
	"context"
	"fmt"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

// Traverse performs a bounded breadth-first walk over the links table
// starting at startID, following edges in either direction up to maxHops
// (spec §4.9). Each node is visited at most once; the starting memory itself
// is not included in the result.
func (s *Store) Traverse(ctx context.Context, agentID, startID string, maxHops int) ([]storage.TraversalResult, error) {
	if maxHops <= 0 {
		maxHops = 1
	}

	visited := map[string]bool{startID: true}
	frontier := []string{startID}
	var out []storage.TraversalResult

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		next := make([]string, 0)
		for _, id := range frontier {
			neighbors, err := s.neighborsOf(ctx, agentID, id)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n.id] {
					continue
				}
				visited[n.id] = true
				mem, err := s.GetMemory(ctx, agentID, n.id)
				if err != nil {
					return nil, fmt.Errorf("postgres: traverse: load %s: %w", n.id, err)
				}
				out = append(out, storage.TraversalResult{
					ID:       n.id,
					Hop:      hop,
					Relation: n.relation,
					Memory:   mem,
				})
				next = append(next, n.id)
			}
		}
		frontier = next
	}
	return out, nil
}

type neighborEdge struct {
	id       string
	relation types.Relation
}

func (s *Store) neighborsOf(ctx context.Context, agentID, id string) ([]neighborEdge, error) {
	rows, err := s.tx().QueryContext(ctx, rebind(`
		SELECT target_id AS id, relation FROM links WHERE agent_id = ? AND source_id = ?
		UNION
		SELECT source_id AS id, relation FROM links WHERE agent_id = ? AND target_id = ?`),
		agentID, id, agentID, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: neighbors: %w", err)
	}
	defer rows.Close()

	var out []neighborEdge
	for rows.Next() {
		var e neighborEdge
		var rel string
		if err := rows.Scan(&e.id, &rel); err != nil {
			return nil, err
		}
		e.relation = types.Relation(rel)
		out = append(out, e)
	}
	return out, rows.Err()
}
