package postgres

import (
	"context"
	"fmt"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

func (s *Store) CreateLink(ctx context.Context, l *types.Link) error {
	if !l.Relation.IsValid() {
		return fmt.Errorf("%w: unknown relation %q", storage.ErrInvalidInput, l.Relation)
	}
	if l.Weight == 0 {
		l.Weight = 1.0
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now()
	}

	src, err := s.GetMemory(ctx, l.AgentID, l.SourceID)
	if err != nil {
		return fmt.Errorf("postgres: create link: source: %w", err)
	}
	dst, err := s.GetMemory(ctx, l.AgentID, l.TargetID)
	if err != nil {
		return fmt.Errorf("postgres: create link: target: %w", err)
	}
	if src.AgentID != dst.AgentID {
		return storage.ErrCrossAgent
	}

	_, err = s.tx().ExecContext(ctx, rebind(`
		INSERT INTO links (agent_id, source_id, target_id, relation, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		l.AgentID, l.SourceID, l.TargetID, string(l.Relation), l.Weight, l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("postgres: insert link: %w", err)
	}
	return nil
}

func (s *Store) ListLinks(ctx context.Context, agentID, memoryID string) ([]types.Link, error) {
	rows, err := s.tx().QueryContext(ctx, rebind(`
		SELECT agent_id, source_id, target_id, relation, weight, created_at
		FROM links WHERE agent_id = ? AND (source_id = ? OR target_id = ?)`),
		agentID, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list links: %w", err)
	}
	defer rows.Close()

	var out []types.Link
	for rows.Next() {
		var l types.Link
		var rel string
		if err := rows.Scan(&l.AgentID, &l.SourceID, &l.TargetID, &rel, &l.Weight, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Relation = types.Relation(rel)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOrphanLinks(ctx context.Context, agentID string) (int, error) {
	q := `DELETE FROM links WHERE (source_id NOT IN (SELECT id FROM memories) OR target_id NOT IN (SELECT id FROM memories))`
	args := []any{}
	if agentID != "" {
		q += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	res, err := s.tx().ExecContext(ctx, rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete orphan links: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
