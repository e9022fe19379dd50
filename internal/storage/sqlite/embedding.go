package sqlite

import (
	"context"
	"fmt"

	"github.com/agentmem/engine/pkg/types"
)

// UpsertEmbedding stores the packed vector for (agentID, memoryID, model),
// replacing any prior vector for the same model (spec §4.7: re-embedding
// on content update overwrites rather than versions).
func (s *Store) UpsertEmbedding(ctx context.Context, e *types.Embedding) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	e.UpdatedAt = now()

	_, err := s.tx().ExecContext(ctx, `
		INSERT INTO embeddings (agent_id, memory_id, model, dim, vector, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id, memory_id, model) DO UPDATE SET
			dim = excluded.dim,
			vector = excluded.vector,
			updated_at = excluded.updated_at`,
		e.AgentID, e.MemoryID, e.Model, e.Dim, types.PackVector(e.Vector), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upsert embedding: %w", err)
	}
	return nil
}

func (s *Store) ListEmbeddings(ctx context.Context, agentID, model string) ([]types.Embedding, error) {
	rows, err := s.tx().QueryContext(ctx, `
		SELECT agent_id, memory_id, model, dim, vector, created_at, updated_at
		FROM embeddings WHERE agent_id = ? AND model = ?`, agentID, model)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list embeddings: %w", err)
	}
	defer rows.Close()

	var out []types.Embedding
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEmbedding(row interface{ Scan(...any) error }) (*types.Embedding, error) {
	var e types.Embedding
	var blob []byte
	if err := row.Scan(&e.AgentID, &e.MemoryID, &e.Model, &e.Dim, &blob, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	vec, err := types.UnpackVector(blob, e.Dim)
	if err != nil {
		return nil, fmt.Errorf("sqlite: unpack embedding vector: %w", err)
	}
	e.Vector = vec
	return &e, nil
}

// MemoriesMissingEmbedding lists memory IDs for agentID with no row yet in
// embeddings for the given model, so the tidy phase's embed-missing sweep
// can backfill them.
func (s *Store) MemoriesMissingEmbedding(ctx context.Context, agentID, model string) ([]string, error) {
	const limit = 100
	rows, err := s.tx().QueryContext(ctx, `
		SELECT m.id FROM memories m
		WHERE m.agent_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM embeddings e
			WHERE e.agent_id = m.agent_id AND e.memory_id = m.id AND e.model = ?
		)
		ORDER BY m.updated_at DESC
		LIMIT ?`, agentID, model, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: memories missing embedding: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
