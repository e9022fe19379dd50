package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

func (s *Store) CreateSnapshot(ctx context.Context, snap *types.Snapshot) error {
	if snap.ID == "" {
		snap.ID = newID()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = now()
	}
	_, err := s.tx().ExecContext(ctx, `
		INSERT INTO snapshots (id, memory_id, content, changed_by, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.MemoryID, snap.Content, nullString(snap.ChangedBy), string(snap.Action), snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: insert snapshot: %w", err)
	}
	return nil
}

func scanSnapshot(row interface{ Scan(...any) error }) (*types.Snapshot, error) {
	var snap types.Snapshot
	var changedBy sql.NullString
	var action string
	if err := row.Scan(&snap.ID, &snap.MemoryID, &snap.Content, &changedBy, &action, &snap.CreatedAt); err != nil {
		return nil, err
	}
	snap.Action = types.SnapshotAction(action)
	if changedBy.Valid {
		snap.ChangedBy = changedBy.String
	}
	return &snap, nil
}

// ListSnapshots lists snapshots for memoryID, scoped to agentID via a join
// back to memories (snapshots carry no agent_id of their own — they are
// reached only through their owning memory).
func (s *Store) ListSnapshots(ctx context.Context, agentID, memoryID string) ([]types.Snapshot, error) {
	rows, err := s.tx().QueryContext(ctx, `
		SELECT s.id, s.memory_id, s.content, s.changed_by, s.action, s.created_at
		FROM snapshots s
		JOIN memories m ON m.id = s.memory_id
		WHERE m.agent_id = ? AND s.memory_id = ?
		ORDER BY s.created_at DESC`, agentID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []types.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func (s *Store) GetSnapshot(ctx context.Context, agentID, snapshotID string) (*types.Snapshot, error) {
	row := s.tx().QueryRowContext(ctx, `
		SELECT s.id, s.memory_id, s.content, s.changed_by, s.action, s.created_at
		FROM snapshots s
		JOIN memories m ON m.id = s.memory_id
		WHERE m.agent_id = ? AND s.id = ?`, agentID, snapshotID)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get snapshot: %w", err)
	}
	return snap, nil
}

// PruneSnapshots keeps only the newest `keep` snapshots per memory,
// ordered by created_at DESC (spec §3.4, default keep=10).
func (s *Store) PruneSnapshots(ctx context.Context, agentID string, keep int) (int, error) {
	if keep < 0 {
		keep = 10
	}
	rows, err := s.tx().QueryContext(ctx, `
		SELECT DISTINCT s.memory_id FROM snapshots s
		JOIN memories m ON m.id = s.memory_id
		WHERE m.agent_id = ?`, agentID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune snapshots: list memories: %w", err)
	}
	var memoryIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		memoryIDs = append(memoryIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	total := 0
	for _, memID := range memoryIDs {
		res, err := s.tx().ExecContext(ctx, `
			DELETE FROM snapshots
			WHERE memory_id = ?
			AND id NOT IN (
				SELECT id FROM snapshots WHERE memory_id = ? ORDER BY created_at DESC LIMIT ?
			)`, memID, memID, keep)
		if err != nil {
			return total, fmt.Errorf("sqlite: prune snapshots for %s: %w", memID, err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}
