package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

func (s *Store) CreatePath(ctx context.Context, p *types.Path) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}

	mem, err := s.GetMemory(ctx, p.AgentID, p.MemoryID)
	if err != nil {
		return fmt.Errorf("postgres: create path: owning memory: %w", err)
	}
	if mem.AgentID != p.AgentID {
		return storage.ErrCrossAgent
	}

	_, err = s.tx().ExecContext(ctx, rebind(`
		INSERT INTO paths (id, memory_id, agent_id, uri, alias, domain, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.MemoryID, p.AgentID, p.URI, nullString(p.Alias), p.Domain, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("postgres: insert path: %w", err)
	}
	return nil
}

func scanPath(row interface{ Scan(...any) error }) (*types.Path, error) {
	var p types.Path
	var alias sql.NullString
	if err := row.Scan(&p.ID, &p.MemoryID, &p.AgentID, &p.URI, &alias, &p.Domain, &p.CreatedAt); err != nil {
		return nil, err
	}
	if alias.Valid {
		p.Alias = alias.String
	}
	return &p, nil
}

const pathColumns = `id, memory_id, agent_id, uri, alias, domain, created_at`

func (s *Store) GetPathByURI(ctx context.Context, agentID, uri string) (*types.Path, error) {
	row := s.tx().QueryRowContext(ctx,
		rebind(`SELECT `+pathColumns+` FROM paths WHERE agent_id = ? AND uri = ?`), agentID, uri)
	p, err := scanPath(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get path by uri: %w", err)
	}
	return p, nil
}

func (s *Store) ListPathsByPrefix(ctx context.Context, agentID, uriPrefix string) ([]types.Path, error) {
	rows, err := s.tx().QueryContext(ctx,
		rebind(`SELECT `+pathColumns+` FROM paths WHERE agent_id = ? AND (uri = ? OR uri LIKE ?) ORDER BY uri`),
		agentID, uriPrefix, strings.TrimSuffix(uriPrefix, "/")+"/%")
	if err != nil {
		return nil, fmt.Errorf("postgres: list paths by prefix: %w", err)
	}
	defer rows.Close()

	var out []types.Path
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOrphanPaths(ctx context.Context, agentID string) (int, error) {
	q := `DELETE FROM paths WHERE memory_id NOT IN (SELECT id FROM memories)`
	args := []any{}
	if agentID != "" {
		q += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	res, err := s.tx().ExecContext(ctx, rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete orphan paths: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
