// Package postgres implements storage.Store on PostgreSQL, the alternate
// backend named in SPEC_FULL's DOMAIN STACK for deployments that want a
// shared, networked store instead of sqlite's single embedded file — using
// lib/pq for the wire driver and pgvector-go for the embeddings column.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/internal/tokenize"
	"github.com/agentmem/engine/pkg/types"
)

// Store implements storage.Store backed by a PostgreSQL database. activeTx,
// when non-nil, means this value is a transaction-scoped view created by
// Atomic; every operation then runs against it instead of db.
type Store struct {
	db       *sql.DB
	activeTx *sql.Tx
}

// Open connects to a PostgreSQL database via dsn (a standard
// "postgres://..." connection string) and creates the schema idempotently.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaV3); err != nil {
		return fmt.Errorf("postgres: create schema: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schema_meta (key, value) VALUES ('version', $1)
		ON CONFLICT (key) DO NOTHING`, strconv.Itoa(schemaMetaVersion))
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) tx() execer {
	if s.activeTx != nil {
		return s.activeTx
	}
	return s.db
}

// Atomic runs fn inside one serializable PostgreSQL transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.activeTx != nil {
		return fn(s)
	}

	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	scoped := &Store{db: s.db, activeTx: sqlTx}
	if err := fn(scoped); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

// rebind rewrites sqlite-style `?` placeholders into PostgreSQL's
// positional `$1, $2, ...` form, so every query below reads identically to
// its sqlite counterpart and the two backends stay obviously in sync.
func rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// --- MemoryStore ---------------------------------------------------------

const memoryColumns = `id, content, type, priority, emotion_val, vitality, stability,
	access_count, last_accessed, created_at, updated_at, source, agent_id, hash`

func scanMemory(row interface{ Scan(...any) error }) (*types.Memory, error) {
	var mem types.Memory
	var memType string
	var lastAccessed sql.NullTime
	var source sql.NullString
	if err := row.Scan(
		&mem.ID, &mem.Content, &memType, &mem.Priority, &mem.EmotionVal,
		&mem.Vitality, &mem.Stability, &mem.AccessCount, &lastAccessed,
		&mem.CreatedAt, &mem.UpdatedAt, &source, &mem.AgentID, &mem.Hash,
	); err != nil {
		return nil, err
	}
	mem.Type = types.MemoryType(memType)
	if lastAccessed.Valid {
		t := lastAccessed.Time
		mem.LastAccessed = &t
	}
	if source.Valid {
		mem.Source = source.String
	}
	return &mem, nil
}

func (s *Store) CreateMemory(ctx context.Context, mem *types.Memory) (bool, error) {
	if mem.Content == "" {
		return false, fmt.Errorf("%w: content is required", storage.ErrInvalidInput)
	}
	if !mem.Type.IsValid() {
		return false, fmt.Errorf("%w: unknown memory type %q", storage.ErrInvalidInput, mem.Type)
	}
	if mem.AgentID == "" {
		mem.AgentID = "default"
	}
	if mem.Hash == "" {
		mem.Hash = types.ContentHash(mem.Content)
	}

	existing, err := s.FindByHash(ctx, mem.AgentID, mem.Hash)
	if err == nil && existing != nil {
		*mem = *existing
		return false, nil
	}
	if err != nil && err != storage.ErrNotFound {
		return false, err
	}

	if mem.ID == "" {
		mem.ID = newID()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = now()
	}
	if mem.UpdatedAt.IsZero() {
		mem.UpdatedAt = mem.CreatedAt
	}

	q := rebind(`
		INSERT INTO memories (
			id, content, type, priority, emotion_val, vitality, stability,
			access_count, last_accessed, created_at, updated_at, source, agent_id, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.tx().ExecContext(ctx, q,
		mem.ID, mem.Content, string(mem.Type), mem.Priority, mem.EmotionVal,
		mem.Vitality, mem.Stability, mem.AccessCount, nullTime(mem.LastAccessed),
		mem.CreatedAt, mem.UpdatedAt, nullString(mem.Source), mem.AgentID, mem.Hash,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: insert memory: %w", err)
	}

	if err := s.syncFTS(ctx, mem.ID, mem.AgentID, mem.Content); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) GetMemory(ctx context.Context, agentID, id string) (*types.Memory, error) {
	row := s.tx().QueryRowContext(ctx,
		rebind(`SELECT `+memoryColumns+` FROM memories WHERE id = ? AND agent_id = ?`), id, agentID)
	mem, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get memory: %w", err)
	}
	return mem, nil
}

func (s *Store) FindByHash(ctx context.Context, agentID, hash string) (*types.Memory, error) {
	row := s.tx().QueryRowContext(ctx,
		rebind(`SELECT `+memoryColumns+` FROM memories WHERE hash = ? AND agent_id = ?`), hash, agentID)
	mem, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find by hash: %w", err)
	}
	return mem, nil
}

func (s *Store) ListMemories(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Memory], error) {
	opts.Normalize()

	var where []string
	var args []any
	if opts.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, opts.AgentID)
	}
	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(opts.Type))
	}
	if opts.Priority != nil {
		where = append(where, "priority = ?")
		args = append(args, *opts.Priority)
	}
	if opts.MinVitality != nil {
		where = append(where, "vitality >= ?")
		args = append(args, *opts.MinVitality)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	order := "ORDER BY priority ASC, updated_at DESC"
	if opts.SortBy == "updated_at" {
		order = fmt.Sprintf("ORDER BY updated_at %s", strings.ToUpper(opts.SortOrder))
	}

	var total int
	if err := s.tx().QueryRowContext(ctx, rebind(`SELECT COUNT(*) FROM memories `+whereClause), args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: count memories: %w", err)
	}

	q := `SELECT ` + memoryColumns + ` FROM memories ` + whereClause + " " + order + " LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.tx().QueryContext(ctx, rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list memories: %w", err)
	}
	defer rows.Close()

	var items []types.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan memory: %w", err)
		}
		items = append(items, *mem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &storage.PaginatedResult[types.Memory]{
		Items:    items,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(items) < total,
	}, nil
}

func (s *Store) UpdateContent(ctx context.Context, agentID, id, content string) error {
	hash := types.ContentHash(content)
	res, err := s.tx().ExecContext(ctx,
		rebind(`UPDATE memories SET content = ?, hash = ?, updated_at = ? WHERE id = ? AND agent_id = ?`),
		content, hash, now(), id, agentID)
	if err != nil {
		return fmt.Errorf("postgres: update content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return s.syncFTS(ctx, id, agentID, content)
}

func (s *Store) RecordAccess(ctx context.Context, agentID, id string, growth float64) error {
	if growth <= 0 {
		growth = 1.5
	}
	mem, err := s.GetMemory(ctx, agentID, id)
	if err != nil {
		return err
	}

	newStability := mem.Stability * growth
	if newStability > 999999 {
		newStability = 999999
	}
	newVitality := mem.Vitality * 1.2
	if newVitality > 1.0 {
		newVitality = 1.0
	}

	_, err = s.tx().ExecContext(ctx, rebind(`
		UPDATE memories
		SET stability = ?, vitality = ?, access_count = access_count + 1, last_accessed = ?
		WHERE id = ? AND agent_id = ?`),
		newStability, newVitality, now(), id, agentID)
	if err != nil {
		return fmt.Errorf("postgres: record access: %w", err)
	}
	return nil
}

func (s *Store) SetVitality(ctx context.Context, agentID, id string, vitality float64) error {
	res, err := s.tx().ExecContext(ctx,
		rebind(`UPDATE memories SET vitality = ?, updated_at = ? WHERE id = ? AND agent_id = ?`),
		vitality, now(), id, agentID)
	if err != nil {
		return fmt.Errorf("postgres: set vitality: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteMemory(ctx context.Context, agentID, id string) error {
	res, err := s.tx().ExecContext(ctx,
		rebind(`DELETE FROM memories WHERE id = ? AND agent_id = ?`), id, agentID)
	if err != nil {
		return fmt.Errorf("postgres: delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	_, err = s.tx().ExecContext(ctx, rebind(`DELETE FROM memories_fts WHERE id = ? AND agent_id = ?`), id, agentID)
	if err != nil {
		return fmt.Errorf("postgres: delete fts row: %w", err)
	}
	return nil
}

// --- full-text sync --------------------------------------------------------

func (s *Store) syncFTS(ctx context.Context, id, agentID, content string) error {
	tokens := tokenize.IndexForm(content)
	_, err := s.tx().ExecContext(ctx, rebind(`DELETE FROM memories_fts WHERE id = ? AND agent_id = ?`), id, agentID)
	if err != nil {
		return fmt.Errorf("postgres: clear fts row: %w", err)
	}
	_, err = s.tx().ExecContext(ctx,
		rebind(`INSERT INTO memories_fts (id, agent_id, tokens, tsv) VALUES (?, ?, ?, to_tsvector('simple', ?))`),
		id, agentID, tokens, tokens)
	if err != nil {
		return fmt.Errorf("postgres: insert fts row: %w", err)
	}
	return nil
}

func (s *Store) Reindex(ctx context.Context, agentID string) error {
	return s.Atomic(ctx, func(txStore storage.Store) error {
		tx := txStore.(*Store)
		if _, err := tx.tx().ExecContext(ctx, rebind(`DELETE FROM memories_fts WHERE agent_id = ?`), agentID); err != nil {
			return fmt.Errorf("postgres: reindex clear: %w", err)
		}
		rows, err := tx.tx().QueryContext(ctx, rebind(`SELECT id, content FROM memories WHERE agent_id = ?`), agentID)
		if err != nil {
			return fmt.Errorf("postgres: reindex select: %w", err)
		}
		defer rows.Close()
		type pair struct{ id, content string }
		var pairs []pair
		for rows.Next() {
			var p pair
			if err := rows.Scan(&p.id, &p.content); err != nil {
				return err
			}
			pairs = append(pairs, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		for _, p := range pairs {
			if err := tx.syncFTS(ctx, p.id, agentID, p.content); err != nil {
				return err
			}
		}
		return nil
	})
}

// TruncateForTest clears every table for use between test cases. It lives
// in the package proper (not a _test.go file) so it can reach the
// unexported db field while still being callable from postgres_test.
func (s *Store) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`TRUNCATE TABLE memories, paths, links, snapshots, embeddings, memories_fts RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("postgres: truncate for test: %w", err)
	}
	return nil
}

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v string
	err := s.tx().QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key = 'version'`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}
