// Package sqlite implements storage.Store on top of a single SQLite file
// using modernc.org/sqlite (CGO-free), matching spec §4.1's "single file
// plus write-ahead-log sidecar" requirement literally.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/internal/tokenize"
	"github.com/agentmem/engine/pkg/types"
)

// Store implements storage.Store backed by a single SQLite database file.
// activeTx, when non-nil, means this value is a transaction-scoped view
// created by Atomic; every operation then runs against it instead of db.
type Store struct {
	db       *sql.DB
	activeTx *sql.Tx
}

// Open opens (creating if necessary) a SQLite database at path, enables WAL
// journaling and a 5-second busy timeout (spec §4.1, §5), creates the
// schema idempotently, and runs any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// A single writer connection serializes writes, matching the
	// single-process cooperative scheduling model of spec §5.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

// OpenInMemory opens an in-process, shared-cache in-memory database — used
// by tests and by callers who do not need durability across restarts.
// Stores opened this way in one process share the same database while any
// of them remains open.
func OpenInMemory() (*Store, error) {
	return Open("file::memory:?cache=shared")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting the read/write
// helpers below run either standalone or inside an Atomic transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// tx returns the execer this Store should use: itself, or — when this
// instance was constructed by Atomic — the wrapping transaction.
func (s *Store) tx() execer {
	if s.activeTx != nil {
		return s.activeTx
	}
	return s.db
}

// Atomic runs fn inside one serializable SQLite transaction, opened with
// the driver's default (deferred) BEGIN. The pool holds a single
// connection, so transactions from this Store never overlap.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.activeTx != nil {
		// Already inside a transaction — just run fn against the same view
		// (nested Atomic calls compose instead of deadlocking).
		return fn(s)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}

	scoped := &Store{db: s.db, activeTx: sqlTx}
	if err := fn(scoped); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit tx: %w", err)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

// --- MemoryStore ---------------------------------------------------------

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

	const q = `
		INSERT INTO memories (
			id, content, type, priority, emotion_val, vitality, stability,
			access_count, last_accessed, created_at, updated_at, source, agent_id, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.tx().ExecContext(ctx, q,
		mem.ID, mem.Content, string(mem.Type), mem.Priority, mem.EmotionVal,
		mem.Vitality, mem.Stability, mem.AccessCount, nullTime(mem.LastAccessed),
		mem.CreatedAt, mem.UpdatedAt, nullString(mem.Source), mem.AgentID, mem.Hash,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: insert memory: %w", err)
	}

	if err := s.syncFTS(ctx, mem.ID, mem.AgentID, mem.Content); err != nil {
		return false, err
	}

	return true, nil
}

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

func (s *Store) GetMemory(ctx context.Context, agentID, id string) (*types.Memory, error) {
	row := s.tx().QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ? AND agent_id = ?`, id, agentID)
	mem, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get memory: %w", err)
	}
	return mem, nil
}

func (s *Store) FindByHash(ctx context.Context, agentID, hash string) (*types.Memory, error) {
	row := s.tx().QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE hash = ? AND agent_id = ?`, hash, agentID)
	mem, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find by hash: %w", err)
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

	orderCol := "priority"
	if opts.SortBy == "updated_at" {
		orderCol = "updated_at"
	}
	order := fmt.Sprintf("ORDER BY %s %s, updated_at DESC", orderCol, strings.ToUpper(opts.SortOrder))
	if orderCol == "priority" {
		// Spec default: priority ASC, updated_at DESC, regardless of the
		// requested SortOrder on priority itself (SortOrder only governs a
		// non-default SortBy).
		order = "ORDER BY priority ASC, updated_at DESC"
	}

	countQ := `SELECT COUNT(*) FROM memories ` + whereClause
	var total int
	if err := s.tx().QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: count memories: %w", err)
	}

	q := `SELECT ` + memoryColumns + ` FROM memories ` + whereClause + " " + order + " LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.tx().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list memories: %w", err)
	}
	defer rows.Close()

	var items []types.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan memory: %w", err)
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
		`UPDATE memories SET content = ?, hash = ?, updated_at = ? WHERE id = ? AND agent_id = ?`,
		content, hash, now(), id, agentID)
	if err != nil {
		return fmt.Errorf("sqlite: update content: %w", err)
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

	_, err = s.tx().ExecContext(ctx, `
		UPDATE memories
		SET stability = ?, vitality = ?, access_count = access_count + 1, last_accessed = ?
		WHERE id = ? AND agent_id = ?`,
		newStability, newVitality, now(), id, agentID)
	if err != nil {
		return fmt.Errorf("sqlite: record access: %w", err)
	}
	return nil
}

func (s *Store) SetVitality(ctx context.Context, agentID, id string, vitality float64) error {
	res, err := s.tx().ExecContext(ctx,
		`UPDATE memories SET vitality = ?, updated_at = ? WHERE id = ? AND agent_id = ?`,
		vitality, now(), id, agentID)
	if err != nil {
		return fmt.Errorf("sqlite: set vitality: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteMemory(ctx context.Context, agentID, id string) error {
	res, err := s.tx().ExecContext(ctx,
		`DELETE FROM memories WHERE id = ? AND agent_id = ?`, id, agentID)
	if err != nil {
		return fmt.Errorf("sqlite: delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	// Cascades handle paths/links/snapshots/embeddings via FK ON DELETE
	// CASCADE; the FTS row is a projection we own directly.
	_, err = s.tx().ExecContext(ctx, `DELETE FROM memories_fts WHERE id = ? AND agent_id = ?`, id, agentID)
	if err != nil {
		return fmt.Errorf("sqlite: delete fts row: %w", err)
	}
	return nil
}

// --- full-text sync --------------------------------------------------------

func (s *Store) syncFTS(ctx context.Context, id, agentID, content string) error {
	tokens := tokenize.IndexForm(content)
	_, err := s.tx().ExecContext(ctx, `DELETE FROM memories_fts WHERE id = ? AND agent_id = ?`, id, agentID)
	if err != nil {
		return fmt.Errorf("sqlite: clear fts row: %w", err)
	}
	_, err = s.tx().ExecContext(ctx,
		`INSERT INTO memories_fts (id, agent_id, tokens) VALUES (?, ?, ?)`, id, agentID, tokens)
	if err != nil {
		return fmt.Errorf("sqlite: insert fts row: %w", err)
	}
	return nil
}

func (s *Store) Reindex(ctx context.Context, agentID string) error {
	return s.Atomic(ctx, func(txStore storage.Store) error {
		tx := txStore.(*Store)
		if _, err := tx.tx().ExecContext(ctx, `DELETE FROM memories_fts WHERE agent_id = ?`, agentID); err != nil {
			return fmt.Errorf("sqlite: reindex clear: %w", err)
		}
		rows, err := tx.tx().QueryContext(ctx, `SELECT id, content FROM memories WHERE agent_id = ?`, agentID)
		if err != nil {
			return fmt.Errorf("sqlite: reindex select: %w", err)
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

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v string
	err := s.tx().QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key = 'version'`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var version int
	_, err = fmt.Sscanf(v, "%d", &version)
	return version, err
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
