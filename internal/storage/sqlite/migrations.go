package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate inspects the database's current structural version and applies
// the ordered v1→v2 and v2→v3 migrations (spec §4.1). A brand-new database
// (no `memories` table at all) skips straight to creating schemaV3.
//
// Migrations run inside a single transaction with foreign_keys temporarily
// relaxed, matching spec §4.1's "referential integrity temporarily
// relaxed"; on any failure the transaction rolls back and the store is left
// at the prior version (spec §4.12).
func (s *Store) migrate(ctx context.Context) error {
	fresh, err := s.isFreshDatabase(ctx)
	if err != nil {
		return err
	}
	if fresh {
		if _, err := s.db.ExecContext(ctx, schemaV3); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return s.setSchemaVersion(ctx, s.db, schemaMetaVersion)
	}

	version, err := s.inferVersion(ctx)
	if err != nil {
		return err
	}

	if version >= schemaMetaVersion {
		// Idempotent: rerunning on an up-to-date store is a no-op, and the
		// base schema statements are themselves all IF NOT EXISTS.
		if _, err := s.db.ExecContext(ctx, schemaV3); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		return nil
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		return fmt.Errorf("relax foreign keys: %w", err)
	}
	defer s.db.ExecContext(ctx, "PRAGMA foreign_keys=ON")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}

	if version < 2 {
		if err := migrateV1ToV2(ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("v1->v2: %w", err)
		}
	}
	if version < 3 {
		if err := migrateV2ToV3(ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("v2->v3: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, schemaV3); err != nil {
		tx.Rollback()
		return fmt.Errorf("ensure schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_meta (key, value) VALUES ('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprint(schemaMetaVersion)); err != nil {
		tx.Rollback()
		return fmt.Errorf("record version: %w", err)
	}

	return tx.Commit()
}

func (s *Store) isFreshDatabase(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name='memories'`).Scan(&name)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe schema: %w", err)
	}
	return false, nil
}

// inferVersion determines the structural version of an existing database
// that predates schema_meta tracking, per spec §4.1: v1 paths/links lack
// agent_id; v2 has agent_id but no embeddings table; v3 is current.
func (s *Store) inferVersion(ctx context.Context) (int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key='version'`).Scan(&raw)
	if err == nil {
		var v int
		if _, perr := fmt.Sscanf(raw, "%d", &v); perr == nil {
			return v, nil
		}
	}

	hasAgentCol, err := columnExists(ctx, s.db, "paths", "agent_id")
	if err != nil {
		return 0, err
	}
	if !hasAgentCol {
		return 1, nil
	}

	hasEmbeddings, err := tableExists(ctx, s.db, "embeddings")
	if err != nil {
		return 0, err
	}
	if !hasEmbeddings {
		return 2, nil
	}
	return 3, nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func columnExists(ctx context.Context, db *sql.DB, table, col string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == col {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (s *Store) setSchemaVersion(ctx context.Context, db interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, version int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO schema_meta (key, value) VALUES ('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprint(version))
	return err
}

// migrateV1ToV2 rebuilds paths and links so each row carries agent_id:
//   - path.agent_id is derived from the owning memory ("default" for
//     orphans whose memory row no longer exists).
//   - link.agent_id is derived from the source endpoint; links whose
//     source/target disagree on tenant are dropped (cross-agent edges are
//     no longer representable).
//   - the uniqueness constraint on paths becomes (agent_id, uri).
func migrateV1ToV2(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `ALTER TABLE paths ADD COLUMN agent_id TEXT`); err != nil {
		return fmt.Errorf("add paths.agent_id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE paths SET agent_id = COALESCE(
			(SELECT m.agent_id FROM memories m WHERE m.id = paths.memory_id),
			'default'
		)`); err != nil {
		return fmt.Errorf("backfill paths.agent_id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `ALTER TABLE links ADD COLUMN agent_id TEXT`); err != nil {
		return fmt.Errorf("add links.agent_id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE links SET agent_id = (
			SELECT m.agent_id FROM memories m WHERE m.id = links.source_id
		)`); err != nil {
		return fmt.Errorf("backfill links.agent_id: %w", err)
	}
	// Drop cross-agent edges: source and target disagree on tenant.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM links
		WHERE agent_id IS NULL
		   OR agent_id != (SELECT m.agent_id FROM memories m WHERE m.id = links.target_id)`); err != nil {
		return fmt.Errorf("drop cross-agent links: %w", err)
	}

	// Rebuild paths with the new (agent_id, uri) unique constraint in place
	// of the old bare-uri uniqueness.
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE paths_v2 (
			id         TEXT PRIMARY KEY,
			memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
			agent_id   TEXT NOT NULL,
			uri        TEXT NOT NULL,
			alias      TEXT,
			domain     TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (agent_id, uri)
		)`); err != nil {
		return fmt.Errorf("create paths_v2: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO paths_v2 (id, memory_id, agent_id, uri, alias, domain, created_at)
		SELECT id, memory_id, agent_id, uri, alias, domain, created_at FROM paths`); err != nil {
		return fmt.Errorf("copy paths: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE paths`); err != nil {
		return fmt.Errorf("drop old paths: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE paths_v2 RENAME TO paths`); err != nil {
		return fmt.Errorf("rename paths_v2: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_paths_memory ON paths(memory_id)`); err != nil {
		return fmt.Errorf("index paths: %w", err)
	}

	// Rebuild links with agent_id in the primary key.
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE links_v2 (
			agent_id   TEXT NOT NULL,
			source_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
			target_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
			relation   TEXT NOT NULL,
			weight     REAL NOT NULL DEFAULT 1.0,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (agent_id, source_id, target_id)
		)`); err != nil {
		return fmt.Errorf("create links_v2: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO links_v2 (agent_id, source_id, target_id, relation, weight, created_at)
		SELECT agent_id, source_id, target_id, relation, weight, created_at FROM links`); err != nil {
		return fmt.Errorf("copy links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE links`); err != nil {
		return fmt.Errorf("drop old links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE links_v2 RENAME TO links`); err != nil {
		return fmt.Errorf("rename links_v2: %w", err)
	}

	return nil
}

// migrateV2ToV3 additively creates the embeddings table. No data rewrite.
func migrateV2ToV3(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS embeddings (
			agent_id   TEXT NOT NULL,
			memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
			model      TEXT NOT NULL,
			dim        INTEGER NOT NULL,
			vector     BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (agent_id, memory_id, model)
		)`)
	if err != nil {
		return fmt.Errorf("create embeddings: %w", err)
	}
	return nil
}
