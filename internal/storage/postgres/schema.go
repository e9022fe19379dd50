package postgres

// schemaV3 mirrors sqlite.schemaV3's entity shape (spec §3, §4.1) on
// PostgreSQL: the same tables and constraints, but a tsvector/GIN full-text
// projection in place of FTS5, and a pgvector `vector` column for
// embeddings (spec DOMAIN STACK: lib/pq + pgvector-go) instead of a packed
// BLOB. Requires the pgvector extension to be installed in the target
// database; CREATE EXTENSION IF NOT EXISTS runs here with the rest of the
// schema, and if it fails (for example for lack of privilege) Open fails.
const schemaV3 = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memories (
	id            TEXT PRIMARY KEY,
	content       TEXT NOT NULL,
	type          TEXT NOT NULL,
	priority      INTEGER NOT NULL,
	emotion_val   DOUBLE PRECISION NOT NULL DEFAULT 0,
	vitality      DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	stability     DOUBLE PRECISION NOT NULL,
	access_count  INTEGER NOT NULL DEFAULT 0,
	last_accessed TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	source        TEXT,
	agent_id      TEXT NOT NULL,
	hash          TEXT NOT NULL,
	UNIQUE (hash, agent_id)
);

CREATE INDEX IF NOT EXISTS idx_memories_agent_priority ON memories(agent_id, priority);
CREATE INDEX IF NOT EXISTS idx_memories_agent_vitality ON memories(agent_id, vitality);

CREATE TABLE IF NOT EXISTS paths (
	id         TEXT PRIMARY KEY,
	memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	agent_id   TEXT NOT NULL,
	uri        TEXT NOT NULL,
	alias      TEXT,
	domain     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (agent_id, uri)
);

CREATE INDEX IF NOT EXISTS idx_paths_memory ON paths(memory_id);

CREATE TABLE IF NOT EXISTS links (
	agent_id   TEXT NOT NULL,
	source_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	target_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	relation   TEXT NOT NULL,
	weight     DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (agent_id, source_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(agent_id, source_id);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(agent_id, target_id);

CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	changed_by TEXT,
	action     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_memory ON snapshots(memory_id, created_at DESC);

-- Embeddings: a native pgvector column. Dimension is left unconstrained
-- since the engine supports multiple embedding models side by side (spec
-- §3.5); ANN indexing is left to the operator once a single model is
-- pinned, per pgvector's own guidance for mixed-dimension columns.
CREATE TABLE IF NOT EXISTS embeddings (
	agent_id   TEXT NOT NULL,
	memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	model      TEXT NOT NULL,
	dim        INTEGER NOT NULL,
	vector     vector NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (agent_id, memory_id, model)
);

CREATE TABLE IF NOT EXISTS settings (
	agent_id TEXT NOT NULL,
	key      TEXT NOT NULL,
	value    TEXT NOT NULL,
	PRIMARY KEY (agent_id, key)
);

-- Full-text projection: tokens are produced by the same indexing tokenizer
-- the sqlite backend uses (internal/tokenize), so the two backends agree on
-- what a "term" is; to_tsvector('simple', ...) then just splits on
-- whitespace without English stemming, since the tokenizer already did
-- CJK-aware segmentation and stopword removal upstream.
CREATE TABLE IF NOT EXISTS memories_fts (
	id       TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	tokens   TEXT NOT NULL,
	tsv      tsvector NOT NULL,
	PRIMARY KEY (id, agent_id)
);

CREATE INDEX IF NOT EXISTS idx_memories_fts_tsv ON memories_fts USING GIN(tsv);
`

const schemaMetaVersion = 3
