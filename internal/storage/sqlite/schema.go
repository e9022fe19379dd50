package sqlite

// schemaV3 creates the full v3 schema from scratch (new databases skip the
// v1/v2 migration steps entirely and land here directly). Existing v1/v2
// databases instead go through migrateV1ToV2 / migrateV2ToV3 in
// migrations.go, which reshape an older layout into this one in place.
const schemaV3 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

-- Memories: the atomic unit (spec §3.1).
CREATE TABLE IF NOT EXISTS memories (
	id            TEXT PRIMARY KEY,
	content       TEXT NOT NULL,
	type          TEXT NOT NULL,
	priority      INTEGER NOT NULL,
	emotion_val   REAL NOT NULL DEFAULT 0,
	vitality      REAL NOT NULL DEFAULT 1.0,
	stability     REAL NOT NULL,
	access_count  INTEGER NOT NULL DEFAULT 0,
	last_accessed TIMESTAMP,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	source        TEXT,
	agent_id      TEXT NOT NULL,
	hash          TEXT NOT NULL,
	UNIQUE (hash, agent_id)
);

CREATE INDEX IF NOT EXISTS idx_memories_agent_priority ON memories(agent_id, priority);
CREATE INDEX IF NOT EXISTS idx_memories_agent_vitality ON memories(agent_id, vitality);

-- Paths: URI anchors onto memories (spec §3.2). Unique per tenant since v2.
CREATE TABLE IF NOT EXISTS paths (
	id         TEXT PRIMARY KEY,
	memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	agent_id   TEXT NOT NULL,
	uri        TEXT NOT NULL,
	alias      TEXT,
	domain     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (agent_id, uri)
);

CREATE INDEX IF NOT EXISTS idx_paths_memory ON paths(memory_id);

-- Links: directed typed edges between memories of the same agent (spec §3.3).
CREATE TABLE IF NOT EXISTS links (
	agent_id   TEXT NOT NULL,
	source_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	target_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	relation   TEXT NOT NULL,
	weight     REAL NOT NULL DEFAULT 1.0,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (agent_id, source_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(agent_id, source_id);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(agent_id, target_id);

-- Snapshots: append-only prior-state copies (spec §3.4).
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	changed_by TEXT,
	action     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_memory ON snapshots(memory_id, created_at DESC);

-- Embeddings: one dense vector per (agent_id, memory_id, model) (spec §3.5).
CREATE TABLE IF NOT EXISTS embeddings (
	agent_id   TEXT NOT NULL,
	memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	model      TEXT NOT NULL,
	dim        INTEGER NOT NULL,
	vector     BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (agent_id, memory_id, model)
);

-- Per-agent user-tunable settings (SPEC_FULL supplement), distinct from
-- schema_meta which tracks schema version only.
CREATE TABLE IF NOT EXISTS settings (
	agent_id TEXT NOT NULL,
	key      TEXT NOT NULL,
	value    TEXT NOT NULL,
	PRIMARY KEY (agent_id, key)
);

-- Full-text projection of memory content (spec §3.6), kept in sync with
-- memories by the entity layer inside the same transaction as every
-- create/update/delete (never via triggers — the write path needs to run
-- the indexing tokenizer, which a SQL trigger cannot do).
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
	id UNINDEXED,
	agent_id UNINDEXED,
	tokens
);
`

// schemaMetaVersion is the current schema version this binary understands
// (spec §4.1).
const schemaMetaVersion = 3
