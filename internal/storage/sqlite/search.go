package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/internal/tokenize"
	"github.com/agentmem/engine/pkg/types"
)

// BM25Search runs the tokenized query against memories_fts and joins back to
// memories for the full row. A malformed MATCH expression (unbalanced quotes,
// bare operators) never bubbles up as an error: it is retried as a LIKE scan
// over the indexed tokens, per spec §4.5's "never hard-fail on query syntax."
func (s *Store) BM25Search(ctx context.Context, opts storage.SearchOptions) ([]storage.SearchHit, error) {
	opts.Normalize()

	tokens := tokenize.Tokenize(opts.Query)
	if len(tokens) == 0 {
		return nil, nil
	}
	matchQuery := strings.Join(tokens, " OR ")

	hits, err := s.bm25MatchQuery(ctx, opts, matchQuery)
	if err == nil {
		return hits, nil
	}
	return s.bm25LikeFallback(ctx, opts, tokens)
}

// ftsMemoryColumns is memoryColumns with every column qualified by the
// memories alias m; memories_fts also has id and agent_id columns, so the
// bare names would be ambiguous in the joined queries below.
var ftsMemoryColumns = "m." + strings.Join(strings.Split(strings.Join(strings.Fields(memoryColumns), ""), ","), ", m.")

func (s *Store) bm25MatchQuery(ctx context.Context, opts storage.SearchOptions, matchQuery string) ([]storage.SearchHit, error) {
	rows, err := s.tx().QueryContext(ctx, `
		SELECT `+ftsMemoryColumns+`, f.rank
		FROM memories_fts f
		JOIN memories m ON m.id = f.id AND m.agent_id = f.agent_id
		WHERE f.agent_id = ? AND memories_fts MATCH ? AND m.vitality >= ?
		ORDER BY f.rank
		LIMIT ? OFFSET ?`,
		opts.AgentID, matchQuery, opts.MinVitality, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fts match: %w", err)
	}
	defer rows.Close()

	var out []storage.SearchHit
	for rows.Next() {
		mem, rank, err := scanMemoryRanked(rows)
		if err != nil {
			return nil, err
		}
		// FTS5 bm25() rank is more-negative-is-better; invert to a
		// positive score where higher means more relevant.
		out = append(out, storage.SearchHit{
			Memory:      *mem,
			Score:       -rank,
			MatchReason: "bm25",
		})
	}
	return out, rows.Err()
}

// scanMemoryRanked scans the memoryColumns projection plus a trailing FTS5
// rank column, shared by the MATCH-query path above.
func scanMemoryRanked(row interface{ Scan(...any) error }) (*types.Memory, float64, error) {
	var mem types.Memory
	var memType string
	var lastAccessed sql.NullTime
	var source sql.NullString
	var rank float64
	if err := row.Scan(
		&mem.ID, &mem.Content, &memType, &mem.Priority, &mem.EmotionVal,
		&mem.Vitality, &mem.Stability, &mem.AccessCount, &lastAccessed,
		&mem.CreatedAt, &mem.UpdatedAt, &source, &mem.AgentID, &mem.Hash,
		&rank,
	); err != nil {
		return nil, 0, err
	}
	mem.Type = types.MemoryType(memType)
	if lastAccessed.Valid {
		t := lastAccessed.Time
		mem.LastAccessed = &t
	}
	if source.Valid {
		mem.Source = source.String
	}
	return &mem, rank, nil
}

func (s *Store) bm25LikeFallback(ctx context.Context, opts storage.SearchOptions, tokens []string) ([]storage.SearchHit, error) {
	clauses := make([]string, 0, len(tokens))
	args := []any{opts.AgentID}
	for _, t := range tokens {
		clauses = append(clauses, `f.tokens LIKE ?`)
		args = append(args, "%"+t+"%")
	}
	args = append(args, opts.MinVitality, opts.Limit, opts.Offset)

	q := `
		SELECT ` + ftsMemoryColumns + `
		FROM memories_fts f
		JOIN memories m ON m.id = f.id AND m.agent_id = f.agent_id
		WHERE f.agent_id = ? AND (` + strings.Join(clauses, " OR ") + `) AND m.vitality >= ?
		ORDER BY m.priority ASC, m.updated_at DESC
		LIMIT ? OFFSET ?`

	rows, err := s.tx().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: like fallback: %w", err)
	}
	defer rows.Close()

	var out []storage.SearchHit
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.SearchHit{
			Memory:      *mem,
			Score:       0,
			MatchReason: "like_fallback",
		})
	}
	return out, rows.Err()
}

func (s *Store) VectorCandidates(ctx context.Context, agentID, model string) ([]types.Embedding, error) {
	return s.ListEmbeddings(ctx, agentID, model)
}
