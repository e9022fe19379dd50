package toolsurface

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentmem/engine/internal/sleepcycle"
	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

// recordAccessGrowth is the stability growth g recall passes to
// RecordAccess on every hit it surfaces (spec §4.3 default g = 1.5; the
// vitality multiplier is a separate, smaller constant applied inside
// RecordAccess itself).
const recordAccessGrowth = 1.5

func argString(req mcp.CallToolRequest, key string) string {
	if v, ok := req.GetArguments()[key].(string); ok {
		return v
	}
	return ""
}

func argFloat(req mcp.CallToolRequest, key string, def float64) float64 {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func argInt(req mcp.CallToolRequest, key string, def int) int {
	return int(argFloat(req, key, float64(def)))
}

func argBool(req mcp.CallToolRequest, key string, def bool) bool {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return def
}

func (s *Server) handleRemember(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := argString(req, "content")
	if content == "" {
		return errResult(fmt.Errorf("content is required"))
	}
	memType := types.MemoryType(argString(req, "type"))

	wr := types.WriteRequest{
		Content:    content,
		Type:       memType,
		URI:        argString(req, "uri"),
		EmotionVal: argFloat(req, "emotion_val", 0),
		Source:     argString(req, "source"),
		AgentID:    s.agentID,
	}

	results, err := s.sleep.Sync(ctx, []sleepcycle.SyncInput{{WriteRequest: wr}})
	if err != nil {
		return errResult(err)
	}
	return jsonResult(results[0])
}

func (s *Server) handleRecall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := argString(req, "query")
	if query == "" {
		return errResult(fmt.Errorf("query is required"))
	}
	limit := argInt(req, "limit", defaultRecallLimit)

	hits, err := s.engine.Hybrid(ctx, storage.SearchOptions{AgentID: s.agentID, Query: query, Limit: limit})
	if err != nil {
		return errResult(err)
	}
	hits, classification := s.ranker.Rerank(ctx, query, hits)

	for i, hit := range hits {
		if err := s.store.RecordAccess(ctx, s.agentID, hit.Memory.ID, recordAccessGrowth); err != nil {
			return errResult(err)
		}
		if mem, err := s.store.GetMemory(ctx, s.agentID, hit.Memory.ID); err == nil {
			hits[i].Memory = *mem
		}
	}

	return jsonResult(struct {
		Intent     string               `json:"intent"`
		Confidence float64              `json:"confidence"`
		Hits       []storage.SearchHit  `json:"hits"`
	}{string(classification.Intent), classification.Confidence, hits})
}

func (s *Server) handleRecallPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri := argString(req, "uri")
	if uri == "" {
		return errResult(fmt.Errorf("uri is required"))
	}
	hops := argInt(req, "traverse_hops", defaultTraverseHops)

	if path, err := s.store.GetPathByURI(ctx, s.agentID, uri); err == nil {
		mem, err := s.store.GetMemory(ctx, s.agentID, path.MemoryID)
		if err != nil {
			return errResult(err)
		}
		var neighbors []storage.TraversalResult
		if hops > 0 {
			neighbors, err = s.store.Traverse(ctx, s.agentID, mem.ID, hops)
			if err != nil {
				return errResult(err)
			}
		}
		return jsonResult(struct {
			Memory    *types.Memory             `json:"memory"`
			Neighbors []storage.TraversalResult `json:"neighbors,omitempty"`
		}{mem, neighbors})
	}

	paths, err := s.store.ListPathsByPrefix(ctx, s.agentID, uri)
	if err != nil {
		return errResult(err)
	}
	type match struct {
		URI    string        `json:"uri"`
		Memory *types.Memory `json:"memory"`
	}
	var matches []match
	for _, p := range paths {
		mem, err := s.store.GetMemory(ctx, s.agentID, p.MemoryID)
		if err != nil {
			continue
		}
		matches = append(matches, match{p.URI, mem})
	}
	return jsonResult(struct {
		Matches []match `json:"matches"`
	}{matches})
}

func (s *Server) handleBoot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	memories, honored, err := s.sleep.Boot(ctx, s.agentID)
	if err != nil {
		return errResult(err)
	}
	return jsonResult(struct {
		Memories    []types.Memory `json:"memories"`
		HonoredURIs []string       `json:"honored_uris"`
	}{memories, honored})
}

func (s *Server) handleForget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := argString(req, "id")
	if id == "" {
		return errResult(fmt.Errorf("id is required"))
	}
	hard := argBool(req, "hard", false)

	err := s.store.Atomic(ctx, func(tx storage.Store) error {
		mem, err := tx.GetMemory(ctx, s.agentID, id)
		if err != nil {
			return err
		}
		if !hard {
			return tx.SetVitality(ctx, s.agentID, mem.ID, mem.Vitality*0.1)
		}
		if err := tx.CreateSnapshot(ctx, &types.Snapshot{
			MemoryID:  mem.ID,
			Content:   mem.Content,
			ChangedBy: "forget",
			Action:    types.SnapshotDelete,
		}); err != nil {
			return err
		}
		return tx.DeleteMemory(ctx, s.agentID, mem.ID)
	})
	if err != nil {
		return errResult(err)
	}
	return jsonResult(struct {
		ID   string `json:"id"`
		Hard bool   `json:"hard"`
	}{id, hard})
}

func (s *Server) handleLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch action := argString(req, "action"); action {
	case "create":
		l := &types.Link{
			AgentID:  s.agentID,
			SourceID: argString(req, "source_id"),
			TargetID: argString(req, "target_id"),
			Relation: types.Relation(argString(req, "relation")),
			Weight:   argFloat(req, "weight", 1.0),
		}
		if err := s.store.CreateLink(ctx, l); err != nil {
			return errResult(err)
		}
		return jsonResult(l)

	case "query":
		links, err := s.store.ListLinks(ctx, s.agentID, argString(req, "memory_id"))
		if err != nil {
			return errResult(err)
		}
		return jsonResult(struct {
			Links []types.Link `json:"links"`
		}{links})

	case "traverse":
		maxHops := argInt(req, "max_hops", defaultTraverseHops)
		results, err := s.store.Traverse(ctx, s.agentID, argString(req, "memory_id"), maxHops)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(struct {
			Results []storage.TraversalResult `json:"results"`
		}{results})

	default:
		return errResult(fmt.Errorf("link: unknown action %q", action))
	}
}

func (s *Server) handleSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch action := argString(req, "action"); action {
	case "list":
		snaps, err := s.store.ListSnapshots(ctx, s.agentID, argString(req, "memory_id"))
		if err != nil {
			return errResult(err)
		}
		return jsonResult(struct {
			Snapshots []types.Snapshot `json:"snapshots"`
		}{snaps})

	case "rollback":
		snapshotID := argString(req, "snapshot_id")
		err := s.store.Atomic(ctx, func(tx storage.Store) error {
			snap, err := tx.GetSnapshot(ctx, s.agentID, snapshotID)
			if err != nil {
				return err
			}
			current, err := tx.GetMemory(ctx, s.agentID, snap.MemoryID)
			if err != nil {
				return err
			}
			if err := tx.CreateSnapshot(ctx, &types.Snapshot{
				MemoryID:  current.ID,
				Content:   current.Content,
				ChangedBy: "rollback",
				Action:    types.SnapshotUpdate,
			}); err != nil {
				return err
			}
			return tx.UpdateContent(ctx, s.agentID, current.ID, snap.Content)
		})
		if err != nil {
			return errResult(err)
		}
		return jsonResult(struct {
			Success    bool   `json:"success"`
			SnapshotID string `json:"snapshot_id"`
		}{true, snapshotID})

	default:
		return errResult(fmt.Errorf("snapshot: unknown action %q", action))
	}
}

func (s *Server) handleReflect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch phase := argString(req, "phase"); phase {
	case "decay":
		r, err := s.sleep.Decay(ctx, s.agentID)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(r)

	case "tidy":
		r, err := s.sleep.Tidy(ctx, s.agentID)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(r)

	case "govern":
		r, err := s.sleep.Govern(ctx, s.agentID)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(r)

	case "all":
		decay, err := s.sleep.Decay(ctx, s.agentID)
		if err != nil {
			return errResult(err)
		}
		tidy, err := s.sleep.Tidy(ctx, s.agentID)
		if err != nil {
			return errResult(err)
		}
		govern, err := s.sleep.Govern(ctx, s.agentID)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(struct {
			Decay  *storage.DecayReport  `json:"decay"`
			Tidy   *storage.TidyReport   `json:"tidy"`
			Govern *storage.GovernReport `json:"govern"`
		}{decay, tidy, govern})

	default:
		return errResult(fmt.Errorf("reflect: unknown phase %q", phase))
	}
}

func (s *Server) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.store.Stats(ctx, s.agentID)
	if err != nil {
		return errResult(err)
	}
	return jsonResult(report)
}
