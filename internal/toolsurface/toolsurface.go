// Package toolsurface registers the nine-tool catalogue (spec §6.3) against
// the engine's storage, search, rerank, and sleep-cycle layers, using
// mark3labs/mcp-go as the tool-call transport.
package toolsurface

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentmem/engine/internal/embedding"
	"github.com/agentmem/engine/internal/rerank"
	"github.com/agentmem/engine/internal/search"
	"github.com/agentmem/engine/internal/sleepcycle"
	"github.com/agentmem/engine/internal/storage"
)

// defaultRecallLimit is applied when recall's optional limit is omitted.
const defaultRecallLimit = 10

// defaultTraverseHops is applied when recall_path's optional traverse_hops
// is omitted.
const defaultTraverseHops = 1

// Server wires the nine tools onto an *server.MCPServer. It is agent-scoped
// (spec §6.3): every tool call runs against the agentID bound at
// construction time.
type Server struct {
	agentID string
	store   storage.Store
	engine  *search.Engine
	ranker  *rerank.Reranker
	sleep   *sleepcycle.Engine
	mcp     *server.MCPServer
}

// New builds a Server and registers all nine tools. provider may be nil
// (BM25-only search); external may be nil (local-only reranking). A single
// candidate cache is shared between search and the sleep cycle so an
// embedding upsert from either side invalidates the same entry.
func New(agentID string, store storage.Store, provider embedding.Provider, external rerank.ExternalReranker, logger *log.Logger) *Server {
	cache, _ := embedding.NewCandidateCache(0)
	s := &Server{
		agentID: agentID,
		store:   store,
		engine:  search.New(store, provider, cache),
		ranker:  rerank.New(external, logger),
		sleep:   sleepcycle.New(store, provider, cache),
		mcp:     server.NewMCPServer("agent-memory", "1.0.0"),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server for transport wiring (stdio,
// SSE, etc. — spec.md explicitly scopes transport wiring out, §1 Non-goals).
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(rememberTool(), s.handleRemember)
	s.mcp.AddTool(recallTool(), s.handleRecall)
	s.mcp.AddTool(recallPathTool(), s.handleRecallPath)
	s.mcp.AddTool(bootTool(), s.handleBoot)
	s.mcp.AddTool(forgetTool(), s.handleForget)
	s.mcp.AddTool(linkTool(), s.handleLink)
	s.mcp.AddTool(snapshotTool(), s.handleSnapshot)
	s.mcp.AddTool(reflectTool(), s.handleReflect)
	s.mcp.AddTool(statusTool(), s.handleStatus)
}

// jsonResult marshals v as the tool's text result, matching every other
// handler's response shape so callers can treat all nine tools uniformly.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("toolsurface: marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func errResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
