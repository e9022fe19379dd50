// cmd/agentmem-mcp is the entry point for the agent memory engine's MCP
// server. It wires the SQLite durable store through the write guard, hybrid
// search, and sleep-cycle layers, and exposes the nine-tool catalogue over
// stdio.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the SQLite database (WAL mode, migrations applied on open).
//  3. Build the optional embedding provider and external reranker.
//  4. Register the tool surface against the store.
//  5. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: all logging MUST go to stderr. Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/agentmem/engine/internal/config"
	"github.com/agentmem/engine/internal/embedding"
	"github.com/agentmem/engine/internal/rerank"
	"github.com/agentmem/engine/internal/storage/sqlite"
	"github.com/agentmem/engine/internal/toolsurface"
)

func main() {
	// Redirect the default logger to stderr so incidental log calls from
	// imported packages never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("agentmem-mcp: ")
	log.SetFlags(log.LstdFlags)

	cfg := config.Load()

	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("failed to open database at %q: %v", cfg.Storage.DBPath, err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	provider := buildEmbeddingProvider(cfg.Embeddings)
	external := buildExternalReranker(cfg.Rerank)

	logger := log.New(os.Stderr, "agentmem-mcp: ", log.LstdFlags)
	tools := toolsurface.New(cfg.Storage.AgentID, store, provider, external, logger)

	log.Println("ready — serving MCP tool calls on stdin/stdout")
	if err := server.ServeStdio(tools.MCPServer()); err != nil {
		log.Printf("transport stopped: %v", err)
	}
	<-ctx.Done()
}

// buildEmbeddingProvider wires spec §6.4's AGENT_MEMORY_EMBEDDINGS_PROVIDER
// values onto the HTTP backends; "none" (or anything unrecognized) disables
// semantic search and recall falls back to BM25-only (spec §4.6).
func buildEmbeddingProvider(cfg config.EmbeddingsConfig) embedding.Provider {
	var backend embedding.Backend
	switch cfg.Provider {
	case "openai":
		backend = embedding.NewOpenAICompatibleBackend(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model)
	case "gemini", "google":
		backend = embedding.NewGeminiBackend(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.Model)
	case "qwen", "dashscope", "tongyi":
		backend = embedding.NewOpenAICompatibleBackend(cfg.DashscopeBaseURL, cfg.DashscopeAPIKey, cfg.Model)
	default:
		return nil
	}

	prefix := embedding.ResolveInstructionPrefix(cfg.Model, cfg.InstructionOverride())
	return embedding.NewProvider(embedding.Config{
		ID:                cfg.Provider,
		Model:             cfg.Model,
		InstructionPrefix: prefix,
		Backend:           backend,
		RequestsPerSecond: 5,
		Burst:             5,
	})
}

func buildExternalReranker(cfg config.RerankConfig) rerank.ExternalReranker {
	if cfg.Provider == "none" || cfg.Provider == "" {
		return nil
	}
	return rerank.NewHTTPReranker(cfg.BaseURL, cfg.APIKey, cfg.Model)
}
