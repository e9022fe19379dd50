// Package config loads the engine's configuration from environment
// variables, the only configuration surface the spec defines (§6.4).
package config

import (
	"os"
)

// Config holds every setting the engine needs to boot a Store, an
// embedding provider, and an optional external reranker.
type Config struct {
	Storage    StorageConfig
	Embeddings EmbeddingsConfig
	Rerank     RerankConfig
}

// StorageConfig selects and scopes the durable store.
type StorageConfig struct {
	DBPath  string // AGENT_MEMORY_DB (default ./agent-memory.db)
	AgentID string // AGENT_MEMORY_AGENT_ID (default "default")
}

// EmbeddingsConfig selects the optional embedding provider that upgrades
// BM25-only search into hybrid BM25+semantic search.
type EmbeddingsConfig struct {
	Provider    string // AGENT_MEMORY_EMBEDDINGS_PROVIDER: none/openai/gemini/google/qwen/dashscope/tongyi
	Model       string // AGENT_MEMORY_EMBEDDINGS_MODEL
	Instruction string // AGENT_MEMORY_EMBEDDINGS_INSTRUCTION; "none" disables the prefix

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	GeminiBaseURL   string
	DashscopeAPIKey  string
	DashscopeBaseURL string
}

// RerankConfig selects the optional external reranker.
type RerankConfig struct {
	Provider string // AGENT_MEMORY_RERANK_PROVIDER: none/openai/jina/cohere
	Model    string
	APIKey   string
	BaseURL  string
}

// Load builds a Config from the process environment, applying the
// spec-mandated defaults for anything left unset (§6.4).
func Load() *Config {
	return &Config{
		Storage: StorageConfig{
			DBPath:  getEnv("AGENT_MEMORY_DB", "./agent-memory.db"),
			AgentID: getEnv("AGENT_MEMORY_AGENT_ID", "default"),
		},
		Embeddings: EmbeddingsConfig{
			Provider:    getEnv("AGENT_MEMORY_EMBEDDINGS_PROVIDER", "none"),
			Model:       getEnv("AGENT_MEMORY_EMBEDDINGS_MODEL", ""),
			Instruction: getEnv("AGENT_MEMORY_EMBEDDINGS_INSTRUCTION", ""),

			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			DashscopeAPIKey:  getEnv("DASHSCOPE_API_KEY", ""),
			DashscopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		},
		Rerank: RerankConfig{
			Provider: getEnv("AGENT_MEMORY_RERANK_PROVIDER", "none"),
			Model:    getEnv("AGENT_MEMORY_RERANK_MODEL", ""),
			APIKey:   getEnv("AGENT_MEMORY_RERANK_API_KEY", ""),
			BaseURL:  getEnv("AGENT_MEMORY_RERANK_BASE_URL", ""),
		},
	}
}

// InstructionOverride returns the configured instruction prefix override as
// the *string embedding.ResolveInstructionPrefix expects: nil when unset,
// so the provider's own default applies.
func (c *EmbeddingsConfig) InstructionOverride() *string {
	if c.Instruction == "" {
		return nil
	}
	return &c.Instruction
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
