package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmem/engine/internal/config"
)

func TestLoadDefaultsDBPathAndAgentID(t *testing.T) {
	cfg := config.Load()
	assert.Equal(t, "./agent-memory.db", cfg.Storage.DBPath)
	assert.Equal(t, "default", cfg.Storage.AgentID)
}

func TestLoadCanOverrideDBPathAndAgentID(t *testing.T) {
	t.Setenv("AGENT_MEMORY_DB", "/var/lib/agent/memory.db")
	t.Setenv("AGENT_MEMORY_AGENT_ID", "noah")

	cfg := config.Load()
	assert.Equal(t, "/var/lib/agent/memory.db", cfg.Storage.DBPath)
	assert.Equal(t, "noah", cfg.Storage.AgentID)
}

func TestLoadDefaultsEmbeddingsProviderToNone(t *testing.T) {
	cfg := config.Load()
	assert.Equal(t, "none", cfg.Embeddings.Provider)
}

func TestLoadReadsEmbeddingsProviderAndModel(t *testing.T) {
	t.Setenv("AGENT_MEMORY_EMBEDDINGS_PROVIDER", "qwen")
	t.Setenv("AGENT_MEMORY_EMBEDDINGS_MODEL", "text-embedding-v3")

	cfg := config.Load()
	assert.Equal(t, "qwen", cfg.Embeddings.Provider)
	assert.Equal(t, "text-embedding-v3", cfg.Embeddings.Model)
}

func TestInstructionOverrideNilWhenUnset(t *testing.T) {
	cfg := config.Load()
	assert.Nil(t, cfg.Embeddings.InstructionOverride())
}

func TestInstructionOverrideNoneLiteralIsPreserved(t *testing.T) {
	t.Setenv("AGENT_MEMORY_EMBEDDINGS_INSTRUCTION", "none")
	cfg := config.Load()
	override := cfg.Embeddings.InstructionOverride()
	if assert.NotNil(t, override) {
		assert.Equal(t, "none", *override)
	}
}

func TestLoadDefaultsRerankProviderToNone(t *testing.T) {
	cfg := config.Load()
	assert.Equal(t, "none", cfg.Rerank.Provider)
}

func TestLoadReadsRerankEndpointSettings(t *testing.T) {
	t.Setenv("AGENT_MEMORY_RERANK_PROVIDER", "cohere")
	t.Setenv("AGENT_MEMORY_RERANK_API_KEY", "sk-test")
	t.Setenv("AGENT_MEMORY_RERANK_BASE_URL", "https://api.cohere.ai")

	cfg := config.Load()
	assert.Equal(t, "cohere", cfg.Rerank.Provider)
	assert.Equal(t, "sk-test", cfg.Rerank.APIKey)
	assert.Equal(t, "https://api.cohere.ai", cfg.Rerank.BaseURL)
}

func TestLoadCredentialFallbacksDefaultToKnownBaseURLs(t *testing.T) {
	cfg := config.Load()
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embeddings.OpenAIBaseURL)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.Embeddings.GeminiBaseURL)
	assert.Equal(t, "https://dashscope.aliyuncs.com/compatible-mode/v1", cfg.Embeddings.DashscopeBaseURL)
}
