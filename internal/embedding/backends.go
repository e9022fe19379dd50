package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpTimeout bounds every outbound embedding call; embedding.NewProvider's
// circuit breaker and rate limiter sit outside this, so a slow backend trips
// the breaker instead of blocking the write/search path indefinitely.
const httpTimeout = 30 * time.Second

// openAICompatibleRequest is the request body for POST /embeddings, shared
// by OpenAI and Dashscope's OpenAI-compatible-mode endpoint (spec §4.7).
type openAICompatibleRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAICompatibleResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAICompatibleBackend builds a Backend against any OpenAI-compatible
// /embeddings endpoint (used for both the "openai" and "dashscope"
// providers — Dashscope's compatible-mode base URL speaks the same wire
// format).
func NewOpenAICompatibleBackend(baseURL, apiKey, model string) Backend {
	client := &http.Client{Timeout: httpTimeout}
	return func(ctx context.Context, text string) ([]float32, error) {
		body, err := json.Marshal(openAICompatibleRequest{Model: model, Input: text})
		if err != nil {
			return nil, fmt.Errorf("embedding: marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("embedding: build request: %w", err)
		}
		req.Header.Set("content-type", "application/json")
		req.Header.Set("authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("embedding: backend returned %d: %s", resp.StatusCode, payload)
		}

		var parsed openAICompatibleResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("embedding: decode response: %w", err)
		}
		if len(parsed.Data) == 0 {
			return nil, fmt.Errorf("embedding: backend returned no data")
		}
		return parsed.Data[0].Embedding, nil
	}
}

// geminiEmbedRequest is the request body for POST /v1beta/models/{model}:embedContent.
type geminiEmbedRequest struct {
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// NewGeminiBackend builds a Backend against Gemini's embedContent API.
func NewGeminiBackend(baseURL, apiKey, model string) Backend {
	client := &http.Client{Timeout: httpTimeout}
	return func(ctx context.Context, text string) ([]float32, error) {
		body, err := json.Marshal(geminiEmbedRequest{
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		})
		if err != nil {
			return nil, fmt.Errorf("embedding: marshal request: %w", err)
		}

		url := fmt.Sprintf("%s/v1beta/models/%s:embedContent?key=%s", baseURL, model, apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("embedding: build request: %w", err)
		}
		req.Header.Set("content-type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("embedding: backend returned %d: %s", resp.StatusCode, payload)
		}

		var parsed geminiEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("embedding: decode response: %w", err)
		}
		return parsed.Embedding.Values, nil
	}
}
