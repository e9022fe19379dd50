package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpRerankTimeout = 15 * time.Second

// httpRerankRequest is the request body for a Cohere-style /rerank endpoint,
// which every provider named in spec §6.4's AGENT_MEMORY_RERANK_PROVIDER
// speaks a compatible dialect of.
type httpRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type httpRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// httpReranker is an ExternalReranker backed by an HTTP cross-encoder
// endpoint. A failure here never aborts reranking (spec §4.8): the caller
// falls back to the local pass.
type httpReranker struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewHTTPReranker builds an ExternalReranker against baseURL+"/rerank".
func NewHTTPReranker(baseURL, apiKey, model string) ExternalReranker {
	return &httpReranker{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: httpRerankTimeout},
	}
}

func (h *httpReranker) Rerank(ctx context.Context, query string, contents []string) ([]RerankedIndex, error) {
	body, err := json.Marshal(httpRerankRequest{Model: h.model, Query: query, Documents: contents})
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rerank: build request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank: backend returned %d: %s", resp.StatusCode, payload)
	}

	var parsed httpRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}

	out := make([]RerankedIndex, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, RerankedIndex{Index: r.Index, RelevanceScore: r.RelevanceScore})
	}
	return out, nil
}
