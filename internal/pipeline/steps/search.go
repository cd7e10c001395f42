package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonathan/landing-agent/internal/types"
)

// DefaultSearchEndpoint is the Perplexity-compatible completions endpoint.
const DefaultSearchEndpoint = "https://api.perplexity.ai/chat/completions"

const searchSystemPrompt = "You are a helpful assistant that searches the web for recent news and information. Provide concise, factual summaries with sources."

// SearchStep queries a web-search-backed completion API for market context.
type SearchStep struct {
	APIKey   string
	Endpoint string
	Model    string
	Client   *http.Client
}

// NewSearchStep creates a search step against the default endpoint.
func NewSearchStep(apiKey string) *SearchStep {
	return &SearchStep{
		APIKey:   apiKey,
		Endpoint: DefaultSearchEndpoint,
		Model:    "sonar",
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type searchRequest struct {
	Model               string          `json:"model"`
	Messages            []searchMessage `json:"messages"`
	MaxTokens           int             `json:"max_tokens"`
	Temperature         float64         `json:"temperature"`
	ReturnCitations     bool            `json:"return_citations"`
	SearchRecencyFilter string          `json:"search_recency_filter"`
}

type searchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// Search runs the query and returns summarized results with citations.
func (s *SearchStep) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("search API key is not configured")
	}

	body, err := json.Marshal(searchRequest{
		Model: s.Model,
		Messages: []searchMessage{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: query},
		},
		MaxTokens:           1000,
		Temperature:         0.2,
		ReturnCitations:     true,
		SearchRecencyFilter: "month",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("search API error: %d - %s", resp.StatusCode, string(errBody))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := "No results found"
	if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
		results = parsed.Choices[0].Message.Content
	}

	return &types.SearchResult{
		Results:   results,
		Citations: parsed.Citations,
		Query:     query,
	}, nil
}
