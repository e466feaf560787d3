package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/invest-agent/internal/config"
)

// StatusError is returned when the search API answers with a non-200 status
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search API returned status %d", e.StatusCode)
}

// Client calls a Perplexity-compatible chat completions endpoint
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	searchMode string
	client     *http.Client
}

// NewClient creates a search API client
func NewClient(cfg config.SearchConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "sonar-pro"
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      model,
		searchMode: cfg.SearchMode,
		client:     &http.Client{Timeout: timeout},
	}
}

type searchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchRequest struct {
	Model      string          `json:"model"`
	Messages   []searchMessage `json:"messages"`
	SearchMode string          `json:"search_mode,omitempty"`
}

type searchResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Ask sends a single user prompt and returns the answer text
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(searchRequest{
		Model:      c.model,
		Messages:   []searchMessage{{Role: "user", Content: prompt}},
		SearchMode: c.searchMode,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(searchResp.Choices) == 0 {
		return "", fmt.Errorf("search API returned no choices")
	}

	return searchResp.Choices[0].Message.Content, nil
}
