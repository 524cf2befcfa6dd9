// Package detector client for the AI-content detection API.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/postloop/content-pipeline/internal/config"
	"github.com/postloop/content-pipeline/internal/httpx"
)

// Client calls the detection API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a detector client from configuration.
func NewClient(cfg config.DetectorConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpx.NewClient(cfg.Timeout),
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Score float64 `json:"score"`
}

// Score returns the probability in [0, 1] that text is AI-generated.
func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	payload, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/aidetect", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := httpx.ParseHTTPError(resp); httpErr != nil {
		return 0, httpErr
	}

	var result detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if result.Score < 0 || result.Score > 1 {
		return 0, fmt.Errorf("score %v outside [0, 1]", result.Score)
	}

	return result.Score, nil
}
