// Package humanizer client for the asynchronous text-humanization API:
// submit a document, then poll until processing finishes.
package humanizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/postloop/content-pipeline/internal/config"
	"github.com/postloop/content-pipeline/internal/httpx"
	"github.com/postloop/content-pipeline/internal/poll"
)

// Document statuses reported by the provider.
const (
	statusDone   = "done"
	statusFailed = "failed"
)

// Client calls the humanization API.
type Client struct {
	baseURL     string
	apiKey      string
	readability string
	purpose     string
	strength    string
	httpClient  *http.Client
	pollCfg     poll.Config
}

// NewClient creates a humanizer client from configuration.
func NewClient(cfg config.HumanizerConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		readability: cfg.Readability,
		purpose:     cfg.Purpose,
		strength:    cfg.Strength,
		httpClient:  httpx.NewClient(cfg.Timeout),
		pollCfg:     poll.Config{Attempts: cfg.PollAttempts, Interval: cfg.PollInterval},
	}
}

type submitRequest struct {
	Content     string `json:"content"`
	Readability string `json:"readability"`
	Purpose     string `json:"purpose"`
	Strength    string `json:"strength"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type documentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output string `json:"output"`
}

// Humanize submits content for rewriting and waits for the result within
// the configured poll budget.
func (c *Client) Humanize(ctx context.Context, content string) (string, error) {
	id, err := c.submit(ctx, content)
	if err != nil {
		return "", fmt.Errorf("submit document: %w", err)
	}

	var output string
	pollErr := poll.Until(ctx, c.pollCfg, func(ctx context.Context) (bool, error) {
		doc, fetchErr := c.fetch(ctx, id)
		if fetchErr != nil {
			return false, fetchErr
		}

		switch doc.Status {
		case statusDone:
			output = doc.Output
			return true, nil
		case statusFailed:
			return false, fmt.Errorf("document %s failed processing", id)
		default:
			return false, nil
		}
	})
	if pollErr != nil {
		return "", fmt.Errorf("await document %s: %w", id, pollErr)
	}

	if output == "" {
		return "", fmt.Errorf("document %s finished with empty output", id)
	}

	return output, nil
}

func (c *Client) submit(ctx context.Context, content string) (string, error) {
	payload, err := json.Marshal(submitRequest{
		Content:     content,
		Readability: c.readability,
		Purpose:     c.purpose,
		Strength:    c.strength,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := httpx.ParseHTTPError(resp); httpErr != nil {
		return "", httpErr
	}

	var result submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("response missing document id")
	}

	return result.ID, nil
}

func (c *Client) fetch(ctx context.Context, id string) (*documentResponse, error) {
	endpoint := c.baseURL + "/document?id=" + url.QueryEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := httpx.ParseHTTPError(resp); httpErr != nil {
		return nil, httpErr
	}

	var doc documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &doc, nil
}
