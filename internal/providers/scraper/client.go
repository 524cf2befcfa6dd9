// Package scraper client for the asynchronous profile-scraping API:
// trigger a snapshot for a profile URL, then poll until it is ready.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/postloop/content-pipeline/internal/config"
	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/httpx"
	"github.com/postloop/content-pipeline/internal/poll"
)

// Snapshot statuses reported by the provider.
const (
	statusReady  = "ready"
	statusFailed = "failed"
)

// Client calls the profile-scraping API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pollCfg    poll.Config
}

// NewClient creates a scraper client from configuration.
func NewClient(cfg config.ScraperConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpx.NewClient(cfg.Timeout),
		pollCfg:    poll.Config{Attempts: cfg.PollAttempts, Interval: cfg.PollInterval},
	}
}

type triggerRequest struct {
	URL string `json:"url"`
}

type triggerResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type snapshotResponse struct {
	Status   string `json:"status"`
	Name     string `json:"name"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

// Scrape collects public profile data for a profile URL, waiting for the
// snapshot within the configured poll budget.
func (c *Client) Scrape(ctx context.Context, profileURL string) (*domain.ProfileData, error) {
	snapshotID, err := c.trigger(ctx, profileURL)
	if err != nil {
		return nil, fmt.Errorf("trigger snapshot: %w", err)
	}

	var profile *domain.ProfileData
	pollErr := poll.Until(ctx, c.pollCfg, func(ctx context.Context) (bool, error) {
		snapshot, fetchErr := c.fetchSnapshot(ctx, snapshotID)
		if fetchErr != nil {
			return false, fetchErr
		}

		switch snapshot.Status {
		case statusReady:
			profile = &domain.ProfileData{
				Name:     snapshot.Name,
				Headline: snapshot.Headline,
				Summary:  snapshot.Summary,
			}
			return true, nil
		case statusFailed:
			return false, fmt.Errorf("snapshot %s failed", snapshotID)
		default:
			return false, nil
		}
	})
	if pollErr != nil {
		return nil, fmt.Errorf("await snapshot %s: %w", snapshotID, pollErr)
	}

	return profile, nil
}

func (c *Client) trigger(ctx context.Context, profileURL string) (string, error) {
	payload, err := json.Marshal(triggerRequest{URL: profileURL})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trigger", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := httpx.ParseHTTPError(resp); httpErr != nil {
		return "", httpErr
	}

	var result triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.SnapshotID == "" {
		return "", fmt.Errorf("response missing snapshot id")
	}

	return result.SnapshotID, nil
}

func (c *Client) fetchSnapshot(ctx context.Context, snapshotID string) (*snapshotResponse, error) {
	endpoint := c.baseURL + "/snapshot/" + url.PathEscape(snapshotID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := httpx.ParseHTTPError(resp); httpErr != nil {
		return nil, httpErr
	}

	var snapshot snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &snapshot, nil
}
