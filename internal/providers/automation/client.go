// Package automation client for the browser-automation platform that posts
// finished content to the requester's feed. Launch an agent, then poll the
// container briefly to confirm it started.
package automation

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

// Container statuses reported by the platform.
const (
	statusRunning  = "running"
	statusFinished = "finished"
	statusError    = "error"
)

// Client launches automation agents.
type Client struct {
	baseURL    string
	apiKey     string
	agentID    string
	httpClient *http.Client
	pollCfg    poll.Config
}

// NewClient creates an automation client from configuration.
func NewClient(cfg config.AutomationConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		agentID:    cfg.AgentID,
		httpClient: httpx.NewClient(cfg.Timeout),
		pollCfg:    poll.Config{Attempts: cfg.PollAttempts, Interval: cfg.PollInterval},
	}
}

type launchRequest struct {
	ID       string            `json:"id"`
	Argument map[string]string `json:"argument"`
}

type launchResponse struct {
	ContainerID string `json:"containerId"`
}

type containerResponse struct {
	Status string `json:"status"`
}

// Trigger launches the configured agent with the post content as its
// argument and confirms the container reached a running state.
func (c *Client) Trigger(ctx context.Context, content string) error {
	containerID, err := c.launch(ctx, content)
	if err != nil {
		return fmt.Errorf("launch agent: %w", err)
	}

	pollErr := poll.Until(ctx, c.pollCfg, func(ctx context.Context) (bool, error) {
		container, fetchErr := c.fetchContainer(ctx, containerID)
		if fetchErr != nil {
			return false, fetchErr
		}

		switch container.Status {
		case statusRunning, statusFinished:
			return true, nil
		case statusError:
			return false, fmt.Errorf("container %s errored", containerID)
		default:
			return false, nil
		}
	})
	if pollErr != nil {
		return fmt.Errorf("await container %s: %w", containerID, pollErr)
	}

	return nil
}

func (c *Client) launch(ctx context.Context, content string) (string, error) {
	payload, err := json.Marshal(launchRequest{
		ID:       c.agentID,
		Argument: map[string]string{"message": content},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/agents/launch", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := httpx.ParseHTTPError(resp); httpErr != nil {
		return "", httpErr
	}

	var result launchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.ContainerID == "" {
		return "", fmt.Errorf("response missing container id")
	}

	return result.ContainerID, nil
}

func (c *Client) fetchContainer(ctx context.Context, containerID string) (*containerResponse, error) {
	endpoint := c.baseURL + "/containers/fetch?id=" + url.QueryEscape(containerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := httpx.ParseHTTPError(resp); httpErr != nil {
		return nil, httpErr
	}

	var container containerResponse
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &container, nil
}
