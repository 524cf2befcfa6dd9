// Package grammar client for the LanguageTool-compatible grammar check API.
// The API reports match spans; applying them is done locally so the same
// text in means the same text out.
package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/postloop/content-pipeline/internal/config"
	"github.com/postloop/content-pipeline/internal/httpx"
)

// Client calls the grammar check API.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewClient creates a grammar client from configuration.
func NewClient(cfg config.GrammarConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
		httpClient: httpx.NewClient(cfg.Timeout),
	}
}

// Match is one flagged span with its suggested replacements, ordered by
// the provider's confidence.
type Match struct {
	Offset       int           `json:"offset"`
	Length       int           `json:"length"`
	Replacements []Replacement `json:"replacements"`
}

// Replacement is a single suggested substitution.
type Replacement struct {
	Value string `json:"value"`
}

type checkResponse struct {
	Matches []Match `json:"matches"`
}

// Correct runs a grammar check on text and applies the top suggestion for
// each match. Returns the corrected text and the number of corrections
// applied.
func (c *Client) Correct(ctx context.Context, text string) (string, int, error) {
	matches, err := c.check(ctx, text)
	if err != nil {
		return "", 0, fmt.Errorf("check text: %w", err)
	}

	corrected, count := ApplyMatches(text, matches)
	return corrected, count, nil
}

func (c *Client) check(ctx context.Context, text string) ([]Match, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/check",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := httpx.ParseHTTPError(resp); httpErr != nil {
		return nil, httpErr
	}

	var result checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Matches, nil
}

// ApplyMatches substitutes the first replacement of each match into text.
// Matches are applied in descending offset order so earlier offsets stay
// valid while later spans are rewritten. Matches without replacements or
// with spans outside the text are skipped.
func ApplyMatches(text string, matches []Match) (string, int) {
	if len(matches) == 0 {
		return text, 0
	}

	// Offsets are character positions, not byte positions.
	runes := []rune(text)

	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	// Stable so matches at the same offset keep the provider's order.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Offset > ordered[j].Offset
	})

	applied := 0
	for _, m := range ordered {
		if len(m.Replacements) == 0 {
			continue
		}
		if m.Offset < 0 || m.Length <= 0 || m.Offset+m.Length > len(runes) {
			continue
		}

		replacement := []rune(m.Replacements[0].Value)
		updated := make([]rune, 0, len(runes)-m.Length+len(replacement))
		updated = append(updated, runes[:m.Offset]...)
		updated = append(updated, replacement...)
		updated = append(updated, runes[m.Offset+m.Length:]...)
		runes = updated
		applied++
	}

	return string(runes), applied
}
