// Package fixtures provides deterministic in-process provider
// implementations. They back fixture mode, where the service runs the full
// pipeline offline with no credentials and no network, and double as test
// providers.
package fixtures

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/postloop/content-pipeline/internal/domain"
)

// DetectorScore is the fixed probability the fixture detector reports.
// It derives aiScore 12 / humanScore 88, distinct from the fallback
// estimate so fixture runs are recognizable in output.
const DetectorScore = 0.12

// Generator produces a templated post from the prompt.
type Generator struct{}

// Generate returns deterministic post content derived from the prompt.
func (Generator) Generate(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf(
		"Here's a thought worth sharing.\n\n%s\n\nI've seen this play out over the past year, "+
			"and the lesson keeps repeating: consistency beats intensity.\n\nWhat's your experience?",
		strings.TrimSpace(prompt),
	), nil
}

// Humanizer applies a small set of deterministic rewrites that mimic what
// the live provider does to AI-flavored phrasing.
type Humanizer struct{}

var rewrites = strings.NewReplacer(
	"Additionally, ", "Also, ",
	"Furthermore, ", "And ",
	"utilize", "use",
	"delve into", "dig into",
	"—", ", ",
)

// Humanize rewrites content deterministically.
func (Humanizer) Humanize(_ context.Context, content string) (string, error) {
	return rewrites.Replace(content), nil
}

// Grammar collapses repeated spaces, the one correction class the fixture
// recognizes.
type Grammar struct{}

// Correct returns the corrected text and the number of corrections applied.
func (Grammar) Correct(_ context.Context, text string) (string, int, error) {
	count := 0
	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
		count++
	}
	return text, count, nil
}

// Detector reports a fixed AI probability.
type Detector struct{}

// Score returns DetectorScore regardless of input.
func (Detector) Score(_ context.Context, _ string) (float64, error) {
	return DetectorScore, nil
}

// SentEmail records one delivery accepted by the fixture mailer.
type SentEmail struct {
	To      string
	Subject string
	HTML    string
}

// Mailer records deliveries instead of sending them.
type Mailer struct {
	mu   sync.Mutex
	sent []SentEmail
}

// Send records the email.
func (m *Mailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, HTML: html})
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (m *Mailer) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// Scraper returns a canned profile for any URL.
type Scraper struct{}

// Scrape returns the canned profile.
func (Scraper) Scrape(_ context.Context, _ string) (*domain.ProfileData, error) {
	return &domain.ProfileData{
		Name:     "Jordan Avery",
		Headline: "Fractional CTO | Building developer platforms",
		Summary: "Engineering leader with 12 years across infrastructure and " +
			"developer tooling. I write about shipping, hiring, and staying sane.",
	}, nil
}

// Automation acknowledges triggers without doing anything.
type Automation struct{}

// Trigger is a no-op.
func (Automation) Trigger(_ context.Context, _ string) error {
	return nil
}
