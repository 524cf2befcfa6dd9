package bootstrap

import (
	"github.com/postloop/content-pipeline/internal/config"
	"github.com/postloop/content-pipeline/internal/pipeline"
	"github.com/postloop/content-pipeline/internal/providers/automation"
	"github.com/postloop/content-pipeline/internal/providers/detector"
	"github.com/postloop/content-pipeline/internal/providers/fixtures"
	"github.com/postloop/content-pipeline/internal/providers/generation"
	"github.com/postloop/content-pipeline/internal/providers/grammar"
	"github.com/postloop/content-pipeline/internal/providers/humanizer"
	"github.com/postloop/content-pipeline/internal/providers/mailer"
	"github.com/postloop/content-pipeline/internal/providers/scraper"
)

// buildProviders selects the provider set for the configured mode. Fixture
// mode runs the full pipeline offline with deterministic providers;
// credentials were already validated for live mode at config load.
func buildProviders(cfg *config.ProvidersConfig) pipeline.Providers {
	if cfg.Mode == config.ProviderModeFixture {
		return pipeline.Providers{
			Scraper:    fixtures.Scraper{},
			Generator:  fixtures.Generator{},
			Humanizer:  fixtures.Humanizer{},
			Grammar:    fixtures.Grammar{},
			Detector:   fixtures.Detector{},
			Mailer:     &fixtures.Mailer{},
			Automation: fixtures.Automation{},
		}
	}

	providers := pipeline.Providers{
		Scraper:   scraper.NewClient(cfg.Scraper),
		Generator: generation.NewClient(cfg.Generation),
		Humanizer: humanizer.NewClient(cfg.Humanizer),
		Grammar:   grammar.NewClient(cfg.Grammar),
		Detector:  detector.NewClient(cfg.Detector),
		Mailer:    mailer.NewClient(cfg.Mailer),
	}

	// Automation stays nil unless an agent is configured.
	if cfg.Automation.AgentID != "" {
		providers.Automation = automation.NewClient(cfg.Automation)
	}

	return providers
}
