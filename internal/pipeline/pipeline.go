// Package pipeline runs the seven-stage content pipeline: enrichment,
// generation, humanization, grammar, detection, notification, automation.
// Generation is the only fatal stage; every other stage degrades to a
// documented fallback and the run keeps going.
package pipeline

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/logger"
	"github.com/postloop/content-pipeline/internal/metrics"
)

// FallbackDetectionScore is the AI probability assumed when the detection
// provider is unavailable. The pipeline has just humanized the text, so a
// low estimate is assumed rather than an unknown.
const FallbackDetectionScore = 0.2

// Provider capabilities, one per stage. Declared here, on the consumer
// side; the provider packages satisfy them structurally.
type (
	// Scraper collects public profile data for a profile URL.
	Scraper interface {
		Scrape(ctx context.Context, profileURL string) (*domain.ProfileData, error)
	}

	// Generator produces raw post content from a prompt.
	Generator interface {
		Generate(ctx context.Context, prompt string) (string, error)
	}

	// Humanizer rewrites content to read less machine-generated.
	Humanizer interface {
		Humanize(ctx context.Context, content string) (string, error)
	}

	// Grammar corrects text and reports how many corrections were applied.
	Grammar interface {
		Correct(ctx context.Context, text string) (string, int, error)
	}

	// Detector scores text with a probability in [0, 1] of being AI-written.
	Detector interface {
		Score(ctx context.Context, text string) (float64, error)
	}

	// Mailer delivers the finished post by email.
	Mailer interface {
		Send(ctx context.Context, to, subject, html string) error
	}

	// Automation launches the browser agent that posts the content.
	Automation interface {
		Trigger(ctx context.Context, content string) error
	}
)

// QuotaStore is the slice of the quota repository the orchestrator needs.
type QuotaStore interface {
	Get(ctx context.Context, requesterID string) (*domain.QuotaAccount, error)
}

// PostStore persists finished posts.
type PostStore interface {
	Insert(ctx context.Context, post *domain.Post) error
}

// Ledger settles a run against the requester's account.
type Ledger interface {
	Charge(ctx context.Context, requesterID string, plan domain.Plan, succeeded bool, responseTimeMs int64) (int, error)
}

// Guard serializes runs per requester. A nil Guard disables the check.
type Guard interface {
	Acquire(ctx context.Context, requesterID string) error
	Release(ctx context.Context, requesterID string)
}

// Recorder receives stage and run observations.
type Recorder interface {
	ObserveStage(stage, outcome string)
	ObserveRun(succeeded bool, seconds float64)
}

// Providers bundles the seven stage providers. Automation may be nil when
// the feature is not configured.
type Providers struct {
	Scraper    Scraper
	Generator  Generator
	Humanizer  Humanizer
	Grammar    Grammar
	Detector   Detector
	Mailer     Mailer
	Automation Automation
}

// Orchestrator drives requests through the stage sequence.
type Orchestrator struct {
	providers Providers
	quota     QuotaStore
	posts     PostStore
	ledger    Ledger
	guard     Guard
	recorder  Recorder
	log       logger.Logger
}

// New creates an orchestrator. guard may be nil.
func New(providers Providers, quota QuotaStore, posts PostStore, ledger Ledger, guard Guard, recorder Recorder, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		quota:     quota,
		posts:     posts,
		ledger:    ledger,
		guard:     guard,
		recorder:  recorder,
		log:       log,
	}
}

// Run executes the pipeline for one request.
//
// Preconditions are checked before any provider is invoked: the requester
// must have an account with credit available, and no other run for the same
// requester may be in flight. Rejections at this point have no side
// effects. Once the stages start, the run is always settled through the
// ledger, win or lose.
func (o *Orchestrator) Run(ctx context.Context, req domain.ContentRequest) (*domain.RunResult, error) {
	account, err := o.quota.Get(ctx, req.RequesterID)
	if err != nil {
		return nil, err
	}
	if !account.HasCredit() {
		return nil, domain.ErrQuotaExceeded
	}

	if o.guard != nil {
		if acquireErr := o.guard.Acquire(ctx, req.RequesterID); acquireErr != nil {
			return nil, acquireErr
		}
		defer o.guard.Release(ctx, req.RequesterID)
	}

	run := domain.NewPipelineRun(req)
	runErr := o.execute(ctx, run)

	if runErr == nil {
		if persistErr := o.persist(ctx, run); persistErr != nil {
			runErr = persistErr
		}
	}

	elapsed := time.Since(run.StartedAt)
	result := &domain.RunResult{
		Succeeded:        runErr == nil,
		Run:              run,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}

	if _, chargeErr := o.ledger.Charge(ctx, req.RequesterID, account.Plan, result.Succeeded, result.ProcessingTimeMs); chargeErr != nil {
		o.log.Error("settle run failed",
			logger.String("requester_id", req.RequesterID),
			logger.Error(chargeErr))
	}

	o.recorder.ObserveRun(result.Succeeded, elapsed.Seconds())

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// execute runs the stage sequence, mutating run as it goes. Only a
// generation failure (or a cancelled context) returns an error.
func (o *Orchestrator) execute(ctx context.Context, run *domain.PipelineRun) error {
	o.enrich(ctx, run)

	if err := o.generate(ctx, run); err != nil {
		return err
	}

	o.humanize(ctx, run)
	o.correct(ctx, run)
	o.detect(ctx, run)
	o.notify(ctx, run)
	o.automate(ctx, run)

	return nil
}

// enrich scrapes the optional profile source and extends the prompt. Skipped
// entirely when no source was given; degrades to the raw prompt on failure.
func (o *Orchestrator) enrich(ctx context.Context, run *domain.PipelineRun) {
	if run.Request.EnrichmentSource == "" {
		return
	}

	profile, err := o.providers.Scraper.Scrape(ctx, run.Request.EnrichmentSource)
	if err != nil {
		o.fail(run, domain.StageEnrichment, err)
		return
	}

	run.ProfileSnapshot = profile
	run.EnrichedPrompt = domain.EnrichPrompt(run.Request.Prompt, *profile)
	o.complete(run, domain.StageEnrichment)
}

// generate produces the raw post text. There is nothing to fall back to: a
// failure here fails the run.
func (o *Orchestrator) generate(ctx context.Context, run *domain.PipelineRun) error {
	content, err := o.providers.Generator.Generate(ctx, run.EnrichedPrompt)
	if err != nil {
		o.recorder.ObserveStage(string(domain.StageGeneration), metrics.OutcomeFailed)
		o.log.Error("generation failed", logger.Error(err))
		return &domain.UpstreamError{Stage: domain.StageGeneration, Err: err}
	}

	run.RawContent = content
	o.complete(run, domain.StageGeneration)
	return nil
}

// humanize rewrites the raw content; falls back to passing it through.
func (o *Orchestrator) humanize(ctx context.Context, run *domain.PipelineRun) {
	humanized, err := o.providers.Humanizer.Humanize(ctx, run.RawContent)
	if err != nil {
		o.fallBack(run, domain.StageHumanization, err)
		run.HumanizedContent = run.RawContent
		return
	}

	run.HumanizedContent = humanized
	o.complete(run, domain.StageHumanization)
}

// correct applies grammar corrections; falls back to the humanized text.
func (o *Orchestrator) correct(ctx context.Context, run *domain.PipelineRun) {
	corrected, count, err := o.providers.Grammar.Correct(ctx, run.HumanizedContent)
	if err != nil {
		o.fallBack(run, domain.StageGrammar, err)
		run.CorrectedContent = run.HumanizedContent
		return
	}

	run.CorrectedContent = corrected
	run.CorrectionCount = count
	o.complete(run, domain.StageGrammar)
}

// detect scores the final text; falls back to a fixed low estimate.
func (o *Orchestrator) detect(ctx context.Context, run *domain.PipelineRun) {
	p, err := o.providers.Detector.Score(ctx, run.CorrectedContent)
	if err != nil {
		o.fallBack(run, domain.StageDetection, err)
		p = FallbackDetectionScore
	} else {
		o.complete(run, domain.StageDetection)
	}

	run.AIScore, run.HumanScore = domain.DeriveScores(p)
}

// notify emails the finished post; a delivery failure only clears the flag.
func (o *Orchestrator) notify(ctx context.Context, run *domain.PipelineRun) {
	subject := "Your LinkedIn post is ready"
	body := buildEmailHTML(run)

	if err := o.providers.Mailer.Send(ctx, run.Request.NotifyAddress, subject, body); err != nil {
		o.fail(run, domain.StageNotification, err)
		return
	}

	run.NotificationSent = true
	o.complete(run, domain.StageNotification)
}

// automate launches the posting agent when requested and configured.
func (o *Orchestrator) automate(ctx context.Context, run *domain.PipelineRun) {
	if !run.Request.TriggerAutomation {
		return
	}
	if o.providers.Automation == nil {
		o.log.Warn("automation requested but not configured",
			logger.String("requester_id", run.Request.RequesterID))
		return
	}

	if err := o.providers.Automation.Trigger(ctx, run.CorrectedContent); err != nil {
		o.fail(run, domain.StageAutomation, err)
		return
	}

	run.AutomationFired = true
	o.complete(run, domain.StageAutomation)
}

// persist stores the finished post as a draft.
func (o *Orchestrator) persist(ctx context.Context, run *domain.PipelineRun) error {
	post := &domain.Post{
		ID:          uuid.NewString(),
		RequesterID: run.Request.RequesterID,
		Content:     run.CorrectedContent,
		Status:      domain.PostStatusDraft,
		AIScore:     run.AIScore,
		HumanScore:  run.HumanScore,
		CreatedAt:   time.Now().UTC(),
	}

	if err := o.posts.Insert(ctx, post); err != nil {
		return fmt.Errorf("persist post: %w", err)
	}
	return nil
}

// complete marks a stage as finished without a fallback.
func (o *Orchestrator) complete(run *domain.PipelineRun, stage domain.Stage) {
	run.StepFlags[stage] = true
	o.recorder.ObserveStage(string(stage), metrics.OutcomeOK)
}

// fallBack records a stage that degraded but still produced a usable
// substitute (pass-through text, estimated score). The caller applies the
// actual fallback value; the stage still counts as completed.
func (o *Orchestrator) fallBack(run *domain.PipelineRun, stage domain.Stage, err error) {
	run.StepFlags[stage] = true
	run.Fallbacks[stage] = true
	o.recorder.ObserveStage(string(stage), metrics.OutcomeFallback)
	o.log.Warn("stage degraded to fallback",
		logger.String("stage", string(stage)),
		logger.Error(err))
}

// fail records a stage whose effect simply did not happen (no profile
// enrichment, no email, no agent launch). There is no substitute output, so
// the stage does not count as completed.
func (o *Orchestrator) fail(run *domain.PipelineRun, stage domain.Stage, err error) {
	run.Fallbacks[stage] = true
	o.recorder.ObserveStage(string(stage), metrics.OutcomeFallback)
	o.log.Warn("stage failed, continuing without it",
		logger.String("stage", string(stage)),
		logger.Error(err))
}

// buildEmailHTML renders the notification body.
func buildEmailHTML(run *domain.PipelineRun) string {
	content := html.EscapeString(run.CorrectedContent)
	content = strings.ReplaceAll(content, "\n", "<br>")

	return fmt.Sprintf(
		"<h2>Your post is ready</h2><p>%s</p><p><strong>Human score:</strong> %d%% &middot; <strong>AI score:</strong> %d%%</p>",
		content, run.HumanScore, run.AIScore,
	)
}
