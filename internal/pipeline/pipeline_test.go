package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/logger"
	"github.com/postloop/content-pipeline/internal/providers/fixtures"
)

// Func-field mocks so each test overrides only what it cares about.

type mockScraper struct {
	scrapeFunc func(ctx context.Context, url string) (*domain.ProfileData, error)
	calls      int
}

func (m *mockScraper) Scrape(ctx context.Context, url string) (*domain.ProfileData, error) {
	m.calls++
	return m.scrapeFunc(ctx, url)
}

type mockGenerator struct {
	generateFunc func(ctx context.Context, prompt string) (string, error)
	calls        int
	lastPrompt   string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.generateFunc(ctx, prompt)
}

type mockHumanizer struct {
	humanizeFunc func(ctx context.Context, content string) (string, error)
}

func (m *mockHumanizer) Humanize(ctx context.Context, content string) (string, error) {
	return m.humanizeFunc(ctx, content)
}

type mockGrammar struct {
	correctFunc func(ctx context.Context, text string) (string, int, error)
}

func (m *mockGrammar) Correct(ctx context.Context, text string) (string, int, error) {
	return m.correctFunc(ctx, text)
}

type mockMailer struct {
	sendFunc func(ctx context.Context, to, subject, html string) error
}

func (m *mockMailer) Send(ctx context.Context, to, subject, html string) error {
	return m.sendFunc(ctx, to, subject, html)
}

type mockDetector struct {
	scoreFunc func(ctx context.Context, text string) (float64, error)
}

func (m *mockDetector) Score(ctx context.Context, text string) (float64, error) {
	return m.scoreFunc(ctx, text)
}

type mockAutomation struct {
	triggerFunc func(ctx context.Context, content string) error
	calls       int
}

func (m *mockAutomation) Trigger(ctx context.Context, content string) error {
	m.calls++
	return m.triggerFunc(ctx, content)
}

type mockQuotaStore struct {
	getFunc func(ctx context.Context, requesterID string) (*domain.QuotaAccount, error)
	calls   int
}

func (m *mockQuotaStore) Get(ctx context.Context, requesterID string) (*domain.QuotaAccount, error) {
	m.calls++
	return m.getFunc(ctx, requesterID)
}

type mockPostStore struct {
	insertFunc func(ctx context.Context, post *domain.Post) error
	inserted   []*domain.Post
}

func (m *mockPostStore) Insert(ctx context.Context, post *domain.Post) error {
	m.inserted = append(m.inserted, post)
	if m.insertFunc != nil {
		return m.insertFunc(ctx, post)
	}
	return nil
}

type chargeCall struct {
	requesterID string
	plan        domain.Plan
	succeeded   bool
}

type mockLedger struct {
	charges []chargeCall
}

func (m *mockLedger) Charge(_ context.Context, requesterID string, plan domain.Plan, succeeded bool, _ int64) (int, error) {
	m.charges = append(m.charges, chargeCall{requesterID: requesterID, plan: plan, succeeded: succeeded})
	if succeeded && plan == domain.PlanMetered {
		return 1, nil
	}
	return 0, nil
}

type mockGuard struct {
	acquireFunc func(ctx context.Context, requesterID string) error
	released    int
}

func (m *mockGuard) Acquire(ctx context.Context, requesterID string) error {
	return m.acquireFunc(ctx, requesterID)
}

func (m *mockGuard) Release(_ context.Context, _ string) {
	m.released++
}

type recorderStub struct {
	stages map[string]int
	runs   int
}

func newRecorderStub() *recorderStub {
	return &recorderStub{stages: make(map[string]int)}
}

func (r *recorderStub) ObserveStage(stage, outcome string) {
	r.stages[stage+"/"+outcome]++
}

func (r *recorderStub) ObserveRun(_ bool, _ float64) {
	r.runs++
}

func meteredAccount(remaining int) *domain.QuotaAccount {
	return &domain.QuotaAccount{RequesterID: "user-1", Plan: domain.PlanMetered, Remaining: remaining}
}

func fixtureProviders() Providers {
	return Providers{
		Scraper:    fixtures.Scraper{},
		Generator:  fixtures.Generator{},
		Humanizer:  fixtures.Humanizer{},
		Grammar:    fixtures.Grammar{},
		Detector:   fixtures.Detector{},
		Mailer:     &fixtures.Mailer{},
		Automation: fixtures.Automation{},
	}
}

func validRequest() domain.ContentRequest {
	return domain.ContentRequest{
		Prompt:        "Why code review matters",
		NotifyAddress: "user@example.com",
		RequesterID:   "user-1",
	}
}

func newTestOrchestrator(providers Providers, quota QuotaStore, posts PostStore, ledger Ledger, guard Guard) *Orchestrator {
	return New(providers, quota, posts, ledger, guard, newRecorderStub(), logger.NewNop())
}

func TestRun_HappyPath(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	posts := &mockPostStore{}
	ledger := &mockLedger{}

	o := newTestOrchestrator(fixtureProviders(), quota, posts, ledger, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.NoError(t, err)
	require.True(t, result.Succeeded)

	run := result.Run
	assert.NotEmpty(t, run.CorrectedContent)
	assert.Equal(t, 100, run.AIScore+run.HumanScore)
	assert.True(t, run.NotificationSent)
	assert.False(t, run.AutomationFired, "automation was not requested")

	for _, stage := range []domain.Stage{
		domain.StageGeneration, domain.StageHumanization,
		domain.StageGrammar, domain.StageDetection, domain.StageNotification,
	} {
		assert.True(t, run.StepFlags[stage], "stage %s should complete", stage)
		assert.False(t, run.Fallbacks[stage], "stage %s should not fall back", stage)
	}

	require.Len(t, posts.inserted, 1)
	post := posts.inserted[0]
	assert.Equal(t, run.CorrectedContent, post.Content)
	assert.Equal(t, domain.PostStatusDraft, post.Status)
	assert.Equal(t, 100, post.AIScore+post.HumanScore)

	require.Len(t, ledger.charges, 1)
	assert.True(t, ledger.charges[0].succeeded)
	assert.Equal(t, domain.PlanMetered, ledger.charges[0].plan)
}

func TestRun_QuotaExhaustedInvokesNoProviders(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(0), nil
	}}
	gen := &mockGenerator{generateFunc: func(_ context.Context, _ string) (string, error) {
		return "should not run", nil
	}}
	providers := fixtureProviders()
	providers.Generator = gen
	posts := &mockPostStore{}
	ledger := &mockLedger{}

	o := newTestOrchestrator(providers, quota, posts, ledger, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Nil(t, result)
	assert.Zero(t, gen.calls, "no provider may run for a quota-rejected request")
	assert.Empty(t, posts.inserted)
	assert.Empty(t, ledger.charges, "a rejected request is not a run and is not settled")
}

func TestRun_UnknownRequester(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return nil, domain.ErrAccountNotFound
	}}

	o := newTestOrchestrator(fixtureProviders(), quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Nil(t, result)
}

func TestRun_GenerationFailureIsFatal(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	providers := fixtureProviders()
	providers.Generator = &mockGenerator{generateFunc: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("model overloaded")
	}}
	posts := &mockPostStore{}
	ledger := &mockLedger{}

	o := newTestOrchestrator(providers, quota, posts, ledger, nil)
	result, err := o.Run(context.Background(), validRequest())

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, domain.StageGeneration, upstream.Stage)

	require.NotNil(t, result)
	assert.False(t, result.Succeeded)
	assert.Empty(t, posts.inserted, "a failed run persists nothing")

	// The run executed, so it is settled, but no credit is taken.
	require.Len(t, ledger.charges, 1)
	assert.False(t, ledger.charges[0].succeeded)
}

func TestRun_EnrichmentFailureFallsBackToRawPrompt(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	gen := &mockGenerator{generateFunc: func(_ context.Context, prompt string) (string, error) {
		return "generated: " + prompt, nil
	}}
	providers := fixtureProviders()
	providers.Generator = gen
	providers.Scraper = &mockScraper{scrapeFunc: func(_ context.Context, _ string) (*domain.ProfileData, error) {
		return nil, errors.New("snapshot timed out")
	}}

	req := validRequest()
	req.EnrichmentSource = "https://linkedin.com/in/someone"

	o := newTestOrchestrator(providers, quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	require.True(t, result.Succeeded)

	run := result.Run
	assert.True(t, run.Fallbacks[domain.StageEnrichment])
	assert.False(t, run.StepFlags[domain.StageEnrichment])
	assert.Nil(t, run.ProfileSnapshot)
	assert.Equal(t, req.Prompt, gen.lastPrompt, "generation must see the raw prompt")
}

func TestRun_EnrichmentExtendsPrompt(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	gen := &mockGenerator{generateFunc: func(_ context.Context, prompt string) (string, error) {
		return "generated", nil
	}}
	providers := fixtureProviders()
	providers.Generator = gen

	req := validRequest()
	req.EnrichmentSource = "https://linkedin.com/in/someone"

	o := newTestOrchestrator(providers, quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	run := result.Run
	assert.True(t, run.StepFlags[domain.StageEnrichment])
	require.NotNil(t, run.ProfileSnapshot)
	assert.Contains(t, gen.lastPrompt, req.Prompt)
	assert.Contains(t, gen.lastPrompt, "Author context:")
	assert.Contains(t, gen.lastPrompt, run.ProfileSnapshot.Name)
}

func TestRun_DetectionFallbackScore(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	providers := fixtureProviders()
	providers.Detector = &mockDetector{scoreFunc: func(_ context.Context, _ string) (float64, error) {
		return 0, errors.New("detector down")
	}}

	o := newTestOrchestrator(providers, quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.NoError(t, err)
	run := result.Run
	assert.True(t, run.StepFlags[domain.StageDetection], "an estimated score still completes the stage")
	assert.True(t, run.Fallbacks[domain.StageDetection])
	assert.Equal(t, 20, run.AIScore)
	assert.Equal(t, 80, run.HumanScore)
}

func TestRun_HumanizationFallbackCountsAsCompleted(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	providers := fixtureProviders()
	providers.Humanizer = &mockHumanizer{humanizeFunc: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("humanizer down")
	}}

	o := newTestOrchestrator(providers, quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.NoError(t, err)
	run := result.Run
	assert.True(t, run.StepFlags[domain.StageHumanization], "pass-through still completes the stage")
	assert.True(t, run.Fallbacks[domain.StageHumanization])
	assert.Equal(t, run.RawContent, run.HumanizedContent, "raw content passes through unchanged")
}

func TestRun_GrammarFallbackCountsAsCompleted(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	providers := fixtureProviders()
	providers.Grammar = &mockGrammar{correctFunc: func(_ context.Context, _ string) (string, int, error) {
		return "", 0, errors.New("grammar service down")
	}}

	o := newTestOrchestrator(providers, quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.NoError(t, err)
	run := result.Run
	assert.True(t, run.StepFlags[domain.StageGrammar], "uncorrected text still completes the stage")
	assert.True(t, run.Fallbacks[domain.StageGrammar])
	assert.Equal(t, run.HumanizedContent, run.CorrectedContent)
	assert.Zero(t, run.CorrectionCount)
}

func TestRun_NotificationFailureDoesNotCompleteStage(t *testing.T) {
	// Unlike the text stages there is no substitute for a delivery: the
	// email either went out or it did not.
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	providers := fixtureProviders()
	providers.Mailer = &mockMailer{sendFunc: func(_ context.Context, _, _, _ string) error {
		return errors.New("smtp relay rejected")
	}}

	o := newTestOrchestrator(providers, quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.NoError(t, err, "a failed delivery never fails the run")
	run := result.Run
	assert.False(t, run.NotificationSent)
	assert.False(t, run.StepFlags[domain.StageNotification])
	assert.True(t, run.Fallbacks[domain.StageNotification])
}

func TestRun_AutomationRequested(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	auto := &mockAutomation{triggerFunc: func(_ context.Context, _ string) error { return nil }}
	providers := fixtureProviders()
	providers.Automation = auto

	req := validRequest()
	req.TriggerAutomation = true

	o := newTestOrchestrator(providers, quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.Run.AutomationFired)
	assert.Equal(t, 1, auto.calls)
}

func TestRun_AutomationNotRequestedNotInvoked(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	auto := &mockAutomation{triggerFunc: func(_ context.Context, _ string) error { return nil }}
	providers := fixtureProviders()
	providers.Automation = auto

	o := newTestOrchestrator(providers, quota, &mockPostStore{}, &mockLedger{}, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.NoError(t, err)
	assert.False(t, result.Run.AutomationFired)
	assert.Zero(t, auto.calls)
}

func TestRun_GuardConflict(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	guard := &mockGuard{acquireFunc: func(_ context.Context, _ string) error {
		return domain.ErrRunInProgress
	}}

	o := newTestOrchestrator(fixtureProviders(), quota, &mockPostStore{}, &mockLedger{}, guard)
	result, err := o.Run(context.Background(), validRequest())

	require.ErrorIs(t, err, domain.ErrRunInProgress)
	assert.Nil(t, result)
	assert.Zero(t, guard.released, "a lease that was never held must not be released")
}

func TestRun_GuardReleasedAfterRun(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	guard := &mockGuard{acquireFunc: func(_ context.Context, _ string) error { return nil }}

	o := newTestOrchestrator(fixtureProviders(), quota, &mockPostStore{}, &mockLedger{}, guard)
	_, err := o.Run(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, 1, guard.released)
}

func TestRun_PersistFailureFailsRun(t *testing.T) {
	quota := &mockQuotaStore{getFunc: func(_ context.Context, _ string) (*domain.QuotaAccount, error) {
		return meteredAccount(5), nil
	}}
	posts := &mockPostStore{insertFunc: func(_ context.Context, _ *domain.Post) error {
		return errors.New("connection reset")
	}}
	ledger := &mockLedger{}

	o := newTestOrchestrator(fixtureProviders(), quota, posts, ledger, nil)
	result, err := o.Run(context.Background(), validRequest())

	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Succeeded)
	require.Len(t, ledger.charges, 1)
	assert.False(t, ledger.charges[0].succeeded, "an unpersisted run must not be charged")
}
