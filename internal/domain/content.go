// Package domain contains the core domain models for the content pipeline.
package domain

import (
	"math"
	"strings"
	"time"
)

// Stage represents a named step in the content pipeline.
type Stage string

const (
	// StageEnrichment scrapes the optional profile URL and extends the prompt.
	StageEnrichment Stage = "enrichment"
	// StageGeneration produces the raw post text. The only fatal stage.
	StageGeneration Stage = "generation"
	// StageHumanization rewrites the raw text to read less machine-generated.
	StageHumanization Stage = "humanization"
	// StageGrammar applies grammar corrections to the humanized text.
	StageGrammar Stage = "grammar"
	// StageDetection scores the corrected text for AI likelihood.
	StageDetection Stage = "detection"
	// StageNotification delivers the finished post by email.
	StageNotification Stage = "notification"
	// StageAutomation fires the optional browser-automation launch.
	StageAutomation Stage = "automation"
)

// stageCount is the number of pipeline stages (used for pre-allocation).
const stageCount = 7

// AllStages returns every pipeline stage in execution order.
func AllStages() []Stage {
	stages := make([]Stage, 0, stageCount)
	stages = append(stages,
		StageEnrichment, StageGeneration, StageHumanization,
		StageGrammar, StageDetection, StageNotification, StageAutomation,
	)
	return stages
}

// ContentRequest is the input to the pipeline.
type ContentRequest struct {
	Prompt            string `binding:"required"       json:"prompt"`
	NotifyAddress     string `binding:"required,email" json:"notifyAddress"`
	EnrichmentSource  string `json:"enrichmentSource,omitempty"`
	TriggerAutomation bool   `json:"triggerAutomation,omitempty"`
	RequesterID       string `binding:"required"       json:"requesterId"`
}

// ProfileData is the structured profile returned by the scraping provider.
type ProfileData struct {
	Name     string `json:"name"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

// PipelineRun is the state accumulated across the stage sequence. A run is
// created fresh per request and mutated strictly left to right; it is never
// shared across requests.
type PipelineRun struct {
	StartedAt        time.Time
	Request          ContentRequest
	EnrichedPrompt   string
	ProfileSnapshot  *ProfileData
	RawContent       string
	HumanizedContent string
	CorrectedContent string
	CorrectionCount  int
	AIScore          int
	HumanScore       int
	NotificationSent bool
	AutomationFired  bool
	StepFlags        map[Stage]bool
	Fallbacks        map[Stage]bool
}

// NewPipelineRun creates the run state for a request. The enriched prompt
// starts equal to the raw prompt; only the enrichment stage may replace it.
func NewPipelineRun(req ContentRequest) *PipelineRun {
	return &PipelineRun{
		StartedAt:      time.Now().UTC(),
		Request:        req,
		EnrichedPrompt: req.Prompt,
		StepFlags:      make(map[Stage]bool, stageCount),
		Fallbacks:      make(map[Stage]bool, stageCount),
	}
}

// RunResult is the outcome handed back to the transport layer.
type RunResult struct {
	Succeeded        bool
	Run              *PipelineRun
	ProcessingTimeMs int64
}

// maxBioLength bounds the profile summary appended to the prompt.
const maxBioLength = 200

// EnrichPrompt appends a bounded profile summary to the raw prompt as
// structured context for the generation stage.
func EnrichPrompt(prompt string, profile ProfileData) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nAuthor context:")
	if profile.Name != "" {
		b.WriteString("\nName: ")
		b.WriteString(profile.Name)
	}
	if profile.Headline != "" {
		b.WriteString("\nHeadline: ")
		b.WriteString(profile.Headline)
	}
	if profile.Summary != "" {
		b.WriteString("\nBio: ")
		b.WriteString(TruncateBio(profile.Summary))
	}
	return b.String()
}

// TruncateBio caps a profile summary at maxBioLength characters.
func TruncateBio(bio string) string {
	runes := []rune(bio)
	if len(runes) <= maxBioLength {
		return bio
	}
	return string(runes[:maxBioLength])
}

// DeriveScores converts a detection probability p into the pair of integer
// scores reported to the caller. The pair always sums to 100; p is clamped
// to [0, 1] first.
func DeriveScores(p float64) (aiScore, humanScore int) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	aiScore = int(math.Round(p * 100))
	humanScore = 100 - aiScore
	return aiScore, humanScore
}
