package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/logger"
)

// ContentRunner runs the content pipeline for one request.
type ContentRunner interface {
	Run(ctx context.Context, req domain.ContentRequest) (*domain.RunResult, error)
}

// ProcessHandler serves the main pipeline endpoint.
type ProcessHandler struct {
	runner ContentRunner
	log    logger.Logger
}

// NewProcessHandler creates a process handler.
func NewProcessHandler(runner ContentRunner, log logger.Logger) *ProcessHandler {
	return &ProcessHandler{runner: runner, log: log}
}

type processMetadata struct {
	OriginalPrompt   string `json:"originalPrompt"`
	WasEnriched      bool   `json:"wasEnriched"`
	CorrectionCount  int    `json:"correctionCount"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

type processResponse struct {
	FinalContent        string              `json:"finalContent"`
	AIScore             int                 `json:"aiScore"`
	HumanScore          int                 `json:"humanScore"`
	NotificationSent    bool                `json:"notificationSent"`
	AutomationTriggered bool                `json:"automationTriggered"`
	ProfileSnapshot     *domain.ProfileData `json:"profileSnapshot,omitempty"`
	StepFlags           map[string]bool     `json:"stepFlags"`
	Fallbacks           map[string]bool     `json:"fallbacks"`
	Metadata            processMetadata     `json:"metadata"`
}

// Handle processes POST /api/v1/process-content.
func (h *ProcessHandler) Handle(c *gin.Context) {
	var req domain.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	result, err := h.runner.Run(c.Request.Context(), req)
	if err != nil {
		h.respondRunError(c, req.RequesterID, err)
		return
	}

	respondSuccess(c, http.StatusOK, buildProcessResponse(result))
}

func (h *ProcessHandler) respondRunError(c *gin.Context, requesterID string, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		respondError(c, http.StatusNotFound, CodeAccountNotFound, "no account exists for this requester")
	case errors.Is(err, domain.ErrQuotaExceeded):
		respondError(c, http.StatusForbidden, CodeQuotaExceeded, "no credits remaining")
	case errors.Is(err, domain.ErrRunInProgress):
		respondError(c, http.StatusConflict, CodeRunInProgress, "a run for this requester is already in progress")
	default:
		h.log.Error("pipeline run failed",
			logger.String("requester_id", requesterID),
			logger.Error(err))

		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			respondError(c, http.StatusInternalServerError, CodePipelineFailed, "content generation failed")
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

// buildProcessResponse flattens a run into the response contract. Every
// stage appears in stepFlags and fallbacks, stages that never ran as false.
func buildProcessResponse(result *domain.RunResult) processResponse {
	run := result.Run

	stepFlags := make(map[string]bool, len(domain.AllStages()))
	fallbacks := make(map[string]bool, len(domain.AllStages()))
	for _, stage := range domain.AllStages() {
		stepFlags[string(stage)] = run.StepFlags[stage]
		fallbacks[string(stage)] = run.Fallbacks[stage]
	}

	return processResponse{
		FinalContent:        run.CorrectedContent,
		AIScore:             run.AIScore,
		HumanScore:          run.HumanScore,
		NotificationSent:    run.NotificationSent,
		AutomationTriggered: run.AutomationFired,
		ProfileSnapshot:     run.ProfileSnapshot,
		StepFlags:           stepFlags,
		Fallbacks:           fallbacks,
		Metadata: processMetadata{
			OriginalPrompt:   run.Request.Prompt,
			WasEnriched:      run.StepFlags[domain.StageEnrichment],
			CorrectionCount:  run.CorrectionCount,
			ProcessingTimeMs: result.ProcessingTimeMs,
		},
	}
}
