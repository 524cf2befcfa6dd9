package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/logger"
)

type mockRunner struct {
	runFunc func(ctx context.Context, req domain.ContentRequest) (*domain.RunResult, error)
	calls   int
}

func (m *mockRunner) Run(ctx context.Context, req domain.ContentRequest) (*domain.RunResult, error) {
	m.calls++
	return m.runFunc(ctx, req)
}

func successfulRun(req domain.ContentRequest) *domain.RunResult {
	run := domain.NewPipelineRun(req)
	run.RawContent = "raw"
	run.HumanizedContent = "humanized"
	run.CorrectedContent = "final post content"
	run.CorrectionCount = 2
	run.AIScore = 12
	run.HumanScore = 88
	run.NotificationSent = true
	run.StepFlags[domain.StageGeneration] = true
	run.StepFlags[domain.StageHumanization] = true
	run.StepFlags[domain.StageGrammar] = true
	run.StepFlags[domain.StageDetection] = true
	run.StepFlags[domain.StageNotification] = true
	return &domain.RunResult{Succeeded: true, Run: run, ProcessingTimeMs: 4200}
}

func newProcessRouter(runner ContentRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewProcessHandler(runner, logger.NewNop())
	router.POST("/api/v1/process-content", handler.Handle)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process-content", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProcessHandler_Success(t *testing.T) {
	runner := &mockRunner{runFunc: func(_ context.Context, req domain.ContentRequest) (*domain.RunResult, error) {
		return successfulRun(req), nil
	}}
	router := newProcessRouter(runner)

	w := postJSON(t, router, gin.H{
		"prompt":        "Why code review matters",
		"notifyAddress": "user@example.com",
		"requesterId":   "user-1",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			FinalContent     string          `json:"finalContent"`
			AIScore          int             `json:"aiScore"`
			HumanScore       int             `json:"humanScore"`
			NotificationSent bool            `json:"notificationSent"`
			StepFlags        map[string]bool `json:"stepFlags"`
			Fallbacks        map[string]bool `json:"fallbacks"`
			Metadata         struct {
				OriginalPrompt   string `json:"originalPrompt"`
				WasEnriched      bool   `json:"wasEnriched"`
				CorrectionCount  int    `json:"correctionCount"`
				ProcessingTimeMs int64  `json:"processingTimeMs"`
			} `json:"metadata"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "final post content", resp.Data.FinalContent)
	assert.Equal(t, 100, resp.Data.AIScore+resp.Data.HumanScore)
	assert.True(t, resp.Data.NotificationSent)
	assert.Len(t, resp.Data.StepFlags, 7, "every stage appears in stepFlags")
	assert.False(t, resp.Data.StepFlags["enrichment"])
	assert.True(t, resp.Data.StepFlags["generation"])
	assert.Equal(t, "Why code review matters", resp.Data.Metadata.OriginalPrompt)
	assert.False(t, resp.Data.Metadata.WasEnriched)
	assert.Equal(t, 2, resp.Data.Metadata.CorrectionCount)
	assert.Equal(t, int64(4200), resp.Data.Metadata.ProcessingTimeMs)
}

func TestProcessHandler_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
	}{
		{"missing prompt", gin.H{"notifyAddress": "user@example.com", "requesterId": "user-1"}},
		{"missing requester", gin.H{"prompt": "x", "notifyAddress": "user@example.com"}},
		{"missing notify address", gin.H{"prompt": "x", "requesterId": "user-1"}},
		{"malformed notify address", gin.H{"prompt": "x", "notifyAddress": "not-an-email", "requesterId": "user-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{runFunc: func(_ context.Context, _ domain.ContentRequest) (*domain.RunResult, error) {
				return nil, nil
			}}
			router := newProcessRouter(runner)

			w := postJSON(t, router, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, runner.calls, "rejected requests must not reach the pipeline")
			assert.Contains(t, w.Body.String(), CodeValidation)
		})
	}
}

func TestProcessHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown requester", domain.ErrAccountNotFound, http.StatusNotFound, CodeAccountNotFound},
		{"quota exhausted", domain.ErrQuotaExceeded, http.StatusForbidden, CodeQuotaExceeded},
		{"run in progress", domain.ErrRunInProgress, http.StatusConflict, CodeRunInProgress},
		{
			"generation failed",
			&domain.UpstreamError{Stage: domain.StageGeneration, Err: errors.New("model overloaded")},
			http.StatusInternalServerError,
			CodePipelineFailed,
		},
		{"unexpected failure", errors.New("connection reset"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{runFunc: func(_ context.Context, _ domain.ContentRequest) (*domain.RunResult, error) {
				return nil, tt.err
			}}
			router := newProcessRouter(runner)

			w := postJSON(t, router, gin.H{
				"prompt":        "x",
				"notifyAddress": "user@example.com",
				"requesterId":   "user-1",
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)

			var resp struct {
				Status string `json:"status"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
		})
	}
}
