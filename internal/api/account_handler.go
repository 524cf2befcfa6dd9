package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/logger"
)

// QuotaReader fetches quota accounts.
type QuotaReader interface {
	Get(ctx context.Context, requesterID string) (*domain.QuotaAccount, error)
}

// UsageReader lists usage events.
type UsageReader interface {
	ListByRequester(ctx context.Context, requesterID string, limit int) ([]domain.UsageEvent, error)
}

// AccountHandler serves the quota and usage dashboard endpoints.
type AccountHandler struct {
	quota QuotaReader
	usage UsageReader
	log   logger.Logger
}

// NewAccountHandler creates an account handler.
func NewAccountHandler(quota QuotaReader, usage UsageReader, log logger.Logger) *AccountHandler {
	return &AccountHandler{quota: quota, usage: usage, log: log}
}

// Quota processes GET /api/v1/accounts/:requesterId/quota.
func (h *AccountHandler) Quota(c *gin.Context) {
	account, err := h.quota.Get(c.Request.Context(), c.Param("requesterId"))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			respondError(c, http.StatusNotFound, CodeAccountNotFound, "no account exists for this requester")
			return
		}
		h.log.Error("get quota failed", logger.Error(err))
		respondError(c, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}

	respondSuccess(c, http.StatusOK, account)
}

// Usage processes GET /api/v1/accounts/:requesterId/usage?limit=.
func (h *AccountHandler) Usage(c *gin.Context) {
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	events, err := h.usage.ListByRequester(c.Request.Context(), c.Param("requesterId"), limit)
	if err != nil {
		h.log.Error("list usage failed", logger.Error(err))
		respondError(c, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"events": events, "count": len(events)})
}
