package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/logger"
)

// Pagination bounds for list endpoints.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PostStore is the slice of the post repository the dashboard needs.
type PostStore interface {
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	ListByRequester(ctx context.Context, requesterID string, limit, offset int) ([]domain.Post, error)
	UpdateStatus(ctx context.Context, id string, status domain.PostStatus) error
	Delete(ctx context.Context, id string) error
}

// PostsHandler serves the dashboard post endpoints.
type PostsHandler struct {
	posts PostStore
	log   logger.Logger
}

// NewPostsHandler creates a posts handler.
func NewPostsHandler(posts PostStore, log logger.Logger) *PostsHandler {
	return &PostsHandler{posts: posts, log: log}
}

// List processes GET /api/v1/posts?requesterId=&limit=&offset=.
func (h *PostsHandler) List(c *gin.Context) {
	requesterID := c.Query("requesterId")
	if requesterID == "" {
		respondError(c, http.StatusBadRequest, CodeValidation, "requesterId is required")
		return
	}

	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := parsePositiveInt(c.Query("offset"), 0)

	posts, err := h.posts.ListByRequester(c.Request.Context(), requesterID, limit, offset)
	if err != nil {
		h.log.Error("list posts failed", logger.Error(err))
		respondError(c, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

// Get processes GET /api/v1/posts/:id.
func (h *PostsHandler) Get(c *gin.Context) {
	post, err := h.posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondPostError(c, err, "get post failed")
		return
	}

	respondSuccess(c, http.StatusOK, post)
}

type updateStatusRequest struct {
	Status domain.PostStatus `binding:"required" json:"status"`
}

// UpdateStatus processes PATCH /api/v1/posts/:id.
func (h *PostsHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}
	if !req.Status.IsValid() {
		respondError(c, http.StatusBadRequest, CodeValidation, "status must be draft, published or archived")
		return
	}

	if err := h.posts.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		h.respondPostError(c, err, "update post status failed")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"id": c.Param("id"), "postStatus": req.Status})
}

// Delete processes DELETE /api/v1/posts/:id.
func (h *PostsHandler) Delete(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondPostError(c, err, "delete post failed")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"id": c.Param("id"), "deleted": true})
}

func (h *PostsHandler) respondPostError(c *gin.Context, err error, logMsg string) {
	if errors.Is(err, domain.ErrPostNotFound) {
		respondError(c, http.StatusNotFound, CodePostNotFound, "post not found")
		return
	}
	h.log.Error(logMsg, logger.Error(err))
	respondError(c, http.StatusInternalServerError, CodeInternal, "internal error")
}

// parsePositiveInt parses s as a non-negative int, returning fallback for
// anything missing or malformed.
func parsePositiveInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
