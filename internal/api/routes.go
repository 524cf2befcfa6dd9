package api

import (
	"github.com/gin-gonic/gin"

	"github.com/postloop/content-pipeline/internal/auth"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Process *ProcessHandler
	Posts   *PostsHandler
	Account *AccountHandler

	// Metrics serves the Prometheus scrape endpoint; nil disables it.
	Metrics gin.HandlerFunc

	// JWTSecret guards the dashboard routes; empty disables auth.
	JWTSecret string
}

// RegisterRoutes mounts all API routes on the router.
func RegisterRoutes(router *gin.Engine, h Handlers) {
	if h.Metrics != nil {
		router.GET("/metrics", h.Metrics)
	}

	v1 := router.Group("/api/v1")

	// The pipeline endpoint is called server-to-server with the requester
	// id in the body; the dashboard endpoints carry a user token.
	v1.POST("/process-content", h.Process.Handle)

	dashboard := v1.Group("")
	dashboard.Use(auth.Middleware(h.JWTSecret))
	{
		dashboard.GET("/posts", h.Posts.List)
		dashboard.GET("/posts/:id", h.Posts.Get)
		dashboard.PATCH("/posts/:id", h.Posts.UpdateStatus)
		dashboard.DELETE("/posts/:id", h.Posts.Delete)

		dashboard.GET("/accounts/:requesterId/quota", h.Account.Quota)
		dashboard.GET("/accounts/:requesterId/usage", h.Account.Usage)
	}
}
