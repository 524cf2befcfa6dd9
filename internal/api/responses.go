package api

import "github.com/gin-gonic/gin"

// Machine-readable error codes returned alongside HTTP status.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeAccountNotFound = "ACCOUNT_NOT_FOUND"
	CodePostNotFound    = "POST_NOT_FOUND"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeRunInProgress   = "RUN_IN_PROGRESS"
	CodePipelineFailed  = "PIPELINE_FAILED"
	CodeInternal        = "INTERNAL_ERROR"
)

// respondSuccess writes the standard success envelope.
func respondSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"status": "success",
		"data":   data,
	})
}

// respondError writes the standard error envelope.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"status":  "error",
		"error":   code,
		"message": message,
	})
}
