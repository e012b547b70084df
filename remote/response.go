package remote

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCode defines machine-readable error codes for the remote API
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"      // 400 - Malformed request
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR" // 400 - Validation failed
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"        // 404 - Unknown route or session

	// Server errors (5xx)
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR" // 500 - Unexpected error
	ErrCodeNotAvailable ErrorCode = "NOT_AVAILABLE"  // 501 - Feature not wired in this deployment
)

// ErrorBody is the payload inside an error response
type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"` // Echoed on unknown routes
}

// ErrorResponse is the standard error response structure
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// SuccessResponse acknowledges a mutation
type SuccessResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// StatusResponse describes the endpoint
type StatusResponse struct {
	Service  string `json:"service"`
	Version  string `json:"version"`
	Waiting  int    `json:"waiting"`
	Launched int    `json:"launched"`
	Address  string `json:"address,omitempty"`
}

// TerminalResponse carries a session's transcript
type TerminalResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ReplyRequest is the body of POST /api/sessions/:id/reply
type ReplyRequest struct {
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code ErrorCode, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// RespondValidationError sends a 400 with a validation code
func RespondValidationError(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeValidation, message)
}

// RespondNotFound sends a 404 Not Found error
func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// RespondInternalError sends a 500 Internal Server Error
func RespondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, ErrCodeInternal, message)
}

// RespondNotAvailable sends a 501 for features this deployment does not wire up
func RespondNotAvailable(c *gin.Context, message string) {
	respondError(c, http.StatusNotImplemented, ErrCodeNotAvailable, message)
}

// RespondSuccess sends {"success": true}
func RespondSuccess(c *gin.Context, id string) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, ID: id})
}
