// Package response standardizes the API envelope: every endpoint
// returns a success flag plus either data or a stable error code, and
// domain errors from the wallet core map onto those codes here rather
// than inside the core.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/papertrade/papertrade-api/internal/journal"
	"github.com/papertrade/papertrade-api/internal/ledger"
	"github.com/papertrade/papertrade-api/internal/orderbook"
)

// Response represents a standardized API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Wallet domain error codes.
const (
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	ErrCodeInsufficientHoldings = "INSUFFICIENT_HOLDINGS"
	ErrCodeAlreadyClaimed       = "ALREADY_CLAIMED"
	ErrCodeUpgradeRequired      = "UPGRADE_REQUIRED"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeOrderNotCancellable  = "ORDER_NOT_CANCELLABLE"
)

// Handle processes the error and returns the appropriate response.
// A nil error sends data as a success payload.
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		Fail(c, http.StatusBadRequest, ErrCodeInvalidAmount, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		Fail(c, http.StatusUnprocessableEntity, ErrCodeInsufficientBalance, err.Error())
	case errors.Is(err, ledger.ErrInsufficientHoldings):
		Fail(c, http.StatusUnprocessableEntity, ErrCodeInsufficientHoldings, err.Error())
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		Fail(c, http.StatusConflict, ErrCodeAlreadyClaimed, err.Error())
	case errors.Is(err, ledger.ErrUpgradeRequired):
		Fail(c, http.StatusForbidden, ErrCodeUpgradeRequired, err.Error())
	case errors.Is(err, orderbook.ErrOrderNotFound):
		Fail(c, http.StatusNotFound, ErrCodeOrderNotFound, err.Error())
	case errors.Is(err, orderbook.ErrOrderNotCancellable):
		Fail(c, http.StatusConflict, ErrCodeOrderNotCancellable, err.Error())
	case errors.Is(err, journal.ErrEntryNotFound):
		Fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "Resource not found")
	default:
		InternalError(c, "An unexpected error occurred")
	}
}

// Success sends a successful response.
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == http.MethodPost {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// Fail sends an error response with the given status and code.
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// BadRequest sends a 400 response.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response.
func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden sends a 403 response.
func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// InternalError sends a 500 response.
func InternalError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}
