package error

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes for different categories
const (
	// Authentication Errors (1xxx)
	ErrCodeMissingToken ErrorCode = "AUTH_1001"
	ErrCodeInvalidToken ErrorCode = "AUTH_1003"
	ErrCodeTokenExpired ErrorCode = "AUTH_1004"

	// Validation Errors (2xxx)
	ErrCodeInvalidQuery        ErrorCode = "VALID_2001"
	ErrCodeInvalidExportFormat ErrorCode = "VALID_2002"
	ErrCodeInvalidPayload      ErrorCode = "VALID_2003"
	ErrCodeInvalidRequest      ErrorCode = "VALID_2005"

	// Rate Limiting Errors (3xxx)
	ErrCodeRateLimitExceeded ErrorCode = "RATE_3001"

	// Database Errors (5xxx)
	ErrCodeDatabaseError   ErrorCode = "DB_5001"
	ErrCodeMigrationFailed ErrorCode = "DB_5002"

	// Server Errors (6xxx)
	ErrCodeInternalServerError ErrorCode = "SERVER_6001"
	ErrCodeServiceUnavailable  ErrorCode = "SERVER_6002"
	ErrCodeConfigurationError  ErrorCode = "SERVER_6003"
	ErrCodeExportFailed        ErrorCode = "SERVER_6005"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Authentication errors
func ErrMissingToken() *AppError {
	return NewAppError(ErrCodeMissingToken, "Authorization header required", "", nil)
}

func ErrInvalidToken(details string) *AppError {
	return NewAppError(ErrCodeInvalidToken, "Invalid token", details, nil)
}

func ErrTokenExpired(details string) *AppError {
	return NewAppError(ErrCodeTokenExpired, "Token has expired", details, nil)
}

// Validation errors
func ErrInvalidQuery(param, value string) *AppError {
	return NewAppError(ErrCodeInvalidQuery, "Invalid query parameter", fmt.Sprintf("%s: %s", param, value), nil)
}

func ErrInvalidExportFormat(format string) *AppError {
	return NewAppError(ErrCodeInvalidExportFormat, "Unsupported export format", fmt.Sprintf("Format: %s", format), nil)
}

func ErrInvalidPayload(details string, cause error) *AppError {
	return NewAppError(ErrCodeInvalidPayload, "Invalid request payload", details, cause)
}

func ErrMissingField(field string) *AppError {
	return NewAppError(ErrCodeInvalidRequest, "Missing required field", fmt.Sprintf("Field: %s", field), nil)
}

// Rate limiting errors
func ErrRateLimitExceeded(attempts int, window string) *AppError {
	return NewAppError(ErrCodeRateLimitExceeded, "Too many requests", fmt.Sprintf("Attempts: %d, Window: %s", attempts, window), nil)
}

// Database errors
func ErrDatabaseError(operation string, cause error) *AppError {
	return NewAppError(ErrCodeDatabaseError, "Database operation failed", fmt.Sprintf("Operation: %s", operation), cause)
}

func ErrMigrationFailed(version string, cause error) *AppError {
	return NewAppError(ErrCodeMigrationFailed, "Migration failed", fmt.Sprintf("Version: %s", version), cause)
}

// Server errors
func ErrInternalServerError(details string, cause error) *AppError {
	return NewAppError(ErrCodeInternalServerError, "Internal server error", details, cause)
}

func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(ErrCodeServiceUnavailable, "Service temporarily unavailable", fmt.Sprintf("Service: %s", service), nil)
}

func ErrConfigurationError(config string) *AppError {
	return NewAppError(ErrCodeConfigurationError, "Configuration error", fmt.Sprintf("Config: %s", config), nil)
}

func ErrExportFailed(format string, cause error) *AppError {
	return NewAppError(ErrCodeExportFailed, "Export failed", fmt.Sprintf("Format: %s", format), cause)
}

// Category returns the code prefix, e.g. "AUTH" for "AUTH_1003"
func (c ErrorCode) Category() string {
	prefix, _, _ := strings.Cut(string(c), "_")
	return prefix
}

// GetHTTPStatusCode maps an error to its HTTP status by code category
func GetHTTPStatusCode(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code.Category() {
	case "AUTH":
		return http.StatusUnauthorized
	case "VALID":
		return http.StatusBadRequest
	case "RATE":
		return http.StatusTooManyRequests
	case "DB":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AsAppError returns err as an *AppError, wrapping unknown errors as internal
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError(err.Error(), err)
}
