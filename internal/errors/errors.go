package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrRateLimit  ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Identity errors
	ErrUnauthenticated   ErrorCode = "UNAUTHENTICATED"
	ErrInvalidCredential ErrorCode = "INVALID_CREDENTIAL"

	// Service-specific errors
	ErrUnsupportedMedia ErrorCode = "UNSUPPORTED_MEDIA"
	ErrUpstream         ErrorCode = "UPSTREAM_FAILURE"
	ErrMisconfigured    ErrorCode = "MISCONFIGURED"
	ErrStore            ErrorCode = "STORE_FAILURE"
)

// AppError represents an application error with code and metadata.
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// HTTPStatus returns the HTTP status code for the error.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthenticated, ErrInvalidCredential:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Common error constructors
func Validation(message string) *AppError {
	return New(ErrValidation, message)
}

func Unauthenticated(message string) *AppError {
	return New(ErrUnauthenticated, message)
}

func InvalidCredential(message string, err error) *AppError {
	return Wrap(ErrInvalidCredential, message, err)
}

func UnsupportedMedia(message string) *AppError {
	return New(ErrUnsupportedMedia, message)
}

func Upstream(message string, err error) *AppError {
	return Wrap(ErrUpstream, message, err)
}

func Misconfigured(message string) *AppError {
	return New(ErrMisconfigured, message)
}

func Store(message string, err error) *AppError {
	return Wrap(ErrStore, message, err)
}

func RateLimit(message string) *AppError {
	return New(ErrRateLimit, message)
}
