package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures so transports can map them to status codes.
type Kind string

const (
	KindConfig        Kind = "config"
	KindValidation    Kind = "validation"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindUpstream      Kind = "upstream"
	KindInternal      Kind = "internal"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Kind       Kind           `json:"-"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Details    map[string]any `json:"-"`
	Internal   error          `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithDetail returns a copy of the AppError carrying an extra diagnostic field.
// Details are rendered next to the message so operators can see what upstream answered.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cpy.Details[k] = v
	}
	cpy.Details[key] = value
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrNotFound = &AppError{
		Kind:       KindValidation,
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrInternalServer = &AppError{
		Kind:       KindInternal,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Kind:       KindQuotaExceeded,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrQuotaExceeded = &AppError{
		Kind:       KindQuotaExceeded,
		Code:       "QUOTA_EXCEEDED",
		Message:    "Daily image generation limit reached",
		StatusCode: http.StatusTooManyRequests,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Kind:       kindForStatus(statusCode),
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewConfig reports a missing or invalid deployment secret. Not retryable.
func NewConfig(message string) *AppError {
	return &AppError{
		Kind:       KindConfig,
		Code:       "CONFIG_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewValidation reports a missing or malformed request parameter.
func NewValidation(message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewUpstream reports a failed call to a third-party API.
func NewUpstream(message string, err error) *AppError {
	return &AppError{
		Kind:       KindUpstream,
		Code:       "UPSTREAM_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindQuotaExceeded
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindInternal
	}
}
