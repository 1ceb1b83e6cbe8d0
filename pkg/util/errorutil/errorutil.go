package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to API callers.
const (
	CodeValidation             = "VALIDATION_FAILED"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeMissingJustification   = "MISSING_JUSTIFICATION"
	CodeConflictingProcurement = "CONFLICTING_PROCUREMENT"
	CodeDuplicateResponse      = "DUPLICATE_RESPONSE"
	CodeInvalidWeights         = "INVALID_WEIGHTS"
	CodeConflict               = "CONFLICT"
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeUpstreamUnavailable    = "UPSTREAM_UNAVAILABLE"
	CodeInternal               = "INTERNAL_ERROR"
)

// Sentinels for errors.Is matching. Any DomainError with the same code matches.
var (
	ErrInvalidTransition      = &DomainError{Code: CodeInvalidTransition}
	ErrMissingJustification   = &DomainError{Code: CodeMissingJustification}
	ErrConflictingProcurement = &DomainError{Code: CodeConflictingProcurement}
	ErrDuplicateResponse      = &DomainError{Code: CodeDuplicateResponse}
	ErrInvalidWeights         = &DomainError{Code: CodeInvalidWeights}
	ErrConflict               = &DomainError{Code: CodeConflict}
	ErrNotFound               = &DomainError{Code: CodeNotFound}
	ErrForbidden              = &DomainError{Code: CodeForbidden}
	ErrUnauthorized           = &DomainError{Code: CodeUnauthorized}
	ErrUpstreamUnavailable    = &DomainError{Code: CodeUpstreamUnavailable}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so sentinels work across wrapped instances.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidTransition, message, http.StatusConflict, details)
}

func NewMissingJustification(message string, details map[string]any) error {
	return NewDomainError(CodeMissingJustification, message, http.StatusUnprocessableEntity, details)
}

func NewConflictingProcurement(message string, details map[string]any) error {
	return NewDomainError(CodeConflictingProcurement, message, http.StatusConflict, details)
}

func NewDuplicateResponse(message string, details map[string]any) error {
	return NewDomainError(CodeDuplicateResponse, message, http.StatusConflict, details)
}

func NewInvalidWeights(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidWeights, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewUpstreamUnavailable reports a transient failure of the persistence collaborator.
func NewUpstreamUnavailable(err error) error {
	return &DomainError{
		Code:       CodeUpstreamUnavailable,
		Message:    "upstream temporarily unavailable, please retry",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewUpstreamUnavailable(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError while keeping the error interface.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
