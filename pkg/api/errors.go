package api

import (
	"fmt"
	"net/http"
	"strings"

	cerrors "github.com/cockroachdb/errors"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
)

// Sentinels for the error taxonomy. Match them with cockroachdb/errors.Is or use KindOf.
var (
	ErrNetwork      = cerrors.New("api: network failure")
	ErrUnauthorized = cerrors.New("api: unauthorized")
	ErrValidation   = cerrors.New("api: validation failed")
	ErrConflict     = cerrors.New("api: conflict")
	ErrNotFound     = cerrors.New("api: not found")
	ErrServer       = cerrors.New("api: server error")
	ErrRequest      = cerrors.New("api: request rejected")
)

// APIError is a classified failure. StatusCode is zero for network failures.
type APIError struct {
	Kind       tripdesk.ErrorKind
	StatusCode int
	Message    string
	Fields     map[string][]string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api: %s %s: %s", e.Method, e.Path, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// ErrorKind implements tripdesk.ClassifiedError.
func (e *APIError) ErrorKind() tripdesk.ErrorKind { return e.Kind }

// ServerMessage implements tripdesk.ClassifiedError.
func (e *APIError) ServerMessage() string { return e.Message }

// FieldErrors implements tripdesk.ClassifiedError.
func (e *APIError) FieldErrors() map[string][]string { return e.Fields }

// KindOf returns the taxonomy kind of err, or "" when err is not an API error.
func KindOf(err error) tripdesk.ErrorKind {
	var apiErr *APIError
	if cerrors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// Retryable reports whether a failure is transient.
func Retryable(err error) bool {
	var apiErr *APIError
	if !cerrors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case tripdesk.ErrorNetwork, tripdesk.ErrorServer:
		return true
	}
	return apiErr.StatusCode == http.StatusTooManyRequests
}

func sentinelFor(kind tripdesk.ErrorKind) error {
	switch kind {
	case tripdesk.ErrorNetwork:
		return ErrNetwork
	case tripdesk.ErrorUnauthorized:
		return ErrUnauthorized
	case tripdesk.ErrorValidation:
		return ErrValidation
	case tripdesk.ErrorConflict:
		return ErrConflict
	case tripdesk.ErrorNotFound:
		return ErrNotFound
	case tripdesk.ErrorServer:
		return ErrServer
	default:
		return ErrRequest
	}
}

func classifyStatus(status int, fields map[string][]string) tripdesk.ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return tripdesk.ErrorUnauthorized
	case status == http.StatusUnprocessableEntity:
		return tripdesk.ErrorValidation
	case status == http.StatusBadRequest && len(fields) > 0:
		return tripdesk.ErrorValidation
	case status == http.StatusConflict:
		return tripdesk.ErrorConflict
	case status == http.StatusNotFound:
		return tripdesk.ErrorNotFound
	case status >= 500:
		return tripdesk.ErrorServer
	default:
		return tripdesk.ErrorRequest
	}
}

func newAPIError(method, path string, status int, message string, fields map[string][]string) error {
	kind := classifyStatus(status, fields)
	apiErr := &APIError{
		Kind:       kind,
		StatusCode: status,
		Message:    message,
		Fields:     fields,
		Method:     method,
		Path:       path,
	}
	return cerrors.Mark(apiErr, sentinelFor(kind))
}

func networkError(method, path string, cause error) error {
	apiErr := &APIError{
		Kind:    tripdesk.ErrorNetwork,
		Message: cause.Error(),
		Method:  method,
		Path:    path,
	}
	return cerrors.Mark(cerrors.WithSecondaryError(apiErr, cause), ErrNetwork)
}
