package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingInput    = errors.New("missing input")
	ErrExternalService = errors.New("external service error")
	ErrParse           = errors.New("parse error")
	ErrTimeout         = errors.New("timeout")
	ErrPartialBatch    = errors.New("partial batch failure")
	ErrConfiguration   = errors.New("configuration error")
)

// ErrorKind is the stable, log-friendly name of an error marker.
type ErrorKind string

const (
	ErrorKindMissingInput    ErrorKind = "missing_input"
	ErrorKindExternalService ErrorKind = "external_service"
	ErrorKindParse           ErrorKind = "parse"
	ErrorKindTimeout         ErrorKind = "timeout"
	ErrorKindPartialBatch    ErrorKind = "partial_batch"
	ErrorKindConfiguration   ErrorKind = "configuration"
	ErrorKindUnknown         ErrorKind = "unknown"
)

// Error carries the stage context of a failure alongside its marker.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap builds an error that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrExternalService
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// ErrorDetails is the flattened view of an error used by logs and run results.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts classification details from err. Errors that were not
// produced by Wrap still get a best-effort kind.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindOf(err), Message: strings.TrimSpace(err.Error())}
	var wrapped *Error
	if errors.As(err, &wrapped) {
		details.Stage = wrapped.Stage
		details.Operation = wrapped.Operation
		if wrapped.Message != "" {
			details.Message = wrapped.Message
		}
		details.Cause = wrapped.Err
	}
	return details
}

// KindOf maps err to its marker kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return ErrorKindMissingInput
	case errors.Is(err, ErrParse):
		return ErrorKindParse
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, ErrPartialBatch):
		return ErrorKindPartialBatch
	case errors.Is(err, ErrConfiguration):
		return ErrorKindConfiguration
	case errors.Is(err, ErrExternalService):
		return ErrorKindExternalService
	default:
		return ErrorKindUnknown
	}
}

// IsRetryable reports whether err is worth another attempt against a delegate.
// Cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrExternalService) || errors.Is(err, ErrTimeout)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
