package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCredentialAvailable marks an empty or fully deactivated credential
	// pool. Operators must add or re-activate a key; callers must not retry.
	ErrNoCredentialAvailable = errors.New("no credential available")
	// ErrUpstreamGeneration marks a failed call to the generation provider.
	// Retrying the whole stage is safe and acquires a fresh credential.
	ErrUpstreamGeneration = errors.New("upstream generation error")
	ErrNotFound           = errors.New("not found")
	ErrPrecondition       = errors.New("precondition not met")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
)

// Kind is a stable classification string for logs and CLI output.
type Kind string

const (
	KindNoCredential  Kind = "no_credential"
	KindUpstream      Kind = "upstream"
	KindNotFound      Kind = "not_found"
	KindPrecondition  Kind = "precondition"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindUnknown       Kind = "unknown"
)

// ErrorDetails summarizes a wrapped error for structured logging.
type ErrorDetails struct {
	Kind      Kind
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUpstreamGeneration
	}
	wrapped := &stageError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
	if err != nil {
		wrapped.text = fmt.Sprintf("%s: %s: %s", marker.Error(), detail, err.Error())
	} else {
		wrapped.text = fmt.Sprintf("%s: %s", marker.Error(), detail)
	}
	return wrapped
}

type stageError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
	text      string
}

func (e *stageError) Error() string { return e.text }

func (e *stageError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// Classify maps an error onto its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNoCredentialAvailable):
		return KindNoCredential
	case errors.Is(err, ErrUpstreamGeneration):
		return KindUpstream
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// Retryable reports whether re-running the failed stage could succeed without
// operator action.
func Retryable(err error) bool {
	return Classify(err) == KindUpstream
}

// Details extracts the structured pieces of an error produced by Wrap. Errors
// from other sources report their text as the message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	details := ErrorDetails{Kind: Classify(err), Hint: hintFor(Classify(err))}
	var se *stageError
	if errors.As(err, &se) {
		details.Operation = se.operation
		details.Message = se.message
		details.Cause = se.cause
	}
	if details.Message == "" {
		details.Message = strings.TrimSpace(err.Error())
	}
	return details
}

func hintFor(kind Kind) string {
	switch kind {
	case KindNoCredential:
		return "add or re-activate a credential key"
	case KindUpstream:
		return "retry the stage; a different key may be selected"
	case KindNotFound:
		return "verify the project id"
	case KindPrecondition:
		return "run the earlier pipeline stages first"
	case KindValidation:
		return "check the request fields"
	case KindConfiguration:
		return "check the configuration file"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
