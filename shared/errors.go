package shared

import (
	"errors"
	"fmt"
)

// Kind identifies a workflow error class. The presentation layer keys off
// these values, so they are stable strings rather than sentinel errors.
type Kind string

const (
	// KindMalformedResponse means the model text did not yield valid or
	// complete JSON. Never retried: the content is wrong, not the transport.
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"

	// KindAnalysisEmpty means the first debug stage produced nothing usable,
	// so the correction stage was never attempted.
	KindAnalysisEmpty Kind = "ANALYSIS_EMPTY"

	// KindRateLimited is a transient 429 from the backend, surfaced after
	// retries are exhausted.
	KindRateLimited Kind = "RATE_LIMITED"

	// KindBackendUnavailable is a transient 5xx from the backend, surfaced
	// after retries are exhausted.
	KindBackendUnavailable Kind = "BACKEND_UNAVAILABLE"

	// KindCancelled means the operation was superseded by a newer request or
	// an explicit reset.
	KindCancelled Kind = "CANCELLED"

	// KindInternal covers everything that has no more specific class.
	KindInternal Kind = "INTERNAL"
)

// Error carries a kind plus a human-readable message for the presentation layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewMalformedResponse(msg string) *Error {
	return &Error{Kind: KindMalformedResponse, Message: msg}
}

func NewAnalysisEmpty() *Error {
	return &Error{
		Kind:    KindAnalysisEmpty,
		Message: "debug analysis came back empty; nothing to ground a correction on",
	}
}

func NewRateLimited(err error) *Error {
	return &Error{Kind: KindRateLimited, Message: "model backend rate limited the request", Err: err}
}

func NewBackendUnavailable(err error) *Error {
	return &Error{Kind: KindBackendUnavailable, Message: "model backend unavailable", Err: err}
}

func NewCancelled() *Error {
	return &Error{Kind: KindCancelled, Message: "cancelled"}
}

// IsKind reports whether err is (or wraps) an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
