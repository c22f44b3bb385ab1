package api

import (
	"errors"
	"fmt"
)

// Kind buckets transport failures by how the caller must react.
type Kind int

const (
	// KindGeneric covers anything not matched below: shown inline with a
	// retry affordance, previously loaded data preserved.
	KindGeneric Kind = iota
	// KindAuth means the credential is missing or rejected (401): triggers
	// a login prompt, never a data reset.
	KindAuth
	// KindPermission means authenticated but disallowed (403): surfaced as
	// a transient, action-specific notice.
	KindPermission
	// KindServer is a 5xx: silently retried by the next poll tick, never
	// shown to the user.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindServer:
		return "server"
	default:
		return "generic"
	}
}

// Error is the typed failure returned by every Client call. Detail carries
// the backend's textual reason verbatim so callers can inspect permission
// denials for known substrings.
type Error struct {
	Kind       Kind
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api: %s (%d): %s", e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api: %s: %s", e.Kind, e.Detail)
}

func authError(detail string) *Error {
	return &Error{Kind: KindAuth, Detail: detail}
}

func classify(status int, detail string) *Error {
	e := &Error{StatusCode: status, Detail: detail}
	switch {
	case status == 401:
		e.Kind = KindAuth
	case status == 403:
		e.Kind = KindPermission
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindGeneric
	}
	return e
}

// KindOf extracts the failure kind from any error returned by this package.
// Non-API errors (network faults, context cancellation) are generic: the
// polling loops treat them as silently retryable in the same way.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindGeneric
}

// Reason returns the backend's textual detail for an error, if any.
func Reason(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}
