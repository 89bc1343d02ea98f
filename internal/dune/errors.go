package dune

import (
	"fmt"
	"net/http"
)

// Kind classifies a failed adapter operation.
type Kind string

const (
	KindInvalidArgument  Kind = "invalid_argument"
	KindUpstreamError    Kind = "upstream_error"
	KindRateLimited      Kind = "rate_limited"
	KindPermissionDenied Kind = "permission_denied"
)

// Error is the only error type the adapter returns. Transport faults,
// bad statuses, and undecodable payloads are all folded into one of the
// kinds above before crossing the package boundary.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func upstreamf(format string, args ...any) *Error {
	return &Error{Kind: KindUpstreamError, Message: fmt.Sprintf(format, args...)}
}

// errorFromStatus maps a non-2xx upstream status to an error kind.
// 401 is included with 403: Dune reports a missing entitlement on some
// endpoints as an auth failure.
func errorFromStatus(status int, detail string) *Error {
	msg := fmt.Sprintf("unexpected status %d", status)
	if detail != "" {
		msg = fmt.Sprintf("unexpected status %d: %s", status, detail)
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Message: msg}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindPermissionDenied, Message: msg}
	default:
		return &Error{Kind: KindUpstreamError, Message: msg}
	}
}
