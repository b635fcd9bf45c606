package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a failed gateway call.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
	KindServerError
	KindTimeout
	KindNetworkError
	KindMalformedResponse
	KindValidationError
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindTimeout:
		return "timeout"
	case KindNetworkError:
		return "network_error"
	case KindMalformedResponse:
		return "malformed_response"
	case KindValidationError:
		return "validation_error"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, gateway.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrServerError       = &Error{Kind: KindServerError}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrNetwork           = &Error{Kind: KindNetworkError}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrValidation        = &Error{Kind: KindValidationError}
)

// KindOf extracts the Kind from err, or KindUnknown when err did not come from the gateway.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindUnknown
}

// UserMessage turns err into the short text shown in an error banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindUnauthorized:
		return "Unauthorized: please log in again."
	case KindForbidden:
		return "Forbidden: you do not have permission."
	case KindNotFound:
		return "Not found: the item no longer exists."
	case KindRateLimited:
		return "Too many requests: please try again later."
	case KindServerError:
		return "Server error: please try again later."
	case KindTimeout:
		return "Request timed out: the server took too long to respond."
	case KindNetworkError:
		return "Network error: check your connection and try again."
	case KindMalformedResponse:
		return "Unexpected response from the server."
	case KindValidationError:
		var gwErr *Error
		if errors.As(err, &gwErr) && gwErr.Message != "" {
			return "Invalid data: " + gwErr.Message
		}
		return "Invalid data."
	default:
		return "Something went wrong: " + err.Error()
	}
}

func validationError(op, msg string, err error) *Error {
	return &Error{Kind: KindValidationError, Op: op, Message: msg, Err: err}
}
