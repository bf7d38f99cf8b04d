package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrPermissionDeny = errors.New("permission denied")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrServer         = errors.New("server error")
	ErrTransport      = errors.New("transport failure")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidationFailed   = errors.New("validation failed")
	ErrNoToken            = errors.New("no authentication token")

	ErrDuplicateScreen   = errors.New("screen already assigned to role")
	ErrScreenNotAssigned = errors.New("screen not assigned to role")
	ErrMutationInFlight  = errors.New("another change to this role is in progress")
)

// ErrorKind classifies a backend failure by its HTTP status.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindForbidden  ErrorKind = "forbidden"
	KindNotFound   ErrorKind = "not_found"
	KindServer     ErrorKind = "server"
	KindUnknown    ErrorKind = "unknown"
)

func KindForStatus(status int) ErrorKind {
	switch {
	case status == 400 || status == 422:
		return KindValidation
	case status == 401:
		return KindAuth
	case status == 403:
		return KindForbidden
	case status == 404:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// APIError is the single error type produced for non-2xx backend responses.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Display()
}

// Display renders the message decorated with its category marker.
func (e *APIError) Display() string {
	var label string
	switch e.Kind {
	case KindValidation:
		label = "Validation error"
	case KindAuth:
		label = "Authentication error"
	case KindForbidden:
		label = "Forbidden"
	case KindNotFound:
		label = "Not found"
	case KindServer:
		label = "Server error"
	default:
		return e.Message
	}
	if e.Message == "" {
		return label
	}
	return label + ": " + e.Message
}

func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrInvalidInput
	case KindAuth:
		return target == ErrUnauthorized
	case KindForbidden:
		return target == ErrPermissionDeny
	case KindNotFound:
		return target == ErrNotFound
	case KindServer:
		return target == ErrServer
	}
	return false
}

// StatusIs reports whether err is an APIError with the given HTTP status.
func StatusIs(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// AuthError is returned by login flows. Reason is ErrInvalidCredentials or ErrValidationFailed.
type AuthError struct {
	Reason error
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Cause == nil {
		return e.Reason.Error()
	}
	var apiErr *APIError
	if errors.As(e.Cause, &apiErr) && apiErr.Message != "" {
		return e.Reason.Error() + ": " + apiErr.Message
	}
	return e.Reason.Error() + ": " + e.Cause.Error()
}

func (e *AuthError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}

// JoinMessages merges field level messages into one display string.
func JoinMessages(msgs []string) string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return strings.Join(out, "; ")
}
