package google

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// BackendErrorKind classifies calendar backend failures
type BackendErrorKind int

const (
	// BackendFatal is a non-retryable backend failure surfaced verbatim
	BackendFatal BackendErrorKind = iota

	// BackendAuth means the user's credentials were rejected or expired
	BackendAuth

	// BackendTransient is retryable once (rate limit, timeout, 5xx)
	BackendTransient

	// BackendNotFound means the referenced event no longer exists
	BackendNotFound
)

// String returns a human-readable description of the error kind
func (k BackendErrorKind) String() string {
	switch k {
	case BackendAuth:
		return "auth"
	case BackendTransient:
		return "transient"
	case BackendNotFound:
		return "not-found"
	default:
		return "fatal"
	}
}

// BackendError wraps a calendar API failure with its classification.
// Distinct from tool validation errors: these originate in the backend.
type BackendError struct {
	Op   string
	Kind BackendErrorKind
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("calendar backend %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// wrapBackendErr classifies err and wraps it as a *BackendError
func wrapBackendErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) BackendErrorKind {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return BackendAuth
		case apiErr.Code == 404 || apiErr.Code == 410:
			return BackendNotFound
		case apiErr.Code == 408 || apiErr.Code == 429 || apiErr.Code >= 500:
			return BackendTransient
		default:
			return BackendFatal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return BackendTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return BackendTransient
	}

	return BackendFatal
}

// IsAuthError reports whether err is a backend credential failure
func IsAuthError(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == BackendAuth
}

// IsTransientError reports whether err is a retryable backend failure
func IsTransientError(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == BackendTransient
}

// IsNotFoundError reports whether err means the target event does not exist
func IsNotFoundError(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == BackendNotFound
}
