package scanning

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrUnavailable marks a transient "service unavailable" response from the
// extraction backend. Only errors wrapping it are retried.
var ErrUnavailable = errors.New("extraction service unavailable")

// ExtractionError is returned when a receipt could not be turned into
// structured data
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// unavailableError wraps a backend error so that it matches ErrUnavailable
// while keeping the original message
type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("%v: %v", ErrUnavailable, e.err)
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrUnavailable, e.err}
}

// classify marks err as unavailable when the backend reported HTTP 503 or
// gRPC Unavailable
func classify(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusServiceUnavailable {
		return &unavailableError{err: err}
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.Unavailable {
		return &unavailableError{err: err}
	}
	return err
}
