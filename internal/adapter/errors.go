package adapter

import (
	"errors"
	"fmt"
	"time"
)

// Service error codes carried in the errorCode field of an error response.
const (
	CodeUnknown          = 1
	CodeBadDataFormat    = 2
	CodePermissionDenied = 3
	CodeInternalError    = 4
	CodeDataRequired     = 5
	CodeLimitReached     = 6
	CodeQuotaReached     = 7
	CodeInvalidAuth      = 8
	CodeAuthExpired      = 9
	CodeDataConflict     = 10
	CodeRateLimitReached = 19
)

var (
	// ErrAuthExpired means the auth token is no longer accepted and the
	// user has to authenticate again.
	ErrAuthExpired = errors.New("authentication token expired")
	// ErrDataConflict means an upload was based on stale remote state.
	ErrDataConflict = errors.New("remote data conflict")
	// ErrNotFound means the requested remote entity does not exist.
	ErrNotFound = errors.New("remote entity not found")
	// ErrInvalidResponse means the service answered with a body that could
	// not be decoded.
	ErrInvalidResponse = errors.New("invalid service response")
)

// RateLimitError means the service refused the call until Duration passes.
type RateLimitError struct {
	Duration time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit reached, retry after %s", e.Duration)
}

// EDAMError is any other error reported by the service.
type EDAMError struct {
	Code      int
	Parameter string
	Message   string
}

func (e *EDAMError) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.Code, e.Parameter, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.Code, e.Message)
}

// AsRateLimit reports whether err is a rate limit error and returns the wait.
func AsRateLimit(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.Duration, true
	}
	return 0, false
}
