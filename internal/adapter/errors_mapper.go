package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// serviceError is the body of a failed call.
type serviceError struct {
	ErrorCode         int    `json:"errorCode"`
	Parameter         string `json:"parameter"`
	Message           string `json:"message"`
	RateLimitDuration int    `json:"rateLimitDuration"`
	Identifier        string `json:"identifier"`
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	var se serviceError
	_ = json.Unmarshal(resp.Body(), &se)

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests || se.ErrorCode == CodeRateLimitReached:
		if se.RateLimitDuration > 0 {
			return &RateLimitError{Duration: time.Duration(se.RateLimitDuration) * time.Second}
		}
		return &RateLimitError{Duration: retryAfter(resp.Header().Get("Retry-After"), time.Now())}
	case resp.StatusCode() == http.StatusUnauthorized || se.ErrorCode == CodeAuthExpired:
		return fmt.Errorf("%w: %s", ErrAuthExpired, body)
	case se.ErrorCode == CodeDataConflict || resp.StatusCode() == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrDataConflict, body)
	case resp.StatusCode() == http.StatusNotFound || se.Identifier != "":
		return fmt.Errorf("%w: %s %s", ErrNotFound, se.Identifier, se.Message)
	case se.ErrorCode != 0:
		return &EDAMError{Code: se.ErrorCode, Parameter: se.Parameter, Message: se.Message}
	default:
		if body == "" {
			body = http.StatusText(resp.StatusCode())
		}
		return &EDAMError{Code: CodeUnknown, Message: fmt.Sprintf("http %d: %s", resp.StatusCode(), body)}
	}
}

// retryAfter reads a Retry-After header in either the delay-seconds or the
// HTTP-date form. Anything unparsable yields 0.
func retryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0
	}
	return at.Sub(now).Round(time.Second)
}
