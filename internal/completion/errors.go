package completion

import (
	"fmt"
	"time"
)

// ConfigurationError reports a credential or setting that is missing. It is
// returned before any network request is made.
type ConfigurationError struct {
	Variable string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s is not set", e.Variable)
}

// UpstreamError reports a non-2xx reply from the completions endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completions endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// ExtractionError reports a response body whose envelope has no usable payload.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "extract completion payload: " + e.Reason
}

// ParseError reports a payload that is not a JSON object. Text is the payload
// exactly as the model produced it.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse completion payload: %v (payload: %q)", e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TimeoutError reports a request that did not complete within the deadline.
type TimeoutError struct {
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("completions request timed out after %s: %v", e.After, e.Err)
	}
	return fmt.Sprintf("completions request timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout lets callers treat TimeoutError like a net.Error.
func (e *TimeoutError) Timeout() bool { return true }
