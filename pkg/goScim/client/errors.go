package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/i2-open/i2goScimBulk/pkg/goScim/resource"
)

// ConfigurationError is returned by NewClient when a required setting is missing.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("scim client configuration: %s is required", e.Field)
}

// HttpError is a non-2xx response other than 429. It is never retried.
type HttpError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Detail     string // SCIM error "detail", when the body carried one
}

func (e *HttpError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("scim %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("scim %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 500))
}

func newHttpError(method, url string, status int, body []byte) *HttpError {
	herr := &HttpError{
		Method:     method,
		URL:        url,
		StatusCode: status,
		Body:       body,
	}
	var scimErr resource.ErrorResponse
	if len(body) > 0 && json.Unmarshal(body, &scimErr) == nil {
		herr.Detail = scimErr.Detail
	}
	return herr
}

// TransportError wraps a failure to get any response at all (DNS, refused, timeout).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("scim %s %s: transport failure: %s", e.Method, e.URL, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitExhaustedError is only possible with a bounded RetryPolicy.
type RateLimitExhaustedError struct {
	Method   string
	URL      string
	Attempts int
}

func (e *RateLimitExhaustedError) Error() string {
	return fmt.Sprintf("scim %s %s: still rate limited after %d attempts", e.Method, e.URL, e.Attempts)
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
