package client

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const DefaultRetryDelay = 5 * time.Second

// maxRetryAfterSeconds is the largest delta-seconds value that fits in a time.Duration.
const maxRetryAfterSeconds = int64(math.MaxInt64 / int64(time.Second))

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy controls how a 429 response is retried. It is the only retry policy in
// the client; no other status or transport failure is retried.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts per request. 0 means unlimited.
	MaxAttempts int
	// DefaultDelay is used when the response has no usable Retry-After header.
	DefaultDelay time.Duration
	// Sleep is replaced in tests. Nil means a real timer.
	Sleep SleepFunc
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		DefaultDelay: DefaultRetryDelay,
		Sleep:        sleepContext,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.DefaultDelay <= 0 {
		p.DefaultDelay = DefaultRetryDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	return p
}

// exhausted reports whether another attempt is disallowed after attempt attempts.
func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Delay returns the wait advertised by Retry-After (delta seconds or HTTP date),
// falling back to DefaultDelay when the header is absent or unparseable.
func (p RetryPolicy) Delay(header http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(header.Get("Retry-After"))
	if v == "" {
		return p.DefaultDelay
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs >= 0 {
		return time.Duration(min(secs, maxRetryAfterSeconds)) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			return 0
		}
		return d
	}
	return p.DefaultDelay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
