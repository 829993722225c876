package scheduler

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeRateLimited tags errors that signal upstream quota exhaustion.
	TextCodeRateLimited = "RATE_LIMITED"
	// MetadataRetryAfter holds the upstream retry hint in seconds.
	MetadataRetryAfter = "retry_after"
)

// ErrSkipped marks an item the worker chose not to export. The scheduler
// logs it as a warning and never retries it.
var ErrSkipped = errors.New("scheduler: item skipped")

// Skip wraps ErrSkipped with a reason.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// RateLimited builds a rate-limit error carrying the raw upstream retry hint.
// cause may be nil.
func RateLimited(message string, retryAfter string, cause error) error {
	if message == "" {
		message = "upstream rate limited"
	}
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryRateLimit, message)
		err.Category = goerrors.CategoryRateLimit
	} else {
		err = goerrors.New(message, goerrors.CategoryRateLimit)
	}
	err = err.WithTextCode(TextCodeRateLimited).WithCode(http.StatusTooManyRequests)
	if hint := strings.TrimSpace(retryAfter); hint != "" {
		err = err.WithMetadata(map[string]any{MetadataRetryAfter: hint})
	}
	return err
}

// IsRateLimited reports whether err signals quota exhaustion.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.IsCategory(err, goerrors.CategoryRateLimit) {
		return true
	}
	var typed *goerrors.Error
	return goerrors.As(err, &typed) && typed.TextCode == TextCodeRateLimited
}

// RetryHint extracts the retry_after metadata from err. ok is false when the
// hint is absent or unparseable.
func RetryHint(err error, now time.Time) (time.Duration, bool) {
	var typed *goerrors.Error
	if !goerrors.As(err, &typed) || typed.Metadata == nil {
		return 0, false
	}
	return ParseRetryAfter(typed.Metadata[MetadataRetryAfter], now)
}

// ParseRetryAfter reads a Retry-After value: seconds as a number or numeric
// string, a time.Duration, or an HTTP date. Non-positive values are rejected.
func ParseRetryAfter(value any, now time.Time) (time.Duration, bool) {
	var d time.Duration
	switch v := value.(type) {
	case time.Duration:
		d = v
	case int:
		d = time.Duration(v) * time.Second
	case int64:
		d = time.Duration(v) * time.Second
	case float64:
		d = seconds(v)
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			d = seconds(f)
		} else if at, err := http.ParseTime(s); err == nil {
			d = at.Sub(now)
		} else {
			return 0, false
		}
	default:
		return 0, false
	}
	if d <= 0 {
		return 0, false
	}
	return d, true
}

func seconds(f float64) time.Duration {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
