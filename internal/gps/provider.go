package gps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aditya4503/YATRIK/internal/geo"
)

// Provider is the interface for position sources.
type Provider interface {
	Name() string
	// Watch subscribes to the position stream. The returned channel is
	// closed when ctx is done or the provider gives up after an error.
	Watch(ctx context.Context, opts WatchOptions) (<-chan Update, error)
}

// Sample is a single position reading.
type Sample struct {
	Location  geo.Point `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	// AccuracyMeters is zero when the source doesn't report it.
	AccuracyMeters float64 `json:"accuracyMeters,omitempty"`
}

// Update is one event on a watch stream: a sample or an error.
type Update struct {
	Sample *Sample
	Err    error
}

// WatchOptions are passed through to the source. Providers that can't
// honour an option ignore it.
type WatchOptions struct {
	HighAccuracy bool
	Timeout      time.Duration // Max wait for the first fix
	MaximumAge   time.Duration // Oldest cached fix the source may hand out
}

// DefaultWatchOptions mirrors what the web client asks the browser for.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaximumAge:   60 * time.Second,
	}
}

// ErrorCode follows the browser Geolocation API PositionError codes.
type ErrorCode int

const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// ErrLocationUnavailable matches every *Error via errors.Is.
var ErrLocationUnavailable = errors.New("gps: location unavailable")

// Error is a failure reported by a position source.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "gps: " + e.Code.String()
	}
	return fmt.Sprintf("gps: %s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool { return target == ErrLocationUnavailable }

// ParseBrowserError converts a Geolocation API error code into an *Error.
// Unknown codes are reported as PositionUnavailable.
func ParseBrowserError(code int, msg string) *Error {
	c := ErrorCode(code)
	switch c {
	case PermissionDenied, PositionUnavailable, Timeout:
	default:
		c = PositionUnavailable
	}
	return &Error{Code: c, Message: msg}
}
