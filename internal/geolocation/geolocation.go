// Package geolocation provides single-shot lookups of the user's current position.
package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Ch00k/place-picker/internal/config"
	"github.com/Ch00k/place-picker/internal/distance"
	"github.com/Ch00k/place-picker/internal/logging"
)

var (
	// ErrUnavailable means the position could not be determined
	ErrUnavailable = errors.New("position unavailable")
	// ErrDenied means the user has not allowed a position lookup
	ErrDenied = errors.New("permission denied")
)

// Error is returned by a Locator that failed to resolve a position
type Error struct {
	Reason error
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geolocation: %v: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("geolocation: %v", e.Reason)
}

// Unwrap exposes both the reason sentinel and the underlying cause
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// Locator resolves the current position once per call
type Locator interface {
	Locate(ctx context.Context) (distance.Coordinate, error)
}

// LocatorFunc adapts a function to the Locator interface
type LocatorFunc func(ctx context.Context) (distance.Coordinate, error)

// Locate calls f(ctx)
func (f LocatorFunc) Locate(ctx context.Context) (distance.Coordinate, error) {
	return f(ctx)
}

// StaticLocator always reports the configured coordinate
type StaticLocator struct {
	Coordinate distance.Coordinate
}

// Locate returns the fixed coordinate unless ctx is already done
func (s StaticLocator) Locate(ctx context.Context) (distance.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return distance.Coordinate{}, &Error{Reason: ErrUnavailable, Err: err}
	}
	return s.Coordinate, nil
}

// Denied is a Locator for users who opted out of sharing their position
type Denied struct{}

// Locate always fails with ErrDenied
func (Denied) Locate(context.Context) (distance.Coordinate, error) {
	return distance.Coordinate{}, &Error{Reason: ErrDenied}
}

// ValidCoordinate reports whether lat/lon are finite and inside their ranges
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// IPLocation is the response of the public-IP location service
type IPLocation struct {
	IP        string  `json:"ip"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	City      string  `json:"city"`
}

// IPLocator estimates the position from the public IP address
type IPLocator struct {
	httpClient *http.Client
	url        string
	version    string
	logger     *slog.Logger
}

// IPLocatorOption configures an IPLocator
type IPLocatorOption func(*IPLocator)

// WithURL sets a custom lookup URL
func WithURL(url string) IPLocatorOption {
	return func(l *IPLocator) {
		l.url = url
	}
}

// WithTimeout sets a custom timeout for the lookup
func WithTimeout(timeout time.Duration) IPLocatorOption {
	return func(l *IPLocator) {
		l.httpClient.Timeout = timeout
	}
}

// WithVersion sets the version string for the User-Agent header
func WithVersion(version string) IPLocatorOption {
	return func(l *IPLocator) {
		l.version = version
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) IPLocatorOption {
	return func(l *IPLocator) {
		l.logger = logger
	}
}

// NewIPLocator creates an IPLocator with the given options
func NewIPLocator(opts ...IPLocatorOption) *IPLocator {
	l := &IPLocator{
		httpClient: &http.Client{Timeout: config.DefaultTimeout},
		url:        config.DefaultLocationURL,
		version:    "dev",
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lookup fetches the full location record for the caller's public IP
func (l *IPLocator) Lookup(ctx context.Context) (*IPLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, &Error{Reason: ErrUnavailable, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", fmt.Sprintf("place-picker/%s", l.version))

	l.logger.Debug("Looking up position", slog.String("url", l.url))

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Warn("Position lookup failed", logging.ErrAttr(err))
		return nil, &Error{Reason: ErrUnavailable, Err: fmt.Errorf("failed to fetch location: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Reason: ErrUnavailable, Err: fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, &Error{
			Reason: ErrUnavailable,
			Err:    fmt.Errorf("unexpected content-type: %s (expected application/json)", contentType),
		}
	}

	var location IPLocation
	if err := json.NewDecoder(resp.Body).Decode(&location); err != nil {
		return nil, &Error{Reason: ErrUnavailable, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if !ValidCoordinate(location.Latitude, location.Longitude) {
		return nil, &Error{
			Reason: ErrUnavailable,
			Err:    fmt.Errorf("invalid coordinate %.4f, %.4f", location.Latitude, location.Longitude),
		}
	}

	l.logger.Info("Resolved position",
		slog.String("city", location.City),
		slog.String("country", location.Country),
		slog.Float64("lat", location.Latitude),
		slog.Float64("lon", location.Longitude),
	)

	return &location, nil
}

// Locate implements Locator
func (l *IPLocator) Locate(ctx context.Context) (distance.Coordinate, error) {
	location, err := l.Lookup(ctx)
	if err != nil {
		return distance.Coordinate{}, err
	}
	return distance.Coordinate{Latitude: location.Latitude, Longitude: location.Longitude}, nil
}
