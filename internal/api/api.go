// Package api provides a client for the places backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ch00k/place-picker/internal/config"
	"github.com/Ch00k/place-picker/internal/logging"
	"github.com/Ch00k/place-picker/internal/places"
)

const (
	instrumentationName = "github.com/Ch00k/place-picker/internal/api"
	defaultVersion      = "dev"

	placesPath     = "/places"
	userPlacesPath = "/user-places"

	// RequestIDHeader carries the per-request correlation id
	RequestIDHeader = "X-Request-ID"
)

// TokenSource supplies the bearer token sent with every request
type TokenSource interface {
	Token() (string, error)
}

// Client encapsulates the HTTP client for interacting with the places backend
type Client struct {
	httpClient  *http.Client
	baseURL     string
	version     string
	logger      *slog.Logger
	tokenSource TokenSource
	tracer      trace.Tracer
	requests    metric.Int64Counter
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithBaseURL sets the backend base URL, e.g. http://localhost:3000
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets a custom timeout for HTTP requests
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithVersion sets the version string for the User-Agent header
func WithVersion(version string) ClientOption {
	return func(c *Client) {
		c.version = version
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTokenSource authenticates requests with a bearer token
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokenSource = ts
	}
}

// NewClient creates a new API client with the given options
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: config.DefaultTimeout,
		},
		baseURL: config.DefaultAPIURL,
		version: defaultVersion,
		logger:  logging.Discard(),
		tracer:  otel.Tracer(instrumentationName),
	}

	for _, opt := range opts {
		opt(client)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"places.client.requests",
		metric.WithDescription("Requests sent to the places backend"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		client.logger.Warn("Unable to create request counter", logging.ErrAttr(err))
	} else {
		client.requests = counter
	}

	return client
}

// BaseURL returns the backend base URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Kind tells which operation an Error came from
type Kind int

// Error kinds
const (
	KindFetch  Kind = iota // reading places failed
	KindUpdate             // replacing user places failed
)

func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "update"
	default:
		return "fetch"
	}
}

// Error represents a structured error from the API client
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is a failed read of places
func IsFetchError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindFetch
}

// IsUpdateError reports whether err is a failed replace of user places
func IsUpdateError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindUpdate
}

type updateResponse struct {
	Message string `json:"message"`
}

// FetchAvailablePlaces returns the full catalog of places
func (c *Client) FetchAvailablePlaces(ctx context.Context) ([]places.Place, error) {
	var envelope places.Envelope
	if err := c.do(ctx, KindFetch, http.MethodGet, placesPath, nil, &envelope); err != nil {
		return nil, err
	}
	return nonNil(envelope.Places), nil
}

// FetchUserPlaces returns the places the user has saved, in server order
func (c *Client) FetchUserPlaces(ctx context.Context) ([]places.Place, error) {
	var envelope places.Envelope
	if err := c.do(ctx, KindFetch, http.MethodGet, userPlacesPath, nil, &envelope); err != nil {
		return nil, err
	}
	return nonNil(envelope.Places), nil
}

// UpdateUserPlaces replaces the user's saved places and returns the server's confirmation message
func (c *Client) UpdateUserPlaces(ctx context.Context, list []places.Place) (string, error) {
	body := places.Envelope{Places: nonNil(list)}

	var resp updateResponse
	if err := c.do(ctx, KindUpdate, http.MethodPut, userPlacesPath, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func nonNil(list []places.Place) []places.Place {
	if list == nil {
		return []places.Place{}
	}
	return list
}

// do performs exactly one round trip and decodes the JSON response into out
func (c *Client) do(ctx context.Context, kind Kind, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	err := c.roundTrip(ctx, kind, method, path, body, out)

	status := 0
	var apiErr *Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	} else if err == nil {
		status = http.StatusOK
	}
	if c.requests != nil {
		c.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.Int("http.response.status_code", status),
		))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, kind Kind, method, path string, body, out any) error {
	url := c.baseURL + path
	requestID := uuid.NewString()
	logger := c.logger.With(
		slog.String("method", method),
		slog.String("url", url),
		slog.String("request_id", requestID),
	)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: kind, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		logger.Error("Failed to create HTTP request", logging.ErrAttr(err))
		return &Error{Kind: kind, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("place-picker/%s", c.version))
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return &Error{Kind: kind, Err: fmt.Errorf("failed to obtain token: %w", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	logger.Debug("Sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("HTTP request failed", logging.ErrAttr(err))
		return &Error{Kind: kind, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	logger.Debug("Received response", slog.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("Unexpected HTTP status code", slog.Int("status", resp.StatusCode))
		return &Error{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        statusError(resp),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		logger.Error("Unexpected content type", slog.String("content_type", contentType))
		return &Error{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected content-type: %s (expected application/json)", contentType),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Error("Failed to parse JSON response", logging.ErrAttr(err))
		return &Error{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to parse response: %w", err),
		}
	}

	return nil
}

// statusError builds the error for a non-2xx response, using the server's message when it sent one
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("unexpected status code %d", resp.StatusCode)
}
