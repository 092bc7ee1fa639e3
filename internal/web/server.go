// Package web serves the place picker as server-rendered HTML.
package web

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ch00k/place-picker/internal/available"
	"github.com/Ch00k/place-picker/internal/config"
	"github.com/Ch00k/place-picker/internal/geolocation"
	"github.com/Ch00k/place-picker/internal/logging"
	"github.com/Ch00k/place-picker/internal/picker"
	"github.com/Ch00k/place-picker/internal/places"
	"github.com/Ch00k/place-picker/internal/view"
)

const (
	pageTitle        = "PlacePicker"
	userTitle        = "I'd like to visit ..."
	userFallback     = "Select the places you would like to visit below."
	availableTitle   = "Available Places"
	availableLoading = "Fetching places data..."
	availableEmpty   = "No places available."
	shutdownTimeout  = 15 * time.Second
	connectionMargin = 5 * time.Second
)

// Server handles the picker routes
type Server struct {
	fetcher   available.Fetcher
	locator   geolocation.Locator
	picker    *picker.Picker
	timeout   time.Duration
	logger    *slog.Logger
	router    *mux.Router
	readWrite time.Duration
}

// connectionTimeout covers the three backend steps of a page render
// (user places, catalog, location), each bounded by timeout
func connectionTimeout(timeout time.Duration) time.Duration {
	return 3*timeout + connectionMargin
}

// Option configures a Server
type Option func(*Server)

// WithTimeout bounds the backend fetch and geolocation of each page render
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer registers the routes on a new router
func NewServer(fetcher available.Fetcher, locator geolocation.Locator, p *picker.Picker, opts ...Option) *Server {
	s := &Server{
		fetcher:   fetcher,
		locator:   locator,
		picker:    p,
		timeout:   config.DefaultTimeout,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.readWrite = connectionTimeout(s.timeout)

	s.router = mux.NewRouter()
	s.router.Use(otelmux.Middleware(config.ServiceName))
	s.router.HandleFunc("/", s.Index).Methods(http.MethodGet)
	s.router.HandleFunc("/places/{id}/select", s.SelectPlace).Methods(http.MethodPost)
	s.router.HandleFunc("/user-places/{id}/remove", s.RemovePlace).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.Health).Methods(http.MethodGet)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  s.readWrite,
		WriteTimeout: s.readWrite,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Unable to shutdown HTTP server", logging.ErrAttr(err))
		return err
	}
	s.logger.Info("Server stopped")
	return nil
}

// Index renders the saved places followed by the available places
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page := view.Page{
		Title:  pageTitle,
		Notice: query.Get("notice"),
	}
	if msg := query.Get("error"); msg != "" {
		page.Error = &view.ErrorView{Title: parseKind(query.Get("kind")).Title(), Message: msg}
	}

	saved, err := s.picker.Load(ctx)
	if err != nil {
		s.logger.Warn("Loading user places failed", logging.ErrAttr(err))
		recordError(ctx, err)
		saved = s.picker.Places()
		if page.Error == nil {
			page.Error = &view.ErrorView{
				Title:   available.KindFetch.Title(),
				Message: available.Message(err, available.KindFetch),
			}
		}
	}
	page.Sections = append(page.Sections, view.PlacesView{
		Title:        userTitle,
		Places:       saved,
		FallbackText: userFallback,
		SelectAction: func(p places.Place) string {
			return "/user-places/" + url.PathEscape(p.ID) + "/remove"
		},
		SelectLabel: "Remove",
	})

	container := available.New(s.fetcher, s.locator,
		available.WithFetchTimeout(s.timeout),
		available.WithLocateTimeout(s.timeout),
		available.WithLogger(s.logger),
		available.WithOnChange(func(snap available.Snapshot) {
			trace.SpanFromContext(ctx).AddEvent("places." + snap.State.String())
		}),
	)
	snap := container.Load(ctx)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("places.state", snap.State.String()),
		attribute.Int("places.count", len(snap.Places)),
		attribute.Bool("places.sorted", snap.Sorted),
	)

	switch snap.State {
	case available.StateSuccess:
		page.Warning = snap.Warning
		page.Sections = append(page.Sections, view.PlacesView{
			Title:        availableTitle,
			Places:       snap.Places,
			LoadingText:  availableLoading,
			FallbackText: availableEmpty,
			Origin:       snap.Origin,
			SelectAction: func(p places.Place) string {
				return "/places/" + url.PathEscape(p.ID) + "/select"
			},
		})
	case available.StateError:
		recordError(ctx, snap.Err)
		page.Error = &view.ErrorView{Title: snap.Kind.Title(), Message: snap.Message}
	default:
		page.Sections = append(page.Sections, view.PlacesView{
			Title:       availableTitle,
			IsLoading:   true,
			LoadingText: availableLoading,
		})
	}

	s.render(w, page)
}

// SelectPlace saves an available place and redirects back to the index
func (s *Server) SelectPlace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	catalog, err := s.fetcher.FetchAvailablePlaces(ctx)
	if err != nil {
		s.redirectError(w, r, err, available.KindFetch)
		return
	}
	idx := places.Find(catalog, id)
	if idx < 0 {
		http.Error(w, "Place not found", http.StatusNotFound)
		return
	}

	if _, err := s.picker.Load(ctx); err != nil {
		s.redirectError(w, r, err, available.KindFetch)
		return
	}
	message, _, err := s.picker.Select(ctx, catalog[idx])
	if err != nil {
		s.redirectError(w, r, err, available.KindUpdate)
		return
	}
	s.redirectNotice(w, r, message)
}

// RemovePlace deletes a saved place and redirects back to the index
func (s *Server) RemovePlace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if _, err := s.picker.Load(ctx); err != nil {
		s.redirectError(w, r, err, available.KindFetch)
		return
	}
	message, removed, err := s.picker.Remove(ctx, id)
	if err != nil {
		s.redirectError(w, r, err, available.KindUpdate)
		return
	}
	if !removed {
		http.Error(w, "Place not found", http.StatusNotFound)
		return
	}
	s.redirectNotice(w, r, message)
}

// Health reports liveness
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) render(w http.ResponseWriter, page view.Page) {
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.logger.Error("Rendering page failed", logging.ErrAttr(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, values url.Values) {
	target := "/"
	if len(values) > 0 {
		target += "?" + values.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) redirectNotice(w http.ResponseWriter, r *http.Request, message string) {
	values := url.Values{}
	if message != "" {
		values.Set("notice", message)
	}
	s.redirect(w, r, values)
}

// redirectError sends the user back to the index with err shown under the title of its kind
func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, err error, fallback available.Kind) {
	recordError(r.Context(), err)
	kind := available.Classify(err, fallback)
	s.logger.Warn("Request failed", slog.String("kind", kind.String()), logging.ErrAttr(err))
	s.redirect(w, r, url.Values{
		"error": {available.Message(err, kind)},
		"kind":  {kind.String()},
	})
}

// parseKind reads the kind query parameter, treating unknown values as a fetch failure
func parseKind(s string) available.Kind {
	switch s {
	case available.KindUpdate.String():
		return available.KindUpdate
	case available.KindGeolocation.String():
		return available.KindGeolocation
	default:
		return available.KindFetch
	}
}

func recordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
