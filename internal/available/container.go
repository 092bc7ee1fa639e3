// Package available loads the catalog of places and orders it by distance from the user.
package available

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Ch00k/place-picker/internal/config"
	"github.com/Ch00k/place-picker/internal/distance"
	"github.com/Ch00k/place-picker/internal/geolocation"
	"github.com/Ch00k/place-picker/internal/logging"
	"github.com/Ch00k/place-picker/internal/places"
)

// State is the lifecycle state of a Container
type State int

// Container states
const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Fetcher reads the catalog of available places
type Fetcher interface {
	FetchAvailablePlaces(ctx context.Context) ([]places.Place, error)
}

// Snapshot is an immutable view of the container state.
// Places is set only in StateSuccess; Err and Message only in StateError.
type Snapshot struct {
	State   State
	Places  []places.Place
	Sorted  bool
	Origin  *distance.Coordinate
	Kind    Kind
	Err     error
	Message string
	Warning string
}

// Container drives one fetch-then-locate-then-sort cycle per activation
type Container struct {
	fetcher       Fetcher
	locator       geolocation.Locator
	fetchTimeout  time.Duration
	locateTimeout time.Duration
	logger        *slog.Logger
	onChange      func(Snapshot)

	// notifyMu orders onChange calls; it is taken before mu, never after
	notifyMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	snapshot   Snapshot
}

// Option configures a Container
type Option func(*Container)

// WithFetchTimeout bounds the places fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Container) {
		c.fetchTimeout = d
	}
}

// WithLocateTimeout bounds the geolocation request
func WithLocateTimeout(d time.Duration) Option {
	return func(c *Container) {
		c.locateTimeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithOnChange registers a callback invoked after every applied transition.
// Calls are serialized and follow activation order, so the last call always
// matches Snapshot once the container settles. The callback may read
// Snapshot but must not call Activate or Deactivate.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Container) {
		c.onChange = fn
	}
}

// New creates an idle Container
func New(fetcher Fetcher, locator geolocation.Locator, opts ...Option) *Container {
	c := &Container{
		fetcher:       fetcher,
		locator:       locator,
		fetchTimeout:  config.DefaultTimeout,
		locateTimeout: config.DefaultTimeout,
		logger:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state
func (c *Container) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Activate enters StateLoading and starts a new load in the background.
// A previous activation still in flight is superseded and its results are discarded.
func (c *Container) Activate(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.snapshot = Snapshot{State: StateLoading}
	c.mu.Unlock()

	c.notify(gen)

	go func() {
		defer close(done)
		defer cancel()
		c.run(runCtx, gen)
	}()
}

// Deactivate cancels the current activation. Results that arrive afterwards are dropped.
func (c *Container) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Wait blocks until the latest activation has finished or ctx is done
func (c *Container) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load activates the container and waits for the outcome
func (c *Container) Load(ctx context.Context) Snapshot {
	c.Activate(ctx)
	_ = c.Wait(ctx)
	return c.Snapshot()
}

func (c *Container) run(ctx context.Context, gen uint64) {
	start := time.Now()
	logger := c.logger.With(slog.Uint64("activation", gen))

	fetchCtx, cancelFetch := context.WithTimeout(ctx, c.fetchTimeout)
	list, err := c.fetcher.FetchAvailablePlaces(fetchCtx)
	cancelFetch()
	if err != nil {
		logger.Warn("Fetching places failed", logging.ErrAttr(err))
		c.apply(gen, Snapshot{
			State:   StateError,
			Kind:    KindFetch,
			Err:     err,
			Message: Message(err, KindFetch),
		})
		return
	}
	logger.Debug("Fetched places", slog.Int("count", len(list)), slog.Duration("elapsed", time.Since(start)))

	coord, err := c.locate(ctx)
	if err != nil {
		// Unsorted places beat an error page when only the position is missing
		logger.Warn("Geolocation failed, keeping backend order", logging.ErrAttr(err))
		c.apply(gen, Snapshot{
			State:   StateSuccess,
			Places:  list,
			Warning: Message(err, KindGeolocation),
		})
		return
	}

	sorted := distance.SortPlaces(list, coord.Latitude, coord.Longitude)
	logger.Debug("Sorted places by distance",
		slog.Float64("lat", coord.Latitude),
		slog.Float64("lon", coord.Longitude),
		slog.Duration("elapsed", time.Since(start)),
	)
	c.apply(gen, Snapshot{
		State:  StateSuccess,
		Places: sorted,
		Sorted: true,
		Origin: &coord,
	})
}

type located struct {
	coord distance.Coordinate
	err   error
}

// locate asks the locator once and gives up when ctx or the locate timeout expires,
// even if the locator itself ignores its context
func (c *Container) locate(ctx context.Context) (distance.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.locateTimeout)
	defer cancel()

	result := make(chan located, 1)
	go func() {
		coord, err := c.locator.Locate(ctx)
		result <- located{coord: coord, err: err}
	}()

	select {
	case r := <-result:
		return r.coord, r.err
	case <-ctx.Done():
		return distance.Coordinate{}, &geolocation.Error{Reason: geolocation.ErrUnavailable, Err: ctx.Err()}
	}
}

// apply installs snap if gen is still the active generation
func (c *Container) apply(gen uint64, snap Snapshot) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("Discarding result of inactive activation",
			slog.Uint64("activation", gen),
			slog.String("state", snap.State.String()),
		)
		return
	}
	c.snapshot = snap
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(snap)
	}
}

// notify reports the loading transition of gen unless a newer activation superseded it
func (c *Container) notify(gen uint64) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	current := gen == c.generation
	snap := c.snapshot
	c.mu.Unlock()

	if current {
		c.onChange(snap)
	}
}
