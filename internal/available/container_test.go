package available

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ch00k/place-picker/internal/api"
	"github.com/Ch00k/place-picker/internal/distance"
	"github.com/Ch00k/place-picker/internal/geolocation"
	"github.com/Ch00k/place-picker/internal/places"
)

type fetcherFunc func(ctx context.Context) ([]places.Place, error)

func (f fetcherFunc) FetchAvailablePlaces(ctx context.Context) ([]places.Place, error) {
	return f(ctx)
}

func staticFetcher(list []places.Place) Fetcher {
	return fetcherFunc(func(context.Context) ([]places.Place, error) {
		return list, nil
	})
}

var dresden = distance.Coordinate{Latitude: 51.0504, Longitude: 13.7373}

func catalog() []places.Place {
	return []places.Place{
		{ID: "lisbon", Title: "Lisbon", Lat: 38.7223, Lon: -9.1393},
		{ID: "berlin", Title: "Berlin", Lat: 52.5200, Lon: 13.4050},
		{ID: "paris", Title: "Paris", Lat: 48.8566, Lon: 2.3522},
		{ID: "prague", Title: "Prague", Lat: 50.0755, Lon: 14.4378},
	}
}

func ids(list []places.Place) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.ID
	}
	return out
}

func waitSettled(t *testing.T, c *Container) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Container did not settle: %v", err)
	}
	return c.Snapshot()
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.State)
}

func (r *recorder) get() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestContainer_InitialState(t *testing.T) {
	c := New(staticFetcher(nil), geolocation.StaticLocator{})
	if s := c.Snapshot().State; s != StateIdle {
		t.Errorf("Expected idle, got %v", s)
	}
	if err := c.Wait(context.Background()); err != nil {
		t.Errorf("Wait on idle container should return immediately, got %v", err)
	}
}

func TestContainer_SuccessSortsByDistance(t *testing.T) {
	rec := &recorder{}
	c := New(
		staticFetcher(catalog()),
		geolocation.StaticLocator{Coordinate: dresden},
		WithOnChange(rec.record),
	)

	c.Activate(context.Background())
	snap := waitSettled(t, c)

	if snap.State != StateSuccess {
		t.Fatalf("Expected success, got %v (%s)", snap.State, snap.Message)
	}
	expected := ids(distance.SortPlaces(catalog(), dresden.Latitude, dresden.Longitude))
	got := ids(snap.Places)
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected order %v, got %v", expected, got)
	}
	if strings.Join(got, ",") != "prague,berlin,paris,lisbon" {
		t.Errorf("Unexpected order %v", got)
	}
	if !snap.Sorted || snap.Origin == nil || *snap.Origin != dresden {
		t.Errorf("Expected sorted snapshot with origin, got %+v", snap)
	}
	if snap.Message != "" || snap.Err != nil {
		t.Errorf("Success snapshot should carry no error, got %+v", snap)
	}

	states := rec.get()
	if len(states) != 2 || states[0] != StateLoading || states[1] != StateSuccess {
		t.Errorf("Expected [loading success], got %v", states)
	}
}

func TestContainer_NonOKStatusEndsInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	locatorCalled := false
	locator := geolocation.LocatorFunc(func(context.Context) (distance.Coordinate, error) {
		locatorCalled = true
		return dresden, nil
	})

	c := New(api.NewClient(api.WithBaseURL(server.URL)), locator)
	c.Activate(context.Background())
	snap := waitSettled(t, c)

	if snap.State != StateError {
		t.Fatalf("Expected error state, got %v", snap.State)
	}
	if snap.Message == "" {
		t.Error("Expected a non-empty error message")
	}
	if snap.Kind != KindFetch {
		t.Errorf("Expected fetch kind, got %v", snap.Kind)
	}
	if !api.IsFetchError(snap.Err) {
		t.Errorf("Expected api fetch error, got %v", snap.Err)
	}
	if snap.Places != nil {
		t.Errorf("Error state must not carry places, got %v", snap.Places)
	}
	if locatorCalled {
		t.Error("Geolocation must not be requested when the fetch fails")
	}
}

func TestContainer_EmptyErrorMessageFallsBack(t *testing.T) {
	fetcher := fetcherFunc(func(context.Context) ([]places.Place, error) {
		return nil, errors.New("")
	})

	snap := New(fetcher, geolocation.StaticLocator{}).Load(context.Background())

	if snap.State != StateError {
		t.Fatalf("Expected error state, got %v", snap.State)
	}
	if snap.Message != DefaultFetchMessage {
		t.Errorf("Expected default message, got %q", snap.Message)
	}
}

func TestContainer_GeolocationFailureKeepsBackendOrder(t *testing.T) {
	c := New(staticFetcher(catalog()), geolocation.Denied{})
	snap := c.Load(context.Background())

	if snap.State != StateSuccess {
		t.Fatalf("Expected success, got %v", snap.State)
	}
	if strings.Join(ids(snap.Places), ",") != strings.Join(ids(catalog()), ",") {
		t.Errorf("Expected backend order, got %v", ids(snap.Places))
	}
	if snap.Sorted || snap.Origin != nil {
		t.Error("Snapshot should not claim to be sorted")
	}
	if !strings.Contains(snap.Warning, "permission denied") {
		t.Errorf("Expected geolocation warning, got %q", snap.Warning)
	}
}

func TestContainer_LocateTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// Ignores its context to prove the container enforces the timeout itself
	locator := geolocation.LocatorFunc(func(context.Context) (distance.Coordinate, error) {
		<-release
		return dresden, nil
	})

	c := New(staticFetcher(catalog()), locator, WithLocateTimeout(20*time.Millisecond))
	snap := c.Load(context.Background())

	if snap.State != StateSuccess {
		t.Fatalf("Expected success with unsorted places, got %v", snap.State)
	}
	if snap.Sorted {
		t.Error("Places must not be sorted after a locate timeout")
	}
	if !strings.Contains(snap.Warning, context.DeadlineExceeded.Error()) {
		t.Errorf("Expected deadline in warning, got %q", snap.Warning)
	}
}

func TestContainer_FetchTimeout(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context) ([]places.Place, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c := New(fetcher, geolocation.StaticLocator{}, WithFetchTimeout(20*time.Millisecond))
	snap := c.Load(context.Background())

	if snap.State != StateError {
		t.Fatalf("Expected error state, got %v", snap.State)
	}
	if !errors.Is(snap.Err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", snap.Err)
	}
}

func TestContainer_DeactivateDiscardsLateGeolocation(t *testing.T) {
	asked := make(chan struct{})
	release := make(chan struct{})

	// Ignores cancellation, like a device callback that fires regardless
	locator := geolocation.LocatorFunc(func(context.Context) (distance.Coordinate, error) {
		close(asked)
		<-release
		return dresden, nil
	})

	rec := &recorder{}
	c := New(staticFetcher(catalog()), locator, WithOnChange(rec.record))
	c.Activate(context.Background())

	select {
	case <-asked:
	case <-time.After(2 * time.Second):
		t.Fatal("Geolocation was never requested")
	}

	c.Deactivate()
	close(release)
	waitSettled(t, c)

	if s := c.Snapshot().State; s != StateLoading {
		t.Errorf("Late result must not change state after deactivation, got %v", s)
	}
	states := rec.get()
	if len(states) != 1 || states[0] != StateLoading {
		t.Errorf("Expected only the loading transition, got %v", states)
	}
}

func TestContainer_DeactivateDiscardsLateFetch(t *testing.T) {
	started := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context) ([]places.Place, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c := New(fetcher, geolocation.StaticLocator{Coordinate: dresden})
	c.Activate(context.Background())
	<-started
	c.Deactivate()
	waitSettled(t, c)

	if s := c.Snapshot().State; s != StateLoading {
		t.Errorf("Cancelled fetch must not surface as an error, got %v", s)
	}
}

func TestContainer_ReactivateSupersedesPrevious(t *testing.T) {
	// A cancelled activation still "returns" stale data, which must never be applied
	fetcher := fetcherFunc(func(ctx context.Context) ([]places.Place, error) {
		select {
		case <-ctx.Done():
			return []places.Place{{ID: "stale"}}, nil
		case <-time.After(20 * time.Millisecond):
			return []places.Place{{ID: "fresh"}}, nil
		}
	})

	c := New(fetcher, geolocation.StaticLocator{Coordinate: dresden})
	c.Activate(context.Background())
	c.Activate(context.Background())
	snap := waitSettled(t, c)

	if snap.State != StateSuccess || len(snap.Places) != 1 || snap.Places[0].ID != "fresh" {
		t.Errorf("Expected the second activation's result, got %+v", snap)
	}
}

func TestContainer_NotificationsFollowActivationOrder(t *testing.T) {
	var calls sync.Mutex
	counter := 0
	// Odd calls return at once, even calls after a short delay, so superseded
	// activations often finish while the next one is starting
	fetcher := fetcherFunc(func(ctx context.Context) ([]places.Place, error) {
		calls.Lock()
		counter++
		n := counter
		calls.Unlock()
		if n%2 == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Millisecond):
			}
		}
		return catalog(), nil
	})

	for i := 0; i < 200; i++ {
		rec := &recorder{}
		c := New(fetcher, geolocation.StaticLocator{Coordinate: dresden}, WithOnChange(rec.record))

		c.Activate(context.Background())
		c.Activate(context.Background())
		snap := waitSettled(t, c)

		states := rec.get()
		if len(states) == 0 {
			t.Fatalf("Iteration %d: no notifications", i)
		}
		if last := states[len(states)-1]; last != snap.State {
			t.Fatalf("Iteration %d: last notification %v does not match snapshot %v (all: %v)", i, last, snap.State, states)
		}
		if snap.State != StateSuccess {
			t.Fatalf("Iteration %d: expected success, got %v", i, snap.State)
		}
	}
}

func TestContainer_EmptyCatalog(t *testing.T) {
	snap := New(staticFetcher([]places.Place{}), geolocation.StaticLocator{Coordinate: dresden}).Load(context.Background())

	if snap.State != StateSuccess {
		t.Fatalf("Expected success, got %v", snap.State)
	}
	if len(snap.Places) != 0 {
		t.Errorf("Expected no places, got %d", len(snap.Places))
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:    "idle",
		StateLoading: "loading",
		StateSuccess: "success",
		StateError:   "error",
	}
	for state, expected := range tests {
		if state.String() != expected {
			t.Errorf("State(%d).String() = %q, want %q", int(state), state.String(), expected)
		}
	}
}
