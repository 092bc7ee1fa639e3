package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Ch00k/place-picker/internal/available"
	"github.com/Ch00k/place-picker/internal/cli"
	"github.com/Ch00k/place-picker/internal/distance"
	"github.com/Ch00k/place-picker/internal/geolocation"
	"github.com/Ch00k/place-picker/internal/picker"
	"github.com/Ch00k/place-picker/internal/places"
	"github.com/Ch00k/place-picker/internal/view"
)

const (
	userTitle        = "I'd like to visit ..."
	userFallback     = "Select the places you would like to visit below."
	availableTitle   = "Available Places"
	availableLoading = "Fetching places data..."
	availableEmpty   = "No places available."
)

func coordinate(lat, lon float64) distance.Coordinate {
	return distance.Coordinate{Latitude: lat, Longitude: lon}
}

// timed logs how long a step took at debug level
func timed(logger *slog.Logger, step string) func() {
	start := time.Now()
	return func() {
		logger.Debug(step+" completed", slog.Duration("elapsed", time.Since(start)))
	}
}

// logTransition reports container state changes at debug level
func logTransition(logger *slog.Logger) func(available.Snapshot) {
	return func(snap available.Snapshot) {
		logger.Debug("Available places state changed",
			slog.String("state", snap.State.String()),
			slog.Int("count", len(snap.Places)),
			slog.Bool("sorted", snap.Sorted),
		)
	}
}

// addPlace saves the available place with the given id
func addPlace(ctx context.Context, logger *slog.Logger, fetcher available.Fetcher, p *picker.Picker, id string) (string, error) {
	defer timed(logger, "Add place")()

	catalog, err := fetcher.FetchAvailablePlaces(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch places: %w", err)
	}
	idx := places.Find(catalog, id)
	if idx < 0 {
		return "", fmt.Errorf("no available place with id %q", id)
	}

	if _, err := p.Load(ctx); err != nil {
		return "", err
	}
	message, added, err := p.Select(ctx, catalog[idx])
	if err != nil {
		return "", err
	}
	if !added {
		return fmt.Sprintf("%s is already saved", catalog[idx].Title), nil
	}
	return message, nil
}

// removePlace deletes the saved place with the given id
func removePlace(ctx context.Context, logger *slog.Logger, p *picker.Picker, id string) (string, error) {
	defer timed(logger, "Remove place")()

	if _, err := p.Load(ctx); err != nil {
		return "", err
	}
	message, removed, err := p.Remove(ctx, id)
	if err != nil {
		return "", err
	}
	if !removed {
		return "", fmt.Errorf("no saved place with id %q", id)
	}
	return message, nil
}

// listPlaces prints the saved places followed by the available places, nearest first
func listPlaces(
	ctx context.Context,
	logger *slog.Logger,
	cfg *cli.Config,
	fetcher available.Fetcher,
	locator geolocation.Locator,
	p *picker.Picker,
	stdout io.Writer,
) error {
	defer timed(logger, "List places")()

	saved, err := p.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, _ = fmt.Fprint(stdout, view.ErrorView{
			Title:   available.KindFetch.Title(),
			Message: available.Message(err, available.KindFetch),
		}.Text())
		return err
	}
	_, _ = fmt.Fprint(stdout, view.PlacesView{
		Title:        userTitle,
		Places:       saved,
		FallbackText: userFallback,
	}.Text())
	_, _ = fmt.Fprintln(stdout)

	container := available.New(fetcher, locator,
		available.WithFetchTimeout(cfg.Timeout),
		available.WithLocateTimeout(cfg.Timeout),
		available.WithLogger(logger),
		available.WithOnChange(logTransition(logger)),
	)
	snap := container.Load(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if snap.State == available.StateError {
		_, _ = fmt.Fprint(stdout, view.ErrorView{Title: snap.Kind.Title(), Message: snap.Message}.Text())
		return fmt.Errorf("failed to fetch places: %w", snap.Err)
	}

	list := snap.Places
	if cfg.MaxDistance > 0 {
		if snap.Origin != nil {
			list = distance.FilterPlaces(list, snap.Origin.Latitude, snap.Origin.Longitude, cfg.MaxDistance, logger)
		} else {
			logger.Warn("Location unknown, not filtering by distance", slog.Float64("max_distance", cfg.MaxDistance))
		}
	}

	if snap.Warning != "" {
		_, _ = fmt.Fprintf(stdout, "%s: %s\n\n", available.KindGeolocation.Title(), snap.Warning)
	}
	_, _ = fmt.Fprint(stdout, view.PlacesView{
		Title:        availableTitle,
		Places:       list,
		IsLoading:    snap.State == available.StateLoading,
		LoadingText:  availableLoading,
		FallbackText: availableEmpty,
		Origin:       snap.Origin,
	}.Text())
	return nil
}
