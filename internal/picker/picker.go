// Package picker keeps the user's saved places in sync with the backend.
package picker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Ch00k/place-picker/internal/logging"
	"github.com/Ch00k/place-picker/internal/places"
)

// Store reads and replaces the user's saved places
type Store interface {
	FetchUserPlaces(ctx context.Context) ([]places.Place, error)
	UpdateUserPlaces(ctx context.Context, list []places.Place) (string, error)
}

// Picker holds the local copy of the user's places. Every edit is applied
// locally first and rolled back if the backend rejects it.
type Picker struct {
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	picked []places.Place
}

// New creates a Picker with an empty list
func New(store Store, logger *slog.Logger) *Picker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Picker{store: store, logger: logger, picked: []places.Place{}}
}

// Places returns a copy of the saved places, most recently picked first
func (p *Picker) Places() []places.Place {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.picked)
}

// Load replaces the local list with the backend's
func (p *Picker) Load(ctx context.Context) ([]places.Place, error) {
	list, err := p.store.FetchUserPlaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load user places: %w", err)
	}

	p.mu.Lock()
	p.picked = slices.Clone(list)
	p.mu.Unlock()

	p.logger.Debug("Loaded user places", slog.Int("count", len(list)))
	return slices.Clone(list), nil
}

// Select saves place at the front of the list. Selecting a saved place is a no-op
// and reports added=false.
func (p *Picker) Select(ctx context.Context, place places.Place) (message string, added bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if places.Contains(p.picked, place.ID) {
		return "", false, nil
	}

	previous := p.picked
	next := append([]places.Place{place}, previous...)

	message, err = p.commit(ctx, previous, next)
	if err != nil {
		return "", false, err
	}
	p.logger.Info("Selected place", slog.String("id", place.ID), slog.String("title", place.Title))
	return message, true, nil
}

// Remove deletes the place with id from the list. Unknown ids report removed=false.
func (p *Picker) Remove(ctx context.Context, id string) (message string, removed bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := places.Find(p.picked, id)
	if idx < 0 {
		return "", false, nil
	}

	previous := p.picked
	next := slices.Delete(slices.Clone(previous), idx, idx+1)

	message, err = p.commit(ctx, previous, next)
	if err != nil {
		return "", false, err
	}
	p.logger.Info("Removed place", slog.String("id", id))
	return message, true, nil
}

// commit applies next optimistically and persists it, restoring previous on failure.
// Callers hold p.mu, so edits reach the backend one at a time.
func (p *Picker) commit(ctx context.Context, previous, next []places.Place) (string, error) {
	p.picked = next

	message, err := p.store.UpdateUserPlaces(ctx, next)
	if err != nil {
		p.picked = previous
		p.logger.Warn("Updating user places failed, rolled back", logging.ErrAttr(err))
		return "", fmt.Errorf("failed to update user places: %w", err)
	}
	return message, nil
}
