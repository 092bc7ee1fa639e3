// Package view renders place lists and error panels as text or HTML.
package view

import (
	"fmt"

	"github.com/Ch00k/place-picker/internal/distance"
	"github.com/Ch00k/place-picker/internal/places"
)

// PlacesView is a titled list of selectable places. It holds no state of its own.
type PlacesView struct {
	Title        string
	Places       []places.Place
	IsLoading    bool
	LoadingText  string
	FallbackText string

	// Origin, when set, adds the distance of every place from it
	Origin *distance.Coordinate

	// OnSelect is the selection delegate used by Select
	OnSelect func(places.Place)

	// SelectAction returns the form target for a place in HTML output
	SelectAction func(places.Place) string
	// SelectLabel is the button text in HTML output
	SelectLabel string
}

// Item is one rendered entry of a PlacesView
type Item struct {
	Index    int
	Place    places.Place
	Distance string
	Action   string
}

// Items returns the entries to render, empty while loading
func (v PlacesView) Items() []Item {
	if v.IsLoading {
		return nil
	}
	items := make([]Item, len(v.Places))
	for i, p := range v.Places {
		items[i] = Item{
			Index:    i + 1,
			Place:    p,
			Distance: v.distanceTo(p),
		}
		if v.SelectAction != nil {
			items[i].Action = v.SelectAction(p)
		}
	}
	return items
}

// Empty reports whether the fallback text should be shown
func (v PlacesView) Empty() bool {
	return !v.IsLoading && len(v.Places) == 0
}

// Select invokes OnSelect once for the place at the 1-based position shown in the list
func (v PlacesView) Select(position int) error {
	if v.IsLoading {
		return fmt.Errorf("places are still loading")
	}
	if position < 1 || position > len(v.Places) {
		return fmt.Errorf("no place at position %d", position)
	}
	if v.OnSelect != nil {
		v.OnSelect(v.Places[position-1])
	}
	return nil
}

func (v PlacesView) distanceTo(p places.Place) string {
	if v.Origin == nil {
		return ""
	}
	return formatDistance(distance.FromPlace(p, v.Origin.Latitude, v.Origin.Longitude))
}

// ErrorView is a static title and message panel
type ErrorView struct {
	Title   string
	Message string
}

// formatDistance formats a distance value for display
func formatDistance(km float64) string {
	return fmt.Sprintf("%.0f", km)
}
