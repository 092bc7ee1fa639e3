// Package distance provides functions for calculating distances and ordering places by them.
package distance

import (
	"cmp"
	"log/slog"
	"math"
	"slices"

	"github.com/Ch00k/place-picker/internal/places"
)

const earthRadiusKm = 6371.0

// Coordinate is a position in decimal degrees
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Between computes the geodesic distance between two points using the Haversine formula
// Returns distance in kilometers
func Between(lat1, lon1, lat2, lon2 float64) float64 {
	// Convert degrees to radians
	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)
	deltaLat := degreesToRadians(lat2 - lat1)
	deltaLon := degreesToRadians(lon2 - lon1)

	// Haversine formula
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	// Rounding can push a slightly above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// degreesToRadians converts degrees to radians
func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// FromPlace returns the distance in kilometers between a place and a reference point
func FromPlace(p places.Place, lat, lon float64) float64 {
	return Between(p.Lat, p.Lon, lat, lon)
}

// SortPlaces returns a new slice with the same places ordered by ascending distance
// from (lat, lon). Places at equal distance keep their original relative order.
func SortPlaces(list []places.Place, lat, lon float64) []places.Place {
	type ranked struct {
		place    places.Place
		distance float64
	}

	ordered := make([]ranked, len(list))
	for i, p := range list {
		ordered[i] = ranked{place: p, distance: FromPlace(p, lat, lon)}
	}

	slices.SortStableFunc(ordered, func(a, b ranked) int {
		return cmp.Compare(a.distance, b.distance)
	})

	sorted := make([]places.Place, len(ordered))
	for i, r := range ordered {
		sorted[i] = r.place
	}
	return sorted
}

// FilterPlaces returns places within the specified distance threshold, preserving order
func FilterPlaces(list []places.Place, lat, lon, maxDistance float64, logger *slog.Logger) []places.Place {
	if logger != nil {
		logger.Debug("Filtering places by distance",
			slog.Int("count", len(list)),
			slog.Float64("max_km", maxDistance),
			slog.Float64("lat", lat),
			slog.Float64("lon", lon),
		)
	}

	filtered := make([]places.Place, 0, len(list))
	for _, p := range list {
		if FromPlace(p, lat, lon) <= maxDistance {
			filtered = append(filtered, p)
		}
	}

	if logger != nil {
		logger.Info("Filtered places by distance",
			slog.Int("kept", len(filtered)),
			slog.Int("dropped", len(list)-len(filtered)),
		)
	}

	return filtered
}
