// Package places defines the place records exchanged with the places backend.
package places

// Image references the picture shown for a place
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Place is a point of interest as returned by the backend. Field names are a
// contract with the backend and must round-trip unchanged: Description is nil
// when the key was absent and points to "" when it was sent empty.
type Place struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Image       Image   `json:"image"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Envelope is the JSON body of the list and update endpoints
type Envelope struct {
	Places []Place `json:"places"`
}

// Find returns the index of the place with the given id, or -1.
func Find(list []Place, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether a place with the given id is in list.
func Contains(list []Place, id string) bool {
	return Find(list, id) >= 0
}
