package available

import (
	"errors"

	"github.com/Ch00k/place-picker/internal/api"
	"github.com/Ch00k/place-picker/internal/geolocation"
)

// Kind distinguishes the failure causes a user can run into
type Kind int

// Failure kinds
const (
	KindNone Kind = iota
	KindFetch
	KindUpdate
	KindGeolocation
)

// Default user-facing messages per kind
const (
	DefaultFetchMessage       = "Could not fetch places, please try again later."
	DefaultUpdateMessage      = "Could not update your places, please try again later."
	DefaultGeolocationMessage = "Could not determine your location, places are shown unsorted."
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindUpdate:
		return "update"
	case KindGeolocation:
		return "geolocation"
	default:
		return "none"
	}
}

// Title is the heading shown above an error of this kind
func (k Kind) Title() string {
	switch k {
	case KindUpdate:
		return "Failed to update places"
	case KindGeolocation:
		return "Location unavailable"
	default:
		return "An error occurred!"
	}
}

// DefaultMessage is used when an error carries no message of its own
func (k Kind) DefaultMessage() string {
	switch k {
	case KindUpdate:
		return DefaultUpdateMessage
	case KindGeolocation:
		return DefaultGeolocationMessage
	default:
		return DefaultFetchMessage
	}
}

// Classify maps err onto a Kind, falling back to fallback for unknown errors
func Classify(err error, fallback Kind) Kind {
	var geoErr *geolocation.Error
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &geoErr):
		return KindGeolocation
	case api.IsUpdateError(err):
		return KindUpdate
	case api.IsFetchError(err):
		return KindFetch
	default:
		return fallback
	}
}

// Message returns the best-effort message for err, or the kind's default message
func Message(err error, fallback Kind) string {
	if err == nil || err.Error() == "" {
		kind := Classify(err, fallback)
		if kind == KindNone {
			kind = fallback
		}
		return kind.DefaultMessage()
	}
	return err.Error()
}
