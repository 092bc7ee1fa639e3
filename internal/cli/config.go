// Package cli provides command-line interface configuration and flag parsing functionality.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Ch00k/place-picker/internal/config"
	"github.com/Ch00k/place-picker/internal/geolocation"
	"github.com/Ch00k/place-picker/internal/logging"
)

// Config holds all command-line configuration options for the application.
type Config struct {
	APIURL      string
	LocationURL string
	Timeout     time.Duration
	Latitude    float64
	Longitude   float64
	HasLocation bool
	MaxDistance float64
	UserID      string
	AddID       string
	RemoveID    string
	Serve       bool
	ListenAddr  string
	LogLevel    logging.LogLevel
	ShowHelp    bool
	ShowVersion bool
}

// ParseFlags parses command-line arguments manually to support GNU-style long flags.
// Values not given on the command line come from env.
func ParseFlags(args []string, env config.Environ) (*Config, error) {
	cfg := &Config{
		APIURL:      env.APIURL,
		LocationURL: env.LocationURL,
		Timeout:     env.Timeout,
		UserID:      env.UserID,
		ListenAddr:  env.ListenAddr,
		LogLevel:    logging.LogLevelError,
	}
	var hasLat, hasLon bool

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// value returns the argument of the current flag
		value := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires an argument", arg)
			}
			i++
			return args[i], nil
		}

		switch {
		case arg == "-h" || arg == "--help":
			cfg.ShowHelp = true
			return cfg, nil

		case arg == "-v" || arg == "--version":
			cfg.ShowVersion = true
			return cfg, nil

		case arg == "-u" || arg == "--api-url":
			v, err := value()
			if err != nil {
				return nil, err
			}
			if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
				return nil, fmt.Errorf("invalid api-url value: %s", v)
			}
			cfg.APIURL = v

		case arg == "-t" || arg == "--timeout":
			v, err := value()
			if err != nil {
				return nil, err
			}
			timeout, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid timeout value: %s", v)
			}
			if timeout < 100 || timeout > 60000 {
				return nil, fmt.Errorf("timeout must be between 100 and 60000")
			}
			cfg.Timeout = time.Duration(timeout) * time.Millisecond

		case arg == "--lat":
			v, err := value()
			if err != nil {
				return nil, err
			}
			lat, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid lat value: %s", v)
			}
			cfg.Latitude = lat
			hasLat = true

		case arg == "--lon":
			v, err := value()
			if err != nil {
				return nil, err
			}
			lon, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid lon value: %s", v)
			}
			cfg.Longitude = lon
			hasLon = true

		case arg == "-m" || arg == "--max-distance":
			v, err := value()
			if err != nil {
				return nil, err
			}
			distance, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid max-distance value: %s", v)
			}
			if distance <= 0 {
				return nil, fmt.Errorf("max-distance must be positive")
			}
			if distance > 20000 {
				return nil, fmt.Errorf("max-distance must be at most 20000 km")
			}
			cfg.MaxDistance = distance

		case arg == "--user":
			v, err := value()
			if err != nil {
				return nil, err
			}
			cfg.UserID = v

		case arg == "-a" || arg == "--add":
			v, err := value()
			if err != nil {
				return nil, err
			}
			cfg.AddID = v

		case arg == "-r" || arg == "--remove":
			v, err := value()
			if err != nil {
				return nil, err
			}
			cfg.RemoveID = v

		case arg == "-s" || arg == "--serve":
			cfg.Serve = true

		case arg == "--listen":
			v, err := value()
			if err != nil {
				return nil, err
			}
			cfg.ListenAddr = v

		case arg == "-l" || arg == "--log-level":
			v, err := value()
			if err != nil {
				return nil, err
			}
			level, err := logging.ParseLogLevel(v)
			if err != nil {
				return nil, err
			}
			cfg.LogLevel = level

		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag: %s", arg)

		default:
			return nil, fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if hasLat != hasLon {
		return nil, fmt.Errorf("--lat and --lon must be given together")
	}
	if hasLat {
		if !geolocation.ValidCoordinate(cfg.Latitude, cfg.Longitude) {
			return nil, fmt.Errorf("coordinates out of range: %g, %g", cfg.Latitude, cfg.Longitude)
		}
		cfg.HasLocation = true
	}
	if cfg.AddID != "" && cfg.RemoveID != "" {
		return nil, fmt.Errorf("--add and --remove cannot be combined")
	}
	if cfg.Serve && (cfg.AddID != "" || cfg.RemoveID != "") {
		return nil, fmt.Errorf("--serve cannot be combined with --add or --remove")
	}

	return cfg, nil
}

// PrintUsage outputs the usage information and command-line options to the writer.
func PrintUsage(w io.Writer, version string) {
	_, _ = fmt.Fprintf(w, `place-picker %s

Browse places sorted by distance from your location and keep a list of places to visit.

USAGE:
    place-picker [OPTIONS]

MODES:
    List Mode (default):          Shows your saved places and all available places,
                                  nearest first.

    Edit Mode:                    Adds or removes a saved place, then shows the lists.
                                  Activated by -a or -r.

    Server Mode:                  Serves the picker as a web page.
                                  Activated by -s.

BACKEND OPTIONS:
    -u, --api-url URL             Places backend base URL (env PLACES_API_URL, default: %s)
    -t, --timeout MS              Request timeout in milliseconds (env PLACES_TIMEOUT, default: %d, range: 100-60000)
        --user ID                 User whose places are edited (env PLACES_USER_ID)

LOCATION OPTIONS:
        --lat DEGREES             Use this latitude instead of looking up your location
        --lon DEGREES             Use this longitude instead of looking up your location
    -m, --max-distance KM         Only list places within this distance (range: 1-20000)

EDIT OPTIONS:
    -a, --add ID                  Save the available place with this id
    -r, --remove ID               Remove the saved place with this id

SERVER OPTIONS:
    -s, --serve                   Serve the web UI
        --listen ADDR             Listen address (env PLACES_LISTEN_ADDR, default: %s)

OTHER OPTIONS:
    -l, --log-level LEVEL         Set log level (debug, info, warning, error; default: error)
    -h, --help                    Show this help message
    -v, --version                 Show version information
`, version, config.DefaultAPIURL, config.DefaultTimeout.Milliseconds(), config.DefaultListenAddr)
}
