// Package config reads process-wide settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultAPIURL      = "http://localhost:3000"
	DefaultLocationURL = "https://am.i.mullvad.net/json"
	DefaultListenAddr  = ":8080"
	DefaultTimeout     = 10 * time.Second
	ServiceName        = "place-picker"
)

// Environ holds the settings the CLI falls back to when no flag overrides them.
type Environ struct {
	APIURL        string
	LocationURL   string
	ListenAddr    string
	Timeout       time.Duration
	UserID        string
	JWTSecret     string
	OTELEndpoint  string
	OTELInsecure  bool
	MeterInterval time.Duration
}

// Load reads the environment.
func Load() Environ {
	return Environ{
		APIURL:        GetEnv("PLACES_API_URL", DefaultAPIURL),
		LocationURL:   GetEnv("PLACES_LOCATION_URL", DefaultLocationURL),
		ListenAddr:    GetEnv("PLACES_LISTEN_ADDR", DefaultListenAddr),
		Timeout:       GetEnvAsDuration("PLACES_TIMEOUT", DefaultTimeout),
		UserID:        GetEnv("PLACES_USER_ID", ""),
		JWTSecret:     GetEnv("PLACES_JWT_SECRET", ""),
		OTELEndpoint:  GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:  GetEnvAsBool("OTEL_EXPORTER_INSECURE", true),
		MeterInterval: GetEnvAsDuration("OTEL_METER_INTERVAL", 30*time.Second),
	}
}

func GetEnv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func GetEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// GetEnvAsDuration accepts Go duration strings ("5s") or a bare number of milliseconds.
func GetEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
