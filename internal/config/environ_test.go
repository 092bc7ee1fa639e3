package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PLACES_API_URL", "PLACES_LOCATION_URL", "PLACES_LISTEN_ADDR", "PLACES_TIMEOUT",
		"PLACES_USER_ID", "PLACES_JWT_SECRET", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_INSECURE",
	} {
		// Setenv registers the restore, Unsetenv clears it for this test
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	env := Load()
	if env.APIURL != DefaultAPIURL {
		t.Errorf("Expected APIURL %q, got %q", DefaultAPIURL, env.APIURL)
	}
	if env.LocationURL != DefaultLocationURL {
		t.Errorf("Expected LocationURL %q, got %q", DefaultLocationURL, env.LocationURL)
	}
	if env.ListenAddr != DefaultListenAddr {
		t.Errorf("Expected ListenAddr %q, got %q", DefaultListenAddr, env.ListenAddr)
	}
	if env.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, env.Timeout)
	}
	if env.OTELEndpoint != "" {
		t.Errorf("Expected empty OTEL endpoint, got %q", env.OTELEndpoint)
	}
	if !env.OTELInsecure {
		t.Error("Expected OTELInsecure to default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLACES_API_URL", "http://places.internal:3000")
	t.Setenv("PLACES_TIMEOUT", "3s")
	t.Setenv("PLACES_USER_ID", "user-42")
	t.Setenv("OTEL_EXPORTER_INSECURE", "false")

	env := Load()
	if env.APIURL != "http://places.internal:3000" {
		t.Errorf("Unexpected APIURL: %q", env.APIURL)
	}
	if env.Timeout != 3*time.Second {
		t.Errorf("Unexpected timeout: %v", env.Timeout)
	}
	if env.UserID != "user-42" {
		t.Errorf("Unexpected user id: %q", env.UserID)
	}
	if env.OTELInsecure {
		t.Error("Expected OTELInsecure to be false")
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"Duration string", "250ms", 250 * time.Millisecond},
		{"Bare milliseconds", "1500", 1500 * time.Millisecond},
		{"Garbage", "soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PLACE_PICKER_TEST_DURATION", tt.value)
			if got := GetEnvAsDuration("PLACE_PICKER_TEST_DURATION", time.Minute); got != tt.expected {
				t.Errorf("GetEnvAsDuration(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("PLACE_PICKER_TEST_INT", "12")
	if got := GetEnvAsInt("PLACE_PICKER_TEST_INT", 3); got != 12 {
		t.Errorf("Expected 12, got %d", got)
	}
	t.Setenv("PLACE_PICKER_TEST_INT", "twelve")
	if got := GetEnvAsInt("PLACE_PICKER_TEST_INT", 3); got != 3 {
		t.Errorf("Expected fallback 3, got %d", got)
	}
}
