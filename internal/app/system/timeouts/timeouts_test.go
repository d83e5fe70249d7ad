package timeouts

import (
	"testing"
	"time"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	defer Reset()

	Configure(Config{Short: 7 * time.Second})
	got := Current()
	if got.Short != 7*time.Second {
		t.Errorf("Short = %v, want 7s", got.Short)
	}
	if got.Geocode != DefaultGeocode || got.Medium != DefaultMedium {
		t.Errorf("zero values must keep defaults: %+v", got)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Geocode: time.Second})
	Reset()
	if Geocode() != DefaultGeocode {
		t.Errorf("Geocode = %v after Reset", Geocode())
	}
}
