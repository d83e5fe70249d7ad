// internal/app/system/limits/limits.go
package limits

// Size limits for request bodies and upstream responses.
const (
	// MaxJSONBody is the cap for decoded JSON request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxGeocodeResponse caps how much of a Nominatim response is read.
	MaxGeocodeResponse = 1 << 20 // 1 MB
)
