// internal/app/system/geocode/geocode.go
//
// Package geocode resolves addresses with a Nominatim server. Every call
// is bounded by a timeout and throttled to the server's usage policy.
// Lookups that fail on the network ask the caller to fall back to manual
// coordinate entry.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/limits"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultCountry   = "tn"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "maratech/1.0"
	searchLimit      = 5
)

var (
	ErrNoResult  = errors.New("address not found")
	ErrBadCoords = errors.New("coordinates out of range")
)

// LookupError is a failed call to the geocoding server. ManualEntry is
// set when the failure was a timeout or a network error.
type LookupError struct {
	Op          string
	ManualEntry bool
	Err         error
}

func (e *LookupError) Error() string { return fmt.Sprintf("geocode %s: %v", e.Op, e.Err) }
func (e *LookupError) Unwrap() error { return e.Err }

// Message is the text shown to the user.
func (e *LookupError) Message() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "La recherche a pris trop de temps. Veuillez réessayer."
	}
	if e.ManualEntry {
		return "Erreur de connexion. Vérifiez votre connexion internet ou saisissez les coordonnées."
	}
	return "Erreur lors de la recherche de l'adresse."
}

// Result is a resolved place.
type Result struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
	Fallback    bool    `json:"fallback,omitempty"`
}

type Config struct {
	BaseURL   string
	Country   string
	Timeout   time.Duration
	UserAgent string
	// Interval between requests; zero means one per second.
	Interval time.Duration
}

type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
	log     *zap.Logger
}

// New returns a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http:    httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		log:     logger,
	}
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search resolves free text to the first of up to five matches in the
// configured country.
func (c *Client) Search(ctx context.Context, q string) (Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Result{}, ErrNoResult
	}
	v := url.Values{}
	v.Set("format", "json")
	v.Set("q", q)
	v.Set("limit", strconv.Itoa(searchLimit))
	v.Set("addressdetails", "1")
	v.Set("countrycodes", c.cfg.Country)

	var places []place
	if err := c.get(ctx, "search", "/search?"+v.Encode(), &places); err != nil {
		return Result{}, err
	}
	for _, p := range places {
		lat, err1 := strconv.ParseFloat(p.Lat, 64)
		lng, err2 := strconv.ParseFloat(p.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		return Result{Lat: lat, Lng: lng, DisplayName: p.DisplayName}, nil
	}
	return Result{}, ErrNoResult
}

// Reverse names a coordinate. When the server has no name or cannot be
// reached the result carries a coordinate label and Fallback is set.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (Result, error) {
	if err := CheckCoords(lat, lng); err != nil {
		return Result{}, err
	}
	v := url.Values{}
	v.Set("format", "json")
	v.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	v.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	v.Set("addressdetails", "1")

	var p place
	if err := c.get(ctx, "reverse", "/reverse?"+v.Encode(), &p); err != nil {
		c.log.Warn("reverse geocoding failed, using coordinates", zap.Error(err))
		return fallback(lat, lng), nil
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return fallback(lat, lng), nil
	}
	return Result{Lat: lat, Lng: lng, DisplayName: p.DisplayName}, nil
}

func fallback(lat, lng float64) Result {
	return Result{Lat: lat, Lng: lng, DisplayName: CoordinateLabel(lat, lng), Fallback: true}
}

// CoordinateLabel formats a coordinate with six decimals.
func CoordinateLabel(lat, lng float64) string {
	return fmt.Sprintf("Coordinates: %.6f, %.6f", lat, lng)
}

// CheckCoords validates a latitude/longitude pair.
func CheckCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrBadCoords
	}
	return nil
}

// ParseManual validates coordinates typed by the user.
func ParseManual(lat, lng string) (Result, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Result{}, ErrBadCoords
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return Result{}, ErrBadCoords
	}
	if err := CheckCoords(la, ln); err != nil {
		return Result{}, err
	}
	return Result{Lat: la, Lng: ln, DisplayName: CoordinateLabel(la, ln)}, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return &LookupError{Op: op, ManualEntry: true, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return &LookupError{Op: op, Err: err}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &LookupError{Op: op, ManualEntry: isNetwork(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &LookupError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, limits.MaxGeocodeResponse)).Decode(out); err != nil {
		return &LookupError{Op: op, ManualEntry: isNetwork(err), Err: err}
	}
	return nil
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
