package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/geobatch/internal/models"
	"golang.org/x/time/rate"
)

// NominatimBaseURL is the public OpenStreetMap Nominatim search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// Requests carry an identifying User-Agent as its usage policy requires:
// https://operations.osmfoundation.org/policies/nominatim/
type NominatimProvider struct {
	api      apiClient
	baseURL  string
	language string
	log      *slog.Logger
}

// nominatimResponse represents one search hit; Nominatim encodes coordinates as strings.
type nominatimResponse struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = fmt.Errorf("nominatim API returned empty response: %w", ErrNoMatch)
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

// NewNominatimProvider creates a Nominatim provider against the public endpoint,
// limited to one request per second.
func NewNominatimProvider(log *slog.Logger) *NominatimProvider {
	return NewNominatimProviderWithClient(&http.Client{Timeout: defaultHTTPTimeout}, newLimiter(1), log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client and limiter.
func NewNominatimProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		api:     apiClient{name: "nominatim", client: client, limiter: limiter, userAgent: userAgent, log: log},
		baseURL: NominatimBaseURL,
		log:     log,
	}
}

// Geocode converts an address to coordinates, trying progressively shorter
// comma-separated variants of the address while Nominatim finds nothing:
// the full address, without the last component, without the last two,
// and finally the first component alone.
func (np *NominatimProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address)

	variants := addressFallbacks(address)

	for level, variant := range variants {
		coords, err := np.search(ctx, variant)
		if err == nil {
			if level > 0 {
				np.log.InfoContext(ctx, "Geocoded using fallback address",
					"original", address,
					"fallback", variant,
					"fallback_level", level)
			}
			return coords, nil
		}

		if !errors.Is(err, ErrNominatimEmptyResponse) {
			return nil, err
		}

		np.log.DebugContext(ctx, "Address variant returned no results", "variant", variant, "fallback_level", level)
	}

	np.log.DebugContext(ctx, "All address fallbacks exhausted", "address", address, "variants_tried", len(variants))

	return nil, ErrNominatimEmptyResponse
}

// addressFallbacks returns the unique, non-empty variants tried by Geocode, most specific first.
func addressFallbacks(address string) []string {
	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	candidates := []string{strings.TrimSpace(address)}
	if len(parts) > 1 {
		candidates = append(candidates, strings.Join(parts[:len(parts)-1], ", "))
		if len(parts) > 2 {
			candidates = append(candidates, strings.Join(parts[:len(parts)-2], ", "))
		}
		candidates = append(candidates, parts[0])
	}

	seen := make(map[string]bool, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		variants = append(variants, c)
	}
	if len(variants) == 0 {
		variants = append(variants, address)
	}

	return variants
}

// search performs a single Nominatim request without fallback logic.
func (np *NominatimProvider) search(ctx context.Context, address string) (*models.Coordinates, error) {
	params := url.Values{"q": {address}, "format": {"json"}, "limit": {"1"}}
	if np.language != "" {
		params.Set("accept-language", np.language)
	}

	body, err := np.api.get(ctx, np.baseURL, params)
	if err != nil {
		return nil, err
	}

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, results[0].Lon)
	}

	return &models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
