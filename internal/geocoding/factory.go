package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypePhoton represents the Komoot Photon geocoding provider.
	ProviderTypePhoton ProviderType = "photon"
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeVisicom represents Visicom Maps geocoding provider.
	ProviderTypeVisicom ProviderType = "visicom"
)

const defaultHTTPTimeout = 10 * time.Second

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType  // Type of provider to create
	APIKey    string        // API key (Google, Visicom)
	BaseURL   string        // Overrides the provider endpoint when set (Photon, Nominatim, Visicom)
	Language  string        // Preferred result language, e.g. "tr" (Photon, Nominatim)
	RateLimit int           // Requests per second, 0 disables limiting
	Timeout   time.Duration // HTTP client timeout, defaults to 10s
	Logger    *slog.Logger  // Logger for the provider
}

// NewProvider creates a geocoding provider based on the provided configuration.
//
// Supported provider types:
// - "photon": Komoot Photon API (free, no API key)
// - "google": Google Maps Geocoding API (requires API key)
// - "nominatim": OpenStreetMap Nominatim API (free, no API key)
// - "visicom": Visicom Data API (requires API key)
func NewProvider(config ProviderConfig) (Provider, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultHTTPTimeout
	}

	switch config.Type {
	case ProviderTypePhoton:
		return newPhotonProvider(config), nil
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return newNominatimProvider(config), nil
	case ProviderTypeVisicom:
		return newVisicomProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// newLimiter returns a limiter allowing perSecond requests, or an unlimited one.
func newLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

func newPhotonProvider(config ProviderConfig) Provider {
	provider := NewPhotonProviderWithClient(
		&http.Client{Timeout: config.Timeout},
		newLimiter(config.RateLimit),
		config.Logger,
	)
	if config.BaseURL != "" {
		provider.baseURL = config.BaseURL
	}
	provider.language = config.Language

	return provider
}

// newGoogleProvider creates a Google Maps geocoding provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Language, config.Logger), nil
}

func newNominatimProvider(config ProviderConfig) Provider {
	if config.RateLimit == 0 || config.RateLimit > 1 {
		// Nominatim usage policy: at most one request per second.
		config.RateLimit = 1
	}

	provider := NewNominatimProviderWithClient(
		&http.Client{Timeout: config.Timeout},
		newLimiter(config.RateLimit),
		config.Logger,
	)
	if config.BaseURL != "" {
		provider.baseURL = config.BaseURL
	}
	provider.language = config.Language

	return provider
}

// newVisicomProvider creates a Visicom geocoding provider.
func newVisicomProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Visicom provider")
	}

	if config.RateLimit == 0 {
		config.RateLimit = 5
		config.Logger.Warn("Rate limit for Visicom API not set, set a default value", "value", config.RateLimit)
	}

	provider := NewVisicomProviderWithClient(
		&http.Client{Timeout: config.Timeout},
		config.APIKey,
		newLimiter(config.RateLimit),
		config.Logger,
	)
	if config.BaseURL != "" {
		provider.baseURL = config.BaseURL
	}

	return provider, nil
}
