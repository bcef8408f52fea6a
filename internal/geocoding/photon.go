package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/UnknownOlympus/geobatch/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/time/rate"
)

// PhotonBaseURL is the public Komoot Photon search endpoint.
const PhotonBaseURL = "https://photon.komoot.io/api/"

// userAgent identifies this application to the OpenStreetMap based services.
const userAgent = "geobatch/1.0 (https://github.com/UnknownOlympus/geobatch)"

// Common errors for Photon provider.
var (
	ErrPhotonEmptyResponse = fmt.Errorf("photon API returned no features: %w", ErrNoMatch)
	ErrPhotonInvalidCoords = errors.New("photon API returned a non-point geometry")
)

// PhotonProvider implements the Provider interface using the Photon API,
// which answers with a GeoJSON FeatureCollection ordered by relevance.
type PhotonProvider struct {
	api      apiClient
	baseURL  string
	language string
	log      *slog.Logger
}

// NewPhotonProvider creates a Photon provider against the public endpoint.
func NewPhotonProvider(log *slog.Logger) *PhotonProvider {
	return NewPhotonProviderWithClient(&http.Client{Timeout: defaultHTTPTimeout}, newLimiter(1), log)
}

// NewPhotonProviderWithClient allows injecting a custom HTTP client and limiter.
func NewPhotonProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *PhotonProvider {
	return &PhotonProvider{
		api:     apiClient{name: "photon", client: client, limiter: limiter, userAgent: userAgent, log: log},
		baseURL: PhotonBaseURL,
		log:     log,
	}
}

// Geocode returns the coordinates of the top Photon feature for address.
func (pp *PhotonProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	pp.log.DebugContext(ctx, "Geocoding using Photon", "address", address)

	params := url.Values{"q": {address}, "limit": {"1"}}
	if pp.language != "" {
		params.Set("lang", pp.language)
	}

	body, err := pp.api.get(ctx, pp.baseURL, params)
	if err != nil {
		return nil, err
	}

	collection, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode photon response: %w", err)
	}

	if len(collection.Features) == 0 {
		return nil, ErrPhotonEmptyResponse
	}

	point, ok := collection.Features[0].Geometry.(orb.Point)
	if !ok {
		return nil, ErrPhotonInvalidCoords
	}

	pp.log.DebugContext(ctx, "Photon found result", "address", address, "lat", point.Lat(), "lon", point.Lon())

	return &models.Coordinates{Latitude: point.Lat(), Longitude: point.Lon()}, nil
}
