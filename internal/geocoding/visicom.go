package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/UnknownOlympus/geobatch/internal/models"
	"golang.org/x/time/rate"
)

// VisicomBaseURL is the Visicom Data API geocoding endpoint.
const VisicomBaseURL = "https://api.visicom.ua/data-api/5.0/uk/geocode.json"

// Common errors for Visicom provider.
var (
	ErrVisicomEmptyResponse = fmt.Errorf("visicom API returned empty response: %w", ErrNoMatch)
	ErrVisicomInvalidCoords = errors.New("visicom API returned invalid coordinates")
	ErrVisicomUnauthorized  = errors.New("visicom API unauthorized (invalid API key)")
)

// VisicomProvider geocodes addresses through the Visicom Data API.
type VisicomProvider struct {
	api     apiClient
	baseURL string
	apiKey  string
	log     *slog.Logger
}

// visicomFeature keeps only the centroid of the best match, encoded as [lon, lat].
type visicomFeature struct {
	Centroid struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geo_centroid"`
}

// NewVisicomProviderWithClient allows injecting a custom HTTP client and limiter.
func NewVisicomProviderWithClient(
	client HTTPClient,
	apiKey string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *VisicomProvider {
	return &VisicomProvider{
		api:     apiClient{name: "visicom", client: client, limiter: limiter, log: log},
		baseURL: VisicomBaseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

// Geocode returns the centroid of the best Visicom match for address.
func (vp *VisicomProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	vp.log.DebugContext(ctx, "Geocoding using Visicom", "address", address)

	body, err := vp.api.get(ctx, vp.baseURL, url.Values{
		"text":  {address},
		"limit": {"1"},
		"key":   {vp.apiKey},
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden) {
			return nil, ErrVisicomUnauthorized
		}
		return nil, err
	}

	var feature visicomFeature
	if err = json.Unmarshal(body, &feature); err != nil {
		return nil, fmt.Errorf("failed to decode visicom response: %w", err)
	}

	switch coords := feature.Centroid.Coordinates; len(coords) {
	case 0:
		return nil, ErrVisicomEmptyResponse
	case 2:
		return &models.Coordinates{Longitude: coords[0], Latitude: coords[1]}, nil
	default:
		return nil, ErrVisicomInvalidCoords
	}
}
