package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/geobatch/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider geocodes addresses through the Google Maps Geocoding API.
type GoogleProvider struct {
	client   GoogleAPIClient // client is the Google Maps API client
	language string          // language requested for results, may be empty
	log      *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the subset of *maps.Client used by GoogleProvider.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with ZERO_RESULTS.
var ErrEmptyResponse = fmt.Errorf("get empty response from Google Maps API: %w", ErrNoMatch)

// NewGoogleProvider wraps an existing Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, language string, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, language: language, log: log}
}

// Geocode returns the location of the first Google Maps result for address.
// The client reports ZERO_RESULTS as an empty slice, which maps to ErrEmptyResponse.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address, Language: gp.language}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}
	coords := geocodeResponse[0].Geometry.Location

	return &models.Coordinates{Longitude: coords.Lng, Latitude: coords.Lat}, nil
}
