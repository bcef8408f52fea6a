package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/geobatch/internal/geocoding"
	"github.com/UnknownOlympus/geobatch/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleProvider_Geocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, "tr", slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		address := "some invalid place"
		req := &maps.GeocodingRequest{Address: address, Language: "tr"}

		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, address)

		require.ErrorIs(t, err, assert.AnError)
		assert.NotErrorIs(t, err, geocoding.ErrNoMatch)
		mockClient.AssertExpectations(t)
	})

	t.Run("api returns zero results", func(t *testing.T) {
		address := "Nonexistent Place Xyz123"
		req := &maps.GeocodingRequest{Address: address, Language: "tr"}

		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		assert.ErrorIs(t, err, geocoding.ErrNoMatch)
		mockClient.AssertExpectations(t)
	})

	t.Run("successful geocoding", func(t *testing.T) {
		address := "Berlin, Germany"
		req := &maps.GeocodingRequest{Address: address, Language: "tr"}
		response := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 52.52, Lng: 13.405}}},
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 1, Lng: 1}}},
		}

		mockClient.On("Geocode", ctx, req).Return(response, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InDelta(t, 52.52, coords.Latitude, 1e-9)
		assert.InDelta(t, 13.405, coords.Longitude, 1e-9)
		mockClient.AssertExpectations(t)
	})
}
