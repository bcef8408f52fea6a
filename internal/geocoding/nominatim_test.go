package geocoding_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/geobatch/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimProvider_Geocode(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Contains(t, req.URL.String(), "nominatim.openstreetmap.org")
				assert.Equal(t, "Kızılay Meydanı", req.URL.Query().Get("q"))
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				assert.Contains(t, req.Header.Get("User-Agent"), "geobatch/1.0")

				return respond(http.StatusOK, `[{"lat":"39.9208","lon":"32.8541"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "Kızılay Meydanı")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 39.9208, coords.Latitude, 0.0001)
		assert.InEpsilon(t, 32.8541, coords.Longitude, 0.0001)
	})

	t.Run("empty response is a no match", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `[]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "invalid address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
		assert.ErrorIs(t, err, geocoding.ErrNoMatch)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorContains(t, err, "nominatim API returned status 429")
		assert.NotErrorIs(t, err, geocoding.ErrNoMatch)
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `invalid json`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		assert.ErrorContains(t, err, "failed to decode nominatim response")
	})

	t.Run("invalid latitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `[{"lat":"invalid","lon":"32.85"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.ErrorContains(t, err, "invalid latitude")
	})

	t.Run("invalid longitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `[{"lat":"39.92","lon":"invalid"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.ErrorContains(t, err, "invalid longitude")
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, "failed to execute geocoding request")
	})

	t.Run("context cancellation", func(t *testing.T) {
		newCtx, cancel := context.WithCancel(context.Background())
		cancel()

		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, req.Context().Err()
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(newCtx, "some address")

		require.Error(t, err)
		require.Nil(t, coords)
	})
}

func TestNominatimProvider_AddressFallback(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()

	t.Run("falls back to the district when the street is unknown", func(t *testing.T) {
		var queries []string
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				query := req.URL.Query().Get("q")
				queries = append(queries, query)

				if query == "Çankaya, Ankara" {
					return respond(http.StatusOK, `[{"lat":"39.9179","lon":"32.8627"}]`), nil
				}
				return respond(http.StatusOK, `[]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "Çankaya, Ankara, Atatürk Bulvarı 999")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 39.9179, coords.Latitude, 0.0001)
		assert.Equal(t, []string{"Çankaya, Ankara, Atatürk Bulvarı 999", "Çankaya, Ankara"}, queries)
	})

	t.Run("all fallbacks fail", func(t *testing.T) {
		requestCount := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				requestCount++
				return respond(http.StatusOK, `[]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "Nowhere, Unknown, 999")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNoMatch)
		assert.Equal(t, 3, requestCount, "full, one shorter, first component")
	})

	t.Run("transport error stops the fallback chain", func(t *testing.T) {
		requestCount := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				requestCount++
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		_, err := provider.Geocode(ctx, "A, B, C")

		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, requestCount)
	})

	t.Run("single-part address no fallback", func(t *testing.T) {
		requestCount := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				requestCount++
				return respond(http.StatusOK, `[{"lat":"41.0082","lon":"28.9784"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, unlimited(), logger)
		coords, err := provider.Geocode(ctx, "İstanbul")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.Equal(t, 1, requestCount, "single-part address should only try once")
	})
}

func TestNewNominatimProvider(t *testing.T) {
	provider := geocoding.NewNominatimProvider(slog.Default())

	require.NotNil(t, provider)
}
