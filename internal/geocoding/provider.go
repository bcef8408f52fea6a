package geocoding

import (
	"context"
	"errors"
	"net/http"

	"github.com/UnknownOlympus/geobatch/internal/models"
)

// ErrNoMatch is wrapped by every provider error that means the service answered
// but knows no location for the address. Callers must not retry on it.
var ErrNoMatch = errors.New("no location found for address")

// Provider is an interface that defines a method for geocoding an address.
// Geocode returns the coordinates of the best match, an error wrapping ErrNoMatch
// when the provider has no match, or any other error when the call itself failed.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
