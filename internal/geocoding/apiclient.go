package geocoding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// StatusError is returned when a provider answers with anything but 200 OK.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.Code, e.Body)
}

// apiClient performs rate-limited GET requests against a provider's JSON endpoint.
type apiClient struct {
	name      string
	client    HTTPClient
	limiter   *rate.Limiter
	userAgent string
	log       *slog.Logger
}

// get waits for the limiter, sends params to baseURL and returns the body of a 200 response.
func (c apiClient) get(ctx context.Context, baseURL string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	for key, values := range params {
		query[key] = values
	}
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.ErrorContext(ctx, "Geocoding API error", "provider", c.name, "status", resp.StatusCode, "body", string(body))
		return nil, &StatusError{Provider: c.name, Code: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
