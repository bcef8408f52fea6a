package main

import (
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/geobatch/internal/config"
	"github.com/UnknownOlympus/geobatch/internal/geocoding"
	"github.com/UnknownOlympus/geobatch/internal/metrics"
	"github.com/UnknownOlympus/geobatch/internal/resolver"
	"github.com/UnknownOlympus/geobatch/internal/service"
)

// newGeocodingService builds provider, resolver and service from the configuration.
func newGeocodingService(
	cfg *config.Config,
	logger *slog.Logger,
	appMetrics *metrics.Metrics,
) (*service.GeocodingService, error) {
	// Runtime selection between Photon, Google, Nominatim and Visicom.
	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.ProviderType),
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.ProviderURL,
		Language:  cfg.Language,
		RateLimit: cfg.RateLimit,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding provider: %w", err)
	}

	logger.Info("Geocoding provider initialized", "type", cfg.ProviderType)

	res := resolver.New(provider, logger,
		resolver.WithRetries(cfg.Retries),
		resolver.WithRetryDelay(cfg.RetryDelay),
		resolver.WithTimeout(cfg.Timeout),
		resolver.WithMetrics(appMetrics, cfg.ProviderType),
	)

	return service.NewGeocodingService(logger, res, appMetrics, cfg.AddrPrefix), nil
}
