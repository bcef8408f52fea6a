// Package resolver turns a single address into coordinates through a geocoding
// provider, retrying transport failures a bounded number of times.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/geobatch/internal/geocoding"
	"github.com/UnknownOlympus/geobatch/internal/metrics"
	"github.com/UnknownOlympus/geobatch/internal/models"
)

// Defaults applied by New.
const (
	DefaultRetries    = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 10 * time.Second
)

// Status tells whether an address was resolved.
type Status int

const (
	Unresolved Status = iota
	Resolved
)

// Reason explains an Unresolved result.
type Reason string

const (
	ReasonNotFound        Reason = "not_found"
	ReasonProviderFailure Reason = "provider_failure"
)

// Result is the outcome of resolving one address.
type Result struct {
	Status      Status
	Coordinates models.Coordinates // set when Status is Resolved
	Reason      Reason             // set when Status is Unresolved
	Err         error              // last provider error for ReasonProviderFailure
	Attempts    int
}

// IsResolved reports whether the result carries coordinates.
func (r Result) IsResolved() bool {
	return r.Status == Resolved
}

// Resolver geocodes single addresses with a per-attempt timeout and a fixed retry budget.
type Resolver struct {
	provider     geocoding.Provider
	providerName string
	log          *slog.Logger
	metrics      *metrics.Metrics
	retries      int
	retryDelay   time.Duration
	timeout      time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithRetries sets how many times a failed provider call is retried. Negative values mean zero.
func WithRetries(n int) Option {
	return func(r *Resolver) {
		r.retries = max(n, 0)
	}
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Resolver) {
		r.retryDelay = d
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMetrics records provider latency under the given provider label.
func WithMetrics(m *metrics.Metrics, providerName string) Option {
	return func(r *Resolver) {
		r.metrics = m
		r.providerName = providerName
	}
}

// New creates a Resolver using DefaultRetries, DefaultRetryDelay and DefaultTimeout
// unless overridden by opts.
func New(provider geocoding.Provider, log *slog.Logger, opts ...Option) *Resolver {
	res := &Resolver{
		provider:     provider,
		providerName: "unknown",
		log:          log,
		retries:      DefaultRetries,
		retryDelay:   DefaultRetryDelay,
		timeout:      DefaultTimeout,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(res)
	}
	if res.metrics == nil {
		res.metrics = metrics.NewDiscard()
	}

	return res
}

// Resolve geocodes address. A definitive miss ends immediately; other provider
// errors are retried until the budget is spent, after which the result is
// Unresolved with ReasonProviderFailure and the last error.
func (r *Resolver) Resolve(ctx context.Context, address string) Result {
	var attempts int

	for remaining := r.retries; ; remaining-- {
		attempts++

		coords, err := r.attempt(ctx, address)
		if err == nil {
			return Result{Status: Resolved, Coordinates: *coords, Attempts: attempts}
		}

		if errors.Is(err, geocoding.ErrNoMatch) {
			r.log.DebugContext(ctx, "Provider found no match", "address", address, "attempt", attempts)
			return Result{Status: Unresolved, Reason: ReasonNotFound, Attempts: attempts}
		}

		r.metrics.APIErrors.Inc()

		if remaining <= 0 {
			r.log.WarnContext(ctx, "Geocoding provider error, giving up",
				"address", address, "attempts", attempts, "error", err)
			return Result{Status: Unresolved, Reason: ReasonProviderFailure, Err: err, Attempts: attempts}
		}

		r.log.DebugContext(ctx, "Geocoding attempt failed, retrying",
			"address", address, "attempt", attempts, "retries_left", remaining, "error", err)
		r.metrics.Retries.Inc()

		if sleepErr := r.sleep(ctx, r.retryDelay); sleepErr != nil {
			r.log.WarnContext(ctx, "Geocoding retry aborted", "address", address, "error", sleepErr)
			return Result{
				Status:   Unresolved,
				Reason:   ReasonProviderFailure,
				Err:      fmt.Errorf("retry aborted: %w", errors.Join(sleepErr, err)),
				Attempts: attempts,
			}
		}
	}
}

func (r *Resolver) attempt(ctx context.Context, address string) (*models.Coordinates, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	startTime := time.Now()
	coords, err := r.provider.Geocode(attemptCtx, address)
	r.metrics.RequestSeconds.WithLabelValues(r.providerName).Observe(time.Since(startTime).Seconds())

	if err == nil && coords == nil {
		return nil, fmt.Errorf("provider returned no coordinates: %w", geocoding.ErrNoMatch)
	}

	return coords, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
