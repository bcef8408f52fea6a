package service_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/UnknownOlympus/geobatch/internal/geocoding"
	"github.com/UnknownOlympus/geobatch/internal/metrics"
	"github.com/UnknownOlympus/geobatch/internal/models"
	"github.com/UnknownOlympus/geobatch/internal/resolver"
	"github.com/UnknownOlympus/geobatch/internal/service"
	"github.com/UnknownOlympus/geobatch/test/mocks"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func records(addresses ...string) []models.AddressRecord {
	out := make([]models.AddressRecord, len(addresses))
	for i, a := range addresses {
		out[i] = models.AddressRecord{Row: i + 1, Address: a}
	}
	return out
}

func newService(t *testing.T, provider geocoding.Provider, prefix string) (*service.GeocodingService, *metrics.Metrics) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	m := metrics.NewDiscard()
	res := resolver.New(provider, logger, resolver.WithRetryDelay(0), resolver.WithMetrics(m, "mock"))

	return service.NewGeocodingService(logger, res, m, prefix), m
}

func TestProcessBatch(t *testing.T) {
	ctx := t.Context()

	t.Run("berlin scenario", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		provider.On("Geocode", mock.Anything, "Berlin, Germany").
			Return(&models.Coordinates{Latitude: 52.52, Longitude: 13.405}, nil).Once()
		provider.On("Geocode", mock.Anything, "Nonexistent Place Xyz123").
			Return(nil, geocoding.ErrPhotonEmptyResponse).Once()

		svc, m := newService(t, provider, "")
		var events []service.EventKind
		table, summary, err := svc.ProcessBatch(ctx, records("Berlin, Germany", "", "Nonexistent Place Xyz123"),
			func(e service.Event) { events = append(events, e.Kind) })

		require.NoError(t, err)
		want := models.GeocodedTable{{Address: "Berlin, Germany", Latitude: 52.52, Longitude: 13.405}}
		if diff := cmp.Diff(want, table); diff != "" {
			t.Errorf("table mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, service.Summary{Total: 3, Skipped: 1, Resolved: 1, Unresolved: 1}, summary)
		assert.Equal(t, []service.EventKind{
			service.EventProcessing, service.EventResolved,
			service.EventSkipped,
			service.EventProcessing, service.EventUnresolved,
		}, events)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Batches.WithLabelValues(metrics.OutcomeCompleted)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.RowsProcessed.WithLabelValues(metrics.StatusSkipped)), 0)
	})

	t.Run("preserves input order and drops failures", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		provider.On("Geocode", mock.Anything, "Ankara").Return(&models.Coordinates{Latitude: 39.93, Longitude: 32.86}, nil)
		provider.On("Geocode", mock.Anything, "İzmir").Return(&models.Coordinates{Latitude: 38.42, Longitude: 27.14}, nil)
		provider.On("Geocode", mock.Anything, "offline").Return(nil, assert.AnError).Times(resolver.DefaultRetries + 1)
		provider.On("Geocode", mock.Anything, "Bursa").Return(&models.Coordinates{Latitude: 40.19, Longitude: 29.06}, nil)

		svc, _ := newService(t, provider, "")
		table, _, err := svc.ProcessBatch(ctx, records("İzmir", "offline", "   ", "Bursa", "Ankara"), nil)

		require.NoError(t, err)
		got := make([]string, 0, len(table))
		for _, row := range table {
			got = append(got, row.Address)
		}
		assert.Equal(t, []string{"İzmir", "Bursa", "Ankara"}, got)
	})

	t.Run("unresolved event carries the provider error", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		provider.On("Geocode", mock.Anything, "offline").Return(nil, assert.AnError).Times(resolver.DefaultRetries + 1)

		svc, _ := newService(t, provider, "")
		var unresolved []service.Event
		_, _, err := svc.ProcessBatch(ctx, records("offline"), func(e service.Event) {
			if e.Kind == service.EventUnresolved {
				unresolved = append(unresolved, e)
			}
		})

		require.ErrorIs(t, err, service.ErrEmptyResult)
		require.Len(t, unresolved, 1)
		assert.Equal(t, resolver.ReasonProviderFailure, unresolved[0].Result.Reason)
		assert.ErrorIs(t, unresolved[0].Result.Err, assert.AnError)
		assert.Equal(t, "offline", unresolved[0].Record.Address)
	})

	t.Run("all blank is an empty result", func(t *testing.T) {
		provider := mocks.NewProvider(t)

		svc, m := newService(t, provider, "")
		table, summary, err := svc.ProcessBatch(ctx, records("", " ", "\t"), nil)

		require.ErrorIs(t, err, service.ErrEmptyResult)
		assert.Empty(t, table)
		assert.Equal(t, 3, summary.Skipped)
		provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Batches.WithLabelValues(metrics.OutcomeEmpty)), 0)
	})

	t.Run("empty input is an empty result", func(t *testing.T) {
		svc, _ := newService(t, mocks.NewProvider(t), "")

		_, _, err := svc.ProcessBatch(ctx, nil, nil)

		assert.ErrorIs(t, err, service.ErrEmptyResult)
	})

	t.Run("prefix is sent to the provider but not stored", func(t *testing.T) {
		provider := mocks.NewProvider(t)
		provider.On("Geocode", mock.Anything, "Türkiye, Kadıköy").
			Return(&models.Coordinates{Latitude: 40.99, Longitude: 29.03}, nil).Once()

		svc, _ := newService(t, provider, "Türkiye, ")
		table, _, err := svc.ProcessBatch(ctx, records("  Kadıköy "), nil)

		require.NoError(t, err)
		require.Len(t, table, 1)
		assert.Equal(t, "  Kadıköy ", table[0].Address)
	})
}

func TestProcessBatch_Cancelled(t *testing.T) {
	t.Run("cancelled while resolving a row", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		provider := mocks.NewProvider(t)
		provider.On("Geocode", mock.Anything, "Berlin, Germany").
			Run(func(mock.Arguments) { cancel() }).
			Return(&models.Coordinates{Latitude: 52.52, Longitude: 13.405}, nil).Once()

		svc, m := newService(t, provider, "")
		var events []service.EventKind
		table, summary, err := svc.ProcessBatch(ctx,
			records("Berlin, Germany", "Ankara", "", "İzmir"),
			func(e service.Event) { events = append(events, e.Kind) })

		require.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, service.ErrEmptyResult)
		assert.Nil(t, table)
		assert.Equal(t, service.Summary{Total: 4, Resolved: 1}, summary)
		assert.Equal(t, []service.EventKind{service.EventProcessing, service.EventResolved}, events)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Batches.WithLabelValues(metrics.OutcomeCancelled)), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(m.Batches.WithLabelValues(metrics.OutcomeCompleted)), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(m.RowsProcessed.WithLabelValues(metrics.StatusUnresolved)), 0)
	})

	t.Run("failure caused by cancellation is not counted as unresolved", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		provider := mocks.NewProvider(t)
		provider.On("Geocode", mock.Anything, "Ankara").
			Run(func(mock.Arguments) { cancel() }).
			Return(nil, context.Canceled)

		svc, _ := newService(t, provider, "")
		table, summary, err := svc.ProcessBatch(ctx, records("Ankara", "İzmir"), nil)

		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, table)
		assert.Equal(t, service.Summary{Total: 2}, summary)
	})

	t.Run("already cancelled context resolves nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		svc, _ := newService(t, mocks.NewProvider(t), "")
		_, _, err := svc.ProcessBatch(ctx, records("Ankara"), nil)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "skipped", service.EventSkipped.String())
	assert.Equal(t, "processing", service.EventProcessing.String())
	assert.Equal(t, "resolved", service.EventResolved.String())
	assert.Equal(t, "unresolved", service.EventUnresolved.String())
	assert.Equal(t, "unknown", service.EventKind(42).String())
}
