package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/geobatch/internal/metrics"
	"github.com/UnknownOlympus/geobatch/internal/models"
	"github.com/UnknownOlympus/geobatch/internal/resolver"
)

// ErrEmptyResult is returned by ProcessBatch when no address could be geocoded.
var ErrEmptyResult = errors.New(
	"no address could be geocoded; check that the selected column holds addresses and the data is not empty",
)

// EventKind identifies what happened to one input row.
type EventKind int

const (
	EventSkipped EventKind = iota
	EventProcessing
	EventResolved
	EventUnresolved
)

func (k EventKind) String() string {
	switch k {
	case EventSkipped:
		return "skipped"
	case EventProcessing:
		return "processing"
	case EventResolved:
		return "resolved"
	case EventUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Event reports the progress of a single row. Result is zero for EventSkipped and EventProcessing.
type Event struct {
	Kind   EventKind
	Record models.AddressRecord
	Result resolver.Result
}

// Observer receives row events in input order. It must not block for long:
// the batch waits for it.
type Observer func(Event)

// Summary counts the rows of one batch by outcome.
type Summary struct {
	Total      int `json:"total"`
	Skipped    int `json:"skipped"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

// AddressResolver resolves a single address; *resolver.Resolver satisfies it.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) resolver.Result
}

// GeocodingService turns an ordered list of address records into a GeocodedTable,
// one address at a time.
type GeocodingService struct {
	log           *slog.Logger     // Logger for logging service activities
	resolver      AddressResolver  // Resolver applied to every non-blank address
	metrics       *metrics.Metrics // Metrics for tracking service performance
	addressPrefix string           // Prefix sent to the provider, e.g. a country, never stored in the output
}

// NewGeocodingService creates a new instance of GeocodingService.
func NewGeocodingService(
	log *slog.Logger,
	resolver AddressResolver,
	metrics *metrics.Metrics,
	addressPrefix string,
) *GeocodingService {
	return &GeocodingService{
		log:           log,
		resolver:      resolver,
		metrics:       metrics,
		addressPrefix: addressPrefix,
	}
}

// ProcessBatch resolves records sequentially in input order. Blank records are
// skipped without calling the resolver; unresolved records are reported and left
// out. The returned table keeps the input order of the resolved rows. When the
// table is empty the error is ErrEmptyResult and callers must not export it.
// A done ctx ends the batch with an error wrapping ctx.Err() and no table.
// observer may be nil.
func (gs *GeocodingService) ProcessBatch(
	ctx context.Context,
	records []models.AddressRecord,
	observer Observer,
) (models.GeocodedTable, Summary, error) {
	if observer == nil {
		observer = func(Event) {}
	}

	gs.metrics.ActiveBatches.Inc()
	defer gs.metrics.ActiveBatches.Dec()

	gs.log.InfoContext(ctx, "Geocoding batch started", "rows", len(records))

	table := make(models.GeocodedTable, 0, len(records))
	summary := Summary{Total: len(records)}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return gs.cancelled(ctx, summary, err)
		}

		if record.IsBlank() {
			summary.Skipped++
			gs.metrics.RowsProcessed.WithLabelValues(metrics.StatusSkipped).Inc()
			gs.log.InfoContext(ctx, "Blank address skipped", "row", record.Row)
			observer(Event{Kind: EventSkipped, Record: record})
			continue
		}

		observer(Event{Kind: EventProcessing, Record: record})
		gs.log.DebugContext(ctx, "Processing address", "row", record.Row, "address", record.Address)

		result := gs.resolver.Resolve(ctx, gs.addressPrefix+strings.TrimSpace(record.Address))
		if err := ctx.Err(); err != nil && !result.IsResolved() {
			return gs.cancelled(ctx, summary, err)
		}
		if !result.IsResolved() {
			summary.Unresolved++
			gs.metrics.RowsProcessed.WithLabelValues(metrics.StatusUnresolved).Inc()
			gs.log.WarnContext(ctx, "Address could not be geocoded",
				"row", record.Row, "address", record.Address, "reason", result.Reason)
			observer(Event{Kind: EventUnresolved, Record: record, Result: result})
			continue
		}

		summary.Resolved++
		gs.metrics.RowsProcessed.WithLabelValues(metrics.StatusResolved).Inc()
		table = append(table, models.GeocodedRow{
			Address:   record.Address,
			Latitude:  result.Coordinates.Latitude,
			Longitude: result.Coordinates.Longitude,
		})
		observer(Event{Kind: EventResolved, Record: record, Result: result})
	}

	if err := ctx.Err(); err != nil {
		return gs.cancelled(ctx, summary, err)
	}

	gs.log.InfoContext(ctx, "Geocoding batch finished",
		"total", summary.Total,
		"resolved", summary.Resolved,
		"unresolved", summary.Unresolved,
		"skipped", summary.Skipped)

	if len(table) == 0 {
		gs.metrics.Batches.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return table, summary, ErrEmptyResult
	}

	gs.metrics.Batches.WithLabelValues(metrics.OutcomeCompleted).Inc()

	return table, summary, nil
}

// cancelled ends a batch whose context is done. Partial results are dropped.
func (gs *GeocodingService) cancelled(
	ctx context.Context,
	summary Summary,
	cause error,
) (models.GeocodedTable, Summary, error) {
	gs.metrics.Batches.WithLabelValues(metrics.OutcomeCancelled).Inc()
	gs.log.WarnContext(ctx, "Geocoding batch cancelled",
		"total", summary.Total,
		"resolved", summary.Resolved,
		"unresolved", summary.Unresolved,
		"skipped", summary.Skipped)

	return nil, summary, fmt.Errorf("geocoding batch cancelled: %w", cause)
}
