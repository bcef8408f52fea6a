package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/UnknownOlympus/geobatch/internal/export"
	"github.com/UnknownOlympus/geobatch/internal/mapview"
	"github.com/UnknownOlympus/geobatch/internal/models"
	"github.com/UnknownOlympus/geobatch/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const runIDHeader = "X-Run-ID"

// maxBodyBytes caps the request body of POST /v1/geocode.
const maxBodyBytes = 8 << 20

// Response formats accepted by the format query parameter.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatGeoJSON = "geojson"
	FormatHTML    = "html"
)

// BatchProcessor geocodes one batch of address records; *service.GeocodingService satisfies it.
type BatchProcessor interface {
	ProcessBatch(
		ctx context.Context,
		records []models.AddressRecord,
		observer service.Observer,
	) (models.GeocodedTable, service.Summary, error)
}

// Pinger checks a backing dependency; *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GeocodeRequest is the body of POST /v1/geocode. Null entries count as blank rows.
type GeocodeRequest struct {
	Addresses []*string `json:"addresses" binding:"required"`
}

// GeocodeResponse is the JSON answer of POST /v1/geocode.
type GeocodeResponse struct {
	RunID   string               `json:"run_id"`
	Summary service.Summary      `json:"summary"`
	Rows    models.GeocodedTable `json:"rows"`
	Map     mapview.View         `json:"map"`
}

// Handler handles HTTP requests for batch geocoding.
type Handler struct {
	service BatchProcessor
	db      Pinger
	log     *slog.Logger
	maxRows int
}

// NewHandler creates a new HTTP handler. db may be nil when no database is configured.
// maxRows limits the addresses accepted per request; zero or less means no limit.
func NewHandler(service BatchProcessor, db Pinger, log *slog.Logger, maxRows int) *Handler {
	return &Handler{
		service: service,
		db:      db,
		log:     log,
		maxRows: maxRows,
	}
}

// Geocode handles POST /v1/geocode.
func (h *Handler) Geocode(c *gin.Context) {
	format := c.DefaultQuery("format", FormatJSON)
	switch format {
	case FormatJSON, FormatCSV, FormatGeoJSON, FormatHTML:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported format %q", format)})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req GeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if h.maxRows > 0 && len(req.Addresses) > h.maxRows {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("batch has %d addresses, the limit is %d", len(req.Addresses), h.maxRows),
		})
		return
	}

	runID := uuid.NewString()
	c.Header(runIDHeader, runID)
	log := h.log.With("run_id", runID)

	ctx := c.Request.Context()
	log.InfoContext(ctx, "Geocoding request received", "rows", len(req.Addresses), "format", format)

	table, summary, err := h.service.ProcessBatch(ctx, req.records(), nil)
	if err != nil {
		if errors.Is(err, service.ErrEmptyResult) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "run_id": runID, "summary": summary})
			return
		}
		log.ErrorContext(ctx, "Geocoding batch failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "geocoding failed", "run_id": runID})
		return
	}

	switch format {
	case FormatCSV:
		body, errExp := export.ToCSV(table)
		h.writeArtifact(c, log, export.CSVArtifact, body, errExp)
	case FormatGeoJSON:
		body, errExp := export.ToGeoJSON(table)
		h.writeArtifact(c, log, export.GeoJSONArtifact, body, errExp)
	case FormatHTML:
		h.writeMap(c, log, table)
	default:
		view, errMap := mapview.Build(table)
		if errMap != nil {
			log.ErrorContext(ctx, "Failed to build map view", "error", errMap)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build map view", "run_id": runID})
			return
		}
		c.JSON(http.StatusOK, GeocodeResponse{RunID: runID, Summary: summary, Rows: table, Map: view})
	}
}

func (h *Handler) writeArtifact(c *gin.Context, log *slog.Logger, artifact export.Artifact, body string, err error) {
	if err != nil {
		log.ErrorContext(c.Request.Context(), "Failed to export table", "file", artifact.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export table"})
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	c.Data(http.StatusOK, artifact.ContentType+"; charset=utf-8", []byte(body))
}

func (h *Handler) writeMap(c *gin.Context, log *slog.Logger, table models.GeocodedTable) {
	view, err := mapview.Build(table)
	if err == nil {
		var page bytes.Buffer
		if err = mapview.Render(&page, view); err == nil {
			c.Data(http.StatusOK, "text/html; charset=utf-8", page.Bytes())
			return
		}
	}

	log.ErrorContext(c.Request.Context(), "Failed to render map", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render map"})
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	h.log.DebugContext(ctx, "Performing health checks...")

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.log.WarnContext(ctx, "Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DB ping failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r GeocodeRequest) records() []models.AddressRecord {
	records := make([]models.AddressRecord, 0, len(r.Addresses))
	for i, address := range r.Addresses {
		record := models.AddressRecord{Row: i + 1}
		if address != nil {
			record.Address = *address
		}
		records = append(records, record)
	}

	return records
}
