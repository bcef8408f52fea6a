package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/geobatch/internal/config"
	"github.com/UnknownOlympus/geobatch/internal/export"
	"github.com/UnknownOlympus/geobatch/internal/mapview"
	"github.com/UnknownOlympus/geobatch/internal/metrics"
	"github.com/UnknownOlympus/geobatch/internal/models"
	"github.com/UnknownOlympus/geobatch/internal/repository"
	"github.com/UnknownOlympus/geobatch/internal/source"
	"github.com/spf13/cobra"
)

const (
	sourceFile     = "file"
	sourcePostgres = "postgres"

	mapFilename = "harita.html"
)

type geocodeOptions struct {
	source   string
	input    string
	sheet    string
	table    string
	column   string
	orderBy  string
	outDir   string
	noMap    bool
	provider string
	prefix   string
}

func newGeocodeCmd() *cobra.Command {
	opts := &geocodeOptions{}

	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Geocode an address column and export the results",
		Example: `  geobatch geocode --input musteriler.xlsx --column Adres
  geobatch geocode --source postgres --table public.musteriler --column adres --order-by id`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.MustLoad()
			if cmd.Flags().Changed("provider") {
				cfg.ProviderType = opts.provider
			}
			if cmd.Flags().Changed("prefix") {
				cfg.AddrPrefix = opts.prefix
			}

			// Logs go to stderr, results to stdout.
			logger := setupLogger(cfg.Env, os.Stderr)

			return runGeocode(cmd, cfg, logger, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.source, "source", sourceFile, "where addresses come from: file or postgres")
	flags.StringVarP(&opts.input, "input", "i", "", "input file (.xlsx, .xlsm or .csv)")
	flags.StringVar(&opts.sheet, "sheet", "", "worksheet to read (default: first sheet)")
	flags.StringVar(&opts.table, "table", "", "table to read with --source postgres, may be schema-qualified")
	flags.StringVarP(&opts.column, "column", "c", "", "column holding the addresses")
	flags.StringVar(&opts.orderBy, "order-by", "id", "column fixing row order with --source postgres")
	flags.StringVarP(&opts.outDir, "out-dir", "o", ".", "directory for the exported files")
	flags.BoolVar(&opts.noMap, "no-map", false, "do not write the map page")
	flags.StringVar(&opts.provider, "provider", "", "geocoding provider (overrides GEOBATCH_PROVIDER_TYPE)")
	flags.StringVar(&opts.prefix, "prefix", "", "text prepended to each address (overrides GEOBATCH_ADDRESS_PREFIX)")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

func runGeocode(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, opts *geocodeOptions) error {
	ctx := cmd.Context()

	records, err := loadRecords(ctx, cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("failed to read addresses: %w", err)
	}

	geoService, err := newGeocodingService(cfg, logger, metrics.NewDiscard())
	if err != nil {
		return err
	}

	progress := newProgressReporter(cmd.ErrOrStderr(), len(records))
	table, summary, err := geoService.ProcessBatch(ctx, records, progress.Observe)
	progress.Finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderResults(table))
	fmt.Fprintln(out, renderSummary(summary))

	paths, err := writeArtifacts(opts.outDir, table, !opts.noMap)
	for _, path := range paths {
		fmt.Fprintf(out, "Saved %s\n", path)
	}

	return err
}

func loadRecords(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	opts *geocodeOptions,
) ([]models.AddressRecord, error) {
	switch opts.source {
	case sourceFile:
		if opts.input == "" {
			return nil, errors.New("--input is required with --source file")
		}

		table, err := source.Open(opts.input, opts.sheet)
		if err != nil {
			return nil, err
		}

		return table.Column(opts.column)
	case sourcePostgres:
		if !cfg.Database.Configured() {
			return nil, errors.New("DB_HOST and DB_NAME must be set with --source postgres")
		}

		pool, err := repository.NewDatabase(
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		defer pool.Close()

		repo := repository.NewRepository(pool, logger)

		return repo.FetchAddresses(ctx, repository.AddressQuery{
			Table:   opts.table,
			Column:  opts.column,
			OrderBy: opts.orderBy,
		})
	default:
		return nil, fmt.Errorf("unknown source %q, expected %s or %s", opts.source, sourceFile, sourcePostgres)
	}
}

// writeArtifacts writes the CSV, GeoJSON and optionally the map page into dir.
// It returns the paths written so far, also on error.
func writeArtifacts(dir string, table models.GeocodedTable, withMap bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string

	csvBody, err := export.ToCSV(table)
	if err != nil {
		return paths, err
	}
	path := filepath.Join(dir, export.CSVArtifact.Filename)
	if err = os.WriteFile(path, []byte(csvBody), 0o644); err != nil {
		return paths, fmt.Errorf("failed to write %s: %w", path, err)
	}
	paths = append(paths, path)

	geoBody, err := export.ToGeoJSON(table)
	if err != nil {
		return paths, err
	}
	path = filepath.Join(dir, export.GeoJSONArtifact.Filename)
	if err = os.WriteFile(path, []byte(geoBody), 0o644); err != nil {
		return paths, fmt.Errorf("failed to write %s: %w", path, err)
	}
	paths = append(paths, path)

	if !withMap {
		return paths, nil
	}

	view, err := mapview.Build(table)
	if err != nil {
		return paths, err
	}
	path = filepath.Join(dir, mapFilename)
	file, err := os.Create(path)
	if err != nil {
		return paths, fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer file.Close()

	if err = mapview.Render(file, view); err != nil {
		return paths, err
	}

	return append(paths, path), file.Close()
}
