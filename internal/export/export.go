// Package export renders a GeocodedTable as downloadable CSV and GeoJSON documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/UnknownOlympus/geobatch/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CSV column headers: address, latitude, longitude.
var csvHeader = []string{"Adres", "Enlem", "Boylam"}

// Artifact describes a downloadable export.
type Artifact struct {
	Filename    string
	ContentType string
}

var (
	CSVArtifact = Artifact{
		Filename:    "coğrafi_kodlanmış_veri.csv",
		ContentType: "text/csv",
	}
	GeoJSONArtifact = Artifact{
		Filename:    "coğrafi_kodlanmış_veri.geojson",
		ContentType: "application/geo+json",
	}
)

// ToCSV writes the table as CSV with an "Adres,Enlem,Boylam" header and "\n" line endings.
// Coordinates use the shortest decimal form that parses back to the same float.
func ToCSV(table models.GeocodedTable) (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, row := range table {
		record := []string{row.Address, formatCoordinate(row.Latitude), formatCoordinate(row.Longitude)}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.String(), nil
}

// ToGeoJSON encodes the table as a FeatureCollection of Points, one per row, in
// table order. Point coordinates are [longitude, latitude] and the address is
// stored under properties.address. Non-ASCII text and HTML characters are kept literally.
func ToGeoJSON(table models.GeocodedTable) (string, error) {
	collection := geojson.NewFeatureCollection()
	for _, row := range table {
		feature := geojson.NewFeature(orb.Point{row.Longitude, row.Latitude})
		feature.Properties["address"] = row.Address
		collection.Append(feature)
	}

	data, err := collection.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode geojson: %w", err)
	}

	return string(data), nil
}

// literalJSON is an encoding/json marshaler that leaves &, < and > unescaped.
type literalJSON struct{}

func (literalJSON) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func init() {
	geojson.CustomJSONMarshaler = literalJSON{}
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
