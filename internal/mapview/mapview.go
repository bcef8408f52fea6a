// Package mapview prepares a GeocodedTable for display on a web map.
package mapview

import (
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/UnknownOlympus/geobatch/internal/models"
)

// DefaultZoom is the initial zoom level of the rendered map.
const DefaultZoom = 10

// ErrEmptyTable is returned when there is nothing to put on the map.
var ErrEmptyTable = errors.New("cannot build a map from an empty table")

// Marker is one labelled point.
type Marker struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Label     string  `json:"label"`
}

// View is everything a map renderer needs: markers and the initial viewport.
type View struct {
	Center  Marker   `json:"center"`
	Zoom    int      `json:"zoom"`
	Markers []Marker `json:"markers"`
}

// Build centres the view on the mean latitude and longitude of the table.
func Build(table models.GeocodedTable) (View, error) {
	if len(table) == 0 {
		return View{}, ErrEmptyTable
	}

	view := View{Zoom: DefaultZoom, Markers: make([]Marker, 0, len(table))}

	var sumLat, sumLon float64
	for _, row := range table {
		sumLat += row.Latitude
		sumLon += row.Longitude
		view.Markers = append(view.Markers, Marker{
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
			Label:     row.Address,
		})
	}

	n := float64(len(table))
	view.Center = Marker{Latitude: sumLat / n, Longitude: sumLon / n}

	return view, nil
}

var page = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="tr">
<head>
<meta charset="utf-8">
<title>Harita Görselleştirmesi</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map("map").setView([{{.Center.Latitude}}, {{.Center.Longitude}}], {{.Zoom}});
L.tileLayer("https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", {
  attribution: "&copy; OpenStreetMap contributors"
}).addTo(map);
var markers = {{.Markers}};
function escapeHTML(s) {
  return s.replace(/[&<>"']/g, function (c) { return "&#" + c.charCodeAt(0) + ";"; });
}
markers.forEach(function (m) {
  L.marker([m.lat, m.lon]).bindPopup(escapeHTML(m.label)).addTo(map);
});
</script>
</body>
</html>
`))

// Render writes a standalone Leaflet page showing the view.
func Render(w io.Writer, view View) error {
	if err := page.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render map page: %w", err)
	}

	return nil
}
