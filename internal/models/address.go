package models

import "strings"

// AddressRecord is one input row read from a tabular source.
type AddressRecord struct {
	Row     int    // Row is the 1-based data row index in the source (header excluded).
	Address string // Address is the raw cell value, possibly empty.
}

// IsBlank reports whether the record carries no usable address.
func (r AddressRecord) IsBlank() bool {
	return strings.TrimSpace(r.Address) == ""
}

// GeocodedRow is an address that was resolved to a coordinate pair.
type GeocodedRow struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeocodedTable holds resolved rows in input order.
type GeocodedTable []GeocodedRow
