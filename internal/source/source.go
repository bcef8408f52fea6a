// Package source reads tabular address data from spreadsheet files.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/geobatch/internal/models"
)

// Common errors for table sources.
var (
	ErrColumnNotFound    = errors.New("column not found")
	ErrNoHeader          = errors.New("source has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Table is a header row plus data rows. Rows may be shorter than Columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// newTable splits raw rows into header and data. Blank header cells are named Column<N>.
func newTable(raw [][]string) (*Table, error) {
	if len(raw) == 0 {
		return nil, ErrNoHeader
	}

	columns := make([]string, len(raw[0]))
	for i, name := range raw[0] {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Column" + strconv.Itoa(i+1)
		}
		columns[i] = name
	}

	return &Table{Columns: columns, Rows: raw[1:]}, nil
}

// Column returns the values of the named column, one record per data row, in row order.
// Cells missing from short rows become blank records.
func (t *Table) Column(name string) ([]models.AddressRecord, error) {
	idx := -1
	for i, col := range t.Columns {
		if col == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrColumnNotFound, name, strings.Join(t.Columns, ", "))
	}

	records := make([]models.AddressRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		var value string
		if idx < len(row) {
			value = row[idx]
		}
		records = append(records, models.AddressRecord{Row: i + 1, Address: value})
	}

	return records, nil
}

// Open reads a spreadsheet file, choosing the reader by extension.
// sheet selects an XLSX worksheet and is ignored for CSV.
func Open(path, sheet string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" && ext != ".csv" {
		return nil, fmt.Errorf("%w: %q (expected .xlsx, .xlsm or .csv)", ErrUnsupportedFormat, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer file.Close()

	if ext == ".csv" {
		return ReadCSV(file)
	}

	return ReadXLSX(file, sheet)
}
