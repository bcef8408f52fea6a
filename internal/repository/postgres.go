package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UnknownOlympus/geobatch/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// AddressQuery names the table, the address column and the column that fixes row order.
// Table may be schema-qualified ("public.customers").
type AddressQuery struct {
	Table   string
	Column  string
	OrderBy string
}

// ErrInvalidQuery is returned when a required identifier is missing.
var ErrInvalidQuery = errors.New("table, column and order-by column are required")

// SQL builds the SELECT statement with every identifier quoted.
func (q AddressQuery) SQL() (string, error) {
	if q.Table == "" || q.Column == "" || q.OrderBy == "" {
		return "", ErrInvalidQuery
	}

	table := pgx.Identifier(strings.Split(q.Table, "."))

	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		pgx.Identifier{q.Column}.Sanitize(),
		table.Sanitize(),
		pgx.Identifier{q.OrderBy}.Sanitize(),
	), nil
}

// FetchAddresses returns the address column of every row in query order.
// NULL values become blank records so they are skipped like empty spreadsheet cells.
//
// Parameters:
// - ctx: The context for the operation, allowing for cancellation and timeout.
// - query: The table, address column and ordering column to read.
//
// Returns:
// - A slice of models.AddressRecord numbered from 1 in result order.
// - An error if the query fails or if there is an issue scanning the results.
func (r *Repository) FetchAddresses(ctx context.Context, query AddressQuery) ([]models.AddressRecord, error) {
	sql, err := query.SQL()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var records []models.AddressRecord
	for rows.Next() {
		var address pgtype.Text
		if errScan := rows.Scan(&address); errScan != nil {
			return nil, fmt.Errorf("failed to scan address: %w", errScan)
		}
		records = append(records, models.AddressRecord{Row: len(records) + 1, Address: address.String})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "Addresses fetched from database", "table", query.Table, "rows", len(records))

	return records, nil
}
