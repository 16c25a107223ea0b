package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/logging"
	"vavmerge/pkg/schema"
)

// Schedule is the governing table read into normalized records.
type Schedule struct {
	Source   string          `json:"source" yaml:"source"`
	Strategy string          `json:"strategy" yaml:"strategy"`
	Records  []schema.Record `json:"data" yaml:"data"`
	Columns  []string        `json:"columns" yaml:"columns"`
	RowCount int             `json:"row_count" yaml:"row_count"`
}

// decimalTypes are column types whose values arrive as fixed-point text.
var decimalTypes = map[string]bool{
	"DECIMAL":  true,
	"NUMERIC":  true,
	"CURRENCY": true,
	"MONEY":    true,
}

// ReadSchedule reads every row of the schedule table. Columns come from a
// zero-row query; the row count and the rows are fetched by two separate
// queries. Each cell is sanitized independently, so an unusable cell becomes
// null rather than failing its row.
func ReadSchedule(ctx context.Context, path string, opts Options) (*Schedule, error) {
	opts = opts.withDefaults()
	ctx, cancel := opts.context(ctx)
	defer cancel()
	logger := logging.FromContext(ctx).With().Str("store", path).Logger()

	conn, err := Connect(ctx, path, opts.Table, opts.Strategies)
	if err != nil {
		return nil, errors.NewReadError(path, "connect", err)
	}
	defer conn.Close()
	logger.Debug().Int("columns", len(conn.Columns)).Strs("first_columns", head(conn.Columns, 10)).Msg("Read columns")

	table := quoteIdent(opts.Table)
	var count int
	if err := conn.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return nil, errors.NewReadError(path, "count", wrapTimeout(err))
	}

	records, err := fetchRecords(ctx, conn.DB, "SELECT * FROM "+table, conn.Columns)
	if err != nil {
		return nil, errors.NewReadError(path, "select", wrapTimeout(err))
	}
	if len(records) != count {
		logger.Warn().Int("count", count).Int("fetched", len(records)).Msg("Row count changed between queries")
	}
	logger.Info().Int("records", count).Str("strategy", conn.Strategy).Msg("Read store schedule")

	return &Schedule{
		Source:   path,
		Strategy: conn.Strategy,
		Records:  records,
		Columns:  conn.Columns,
		RowCount: count,
	}, nil
}

// fetchRecords materializes a query, naming values after columns. The row
// set is fully read before any value is sanitized.
func fetchRecords(ctx context.Context, db *sql.DB, query string, columns []string) ([]schema.Record, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	got, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(got) != len(columns) {
		return nil, fmt.Errorf("column query returned %d columns, select returned %d", len(columns), len(got))
	}
	decimal := make([]bool, len(got))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			decimal[i] = decimalTypes[baseType(ct.DatabaseTypeName())]
		}
	}

	var raw [][]any
	for rows.Next() {
		values := make([]any, len(got))
		scans := make([]any, len(got))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, err
		}
		raw = append(raw, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	records := make([]schema.Record, 0, len(raw))
	for _, values := range raw {
		cells := make([]schema.Value, len(values))
		for i, v := range values {
			if decimal[i] {
				v = asDecimal(v)
			}
			cells[i] = schema.Sanitize(v)
		}
		records = append(records, schema.NewRecord(columns, cells))
	}
	return records, nil
}

func asDecimal(v any) any {
	switch x := v.(type) {
	case []byte:
		return schema.Decimal(x)
	case string:
		return schema.Decimal(x)
	default:
		return v
	}
}

// baseType strips any precision suffix: DECIMAL(10,2) is DECIMAL.
func baseType(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.ToUpper(strings.TrimSpace(name))
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
