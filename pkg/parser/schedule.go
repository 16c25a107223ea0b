package parser

import (
	"context"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/logging"
	"vavmerge/pkg/schema"
)

// Options controls where the header window and data region sit.
type Options struct {
	// DataStartRow is the 1-based row where equipment data begins.
	DataStartRow int `json:"data_start_row" yaml:"data_start_row" mapstructure:"data_start_row"`
	// HeaderRows is how many header rows are combined (1 or 2).
	HeaderRows int `json:"header_rows" yaml:"header_rows" mapstructure:"header_rows"`
	// SkipTitleRow treats the first row as a title unless it looks like headers.
	SkipTitleRow bool `json:"skip_title_row" yaml:"skip_title_row" mapstructure:"skip_title_row"`
}

// DefaultOptions returns the usual layout: a title row, two header rows and
// data from row 3.
func DefaultOptions() Options {
	return Options{DataStartRow: 3, HeaderRows: 2, SkipTitleRow: true}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.DataStartRow < 1 {
		return errors.NewValidationError("data_start_row", o.DataStartRow, "must be at least 1")
	}
	if o.HeaderRows < 1 || o.HeaderRows > 2 {
		return errors.NewValidationError("header_rows", o.HeaderRows, "must be 1 or 2")
	}
	return nil
}

// Schedule is a spreadsheet read into normalized records.
type Schedule struct {
	Source       string            `json:"source,omitempty" yaml:"source,omitempty"`
	Records      []schema.Record   `json:"data" yaml:"data"`
	Columns      []string          `json:"columns" yaml:"columns"`
	RowCount     int               `json:"row_count" yaml:"row_count"`
	DataStartRow int               `json:"data_start_row" yaml:"data_start_row"`
	HeaderInfo   schema.HeaderInfo `json:"header_info" yaml:"header_info"`
}

// ReadSchedule loads the first sheet of path and extracts its equipment
// records. It is all-or-nothing: any failure returns an error and no records.
func ReadSchedule(ctx context.Context, path string, opts Options) (*Schedule, error) {
	logger := logging.FromContext(ctx).With().Str("source", path).Logger()

	if err := opts.Validate(); err != nil {
		return nil, errors.NewReadError(path, "options", err)
	}
	sheet, err := LoadSheet(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, w := range sheet.Warnings {
		logger.Warn().Int("row", w.Row).Msg(w.Message)
	}
	logger.Debug().
		Str("sheet", sheet.Name).
		Int("rows", sheet.Rows()).
		Int("cols", sheet.Cols()).
		Msg("Loaded raw grid")

	sched := BuildSchedule(sheet.Grid, opts)
	sched.Source = path

	logger.Debug().
		Int("title_row_offset", sched.HeaderInfo.TitleRowOffset).
		Bool("used_second_row", sched.HeaderInfo.UsedSecondRow).
		Strs("combined", sched.HeaderInfo.Combined).
		Strs("mapped", sched.HeaderInfo.Mapped).
		Msg("Inferred headers")
	if !containsString(sched.Columns, schema.FieldUnitNo) {
		logger.Warn().Msg("Unit_No column not found in mapped headers")
	}
	logger.Info().Int("records", sched.RowCount).Msg("Read schedule")
	return sched, nil
}

// BuildSchedule turns a raw grid into records: infer headers, slice the data
// region, drop blank rows and rows with no critical field, clean size
// columns, and sanitize every cell.
func BuildSchedule(grid schema.Grid, opts Options) *Schedule {
	info := schema.InferHeaders(grid, schema.HeaderOptions{
		HeaderRows:   opts.HeaderRows,
		SkipTitleRow: opts.SkipTitleRow,
	})
	columns := info.Mapped
	width := len(columns)

	critical := positions(columns, schema.CriticalFields)
	sizes := positions(columns, schema.SizeFields)

	sched := &Schedule{
		DataStartRow: opts.DataStartRow,
		HeaderInfo:   info,
		Records:      []schema.Record{},
	}

	start := max(opts.DataStartRow-1, 0)
	for r := start; r < len(grid); r++ {
		row := make([]schema.Value, width)
		copy(row, grid[r])
		if schema.IsBlankRow(row) {
			continue
		}
		if len(critical) > 0 && !anyPresent(row, critical) {
			continue
		}
		for _, c := range sizes {
			row[c] = schema.CleanSizeValue(row[c])
		}
		for c := range row {
			row[c] = schema.Sanitize(row[c])
		}
		sched.Records = append(sched.Records, schema.NewRecord(columns, row))
	}

	sched.RowCount = len(sched.Records)
	sched.Columns = uniqueColumns(columns)
	return sched
}

func positions(columns, names []string) []int {
	var out []int
	for i, col := range columns {
		if containsString(names, col) {
			out = append(out, i)
		}
	}
	return out
}

func anyPresent(row []schema.Value, idx []int) bool {
	for _, i := range idx {
		if !row[i].IsNull() {
			return true
		}
	}
	return false
}

func uniqueColumns(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
