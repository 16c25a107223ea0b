// Package parser decodes spreadsheet files (xlsx, xls, csv) into raw grids of
// schema.Value cells and turns those grids into normalized schedule records.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/schema"
)

// Sheet is the first worksheet of a decoded file.
type Sheet struct {
	Name       string         `json:"name"`
	SheetCount int            `json:"sheet_count"`
	Encoding   string         `json:"encoding,omitempty"`
	Grid       schema.Grid    `json:"-"`
	Warnings   []ParseWarning `json:"warnings,omitempty"`
}

// ParseWarning is a non-fatal issue found while decoding.
type ParseWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Rows returns the number of grid rows.
func (s *Sheet) Rows() int { return len(s.Grid) }

// Cols returns the grid width.
func (s *Sheet) Cols() int { return s.Grid.Width() }

// SupportedExtensions lists the file extensions LoadSheet can decode.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".xls", ".csv"}

// LoadSheet decodes the first worksheet of path with no header assumption.
func LoadSheet(ctx context.Context, path string) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewReadError(path, "load", err)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewReadError(path, "stat", errors.NewNotFoundError("spreadsheet", path))
		}
		return nil, errors.NewReadError(path, "stat", err)
	}

	var (
		sheet *Sheet
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		sheet, err = decodeXLSX(path)
	case ".xls":
		sheet, err = decodeXLS(path)
	case ".csv":
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			sheet, err = DecodeCSV(data)
		}
	default:
		err = errors.NewValidationError("path", path, fmt.Sprintf("unsupported spreadsheet extension %q", ext))
	}
	if err != nil {
		return nil, errors.NewReadError(path, "decode", err)
	}
	return sheet, nil
}

// parseCell types a cell that arrived as text: blank is Null, integral
// numbers are Int, other numbers Float, anything else Text.
func parseCell(raw string) schema.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return schema.Null
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return schema.Int(i)
	}
	if looksNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return schema.Float(f)
		}
	}
	return schema.Text(raw)
}

// looksNumeric rejects words ParseFloat would accept, such as "inf" and "nan".
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
