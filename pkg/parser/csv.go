package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"vavmerge/pkg/schema"
)

// DecodeCSV reads CSV bytes as a raw grid. Rows keep their own widths and
// rows that fail to parse are skipped with a warning.
func DecodeCSV(data []byte) (*Sheet, error) {
	decoded, enc, err := DetectAndDecode(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	sheet := &Sheet{Name: "csv", SheetCount: 1, Encoding: enc}
	rowNum := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			sheet.Warnings = append(sheet.Warnings, ParseWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("parse error: %v", err),
			})
			continue
		}
		cells := make([]schema.Value, len(row))
		for i, raw := range row {
			cells[i] = parseCell(raw)
		}
		sheet.Grid = append(sheet.Grid, cells)
	}

	if len(sheet.Grid) == 0 {
		return nil, fmt.Errorf("empty file: no rows found")
	}
	return sheet, nil
}
