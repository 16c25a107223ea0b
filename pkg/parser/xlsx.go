package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"vavmerge/pkg/schema"
)

func decodeXLSX(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	dates := newDateStyles(f)
	grid := make(schema.Grid, len(rows))
	for r, row := range rows {
		cells := make([]schema.Value, len(row))
		for c, raw := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(name, ref)
			if err != nil {
				typ = excelize.CellTypeUnset
			}
			cell := xlsxCell(raw, typ)
			if cell.IsNumeric() && dates.isDate(name, ref) {
				cell = dates.toTime(cell)
			}
			cells[c] = cell
		}
		grid[r] = cells
	}
	return &Sheet{Name: name, SheetCount: len(sheets), Grid: grid}, nil
}

func xlsxCell(raw string, typ excelize.CellType) schema.Value {
	switch typ {
	case excelize.CellTypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return schema.Null
		}
		return schema.Bool(b)
	case excelize.CellTypeError:
		return schema.Null
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return schema.Time(t)
		}
		if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
			return schema.Time(t)
		}
		return parseCell(raw)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		if strings.TrimSpace(raw) == "" {
			return schema.Null
		}
		return schema.Text(raw)
	default:
		return parseCell(raw)
	}
}

// dateStyles resolves whether a numeric cell carries a date number format.
// Results are cached per style index.
type dateStyles struct {
	f        *excelize.File
	date1904 bool
	cache    map[int]bool
}

func newDateStyles(f *excelize.File) *dateStyles {
	d := &dateStyles{f: f, cache: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *dateStyles) isDate(sheet, ref string) bool {
	idx, err := d.f.GetCellStyle(sheet, ref)
	if err != nil {
		return false
	}
	if is, ok := d.cache[idx]; ok {
		return is
	}
	is := false
	if st, err := d.f.GetStyle(idx); err == nil && st != nil {
		is = isDateFormat(st.NumFmt, st.CustomNumFmt)
	}
	d.cache[idx] = is
	return is
}

func (d *dateStyles) toTime(v schema.Value) schema.Value {
	serial, _ := v.Number()
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return v
	}
	return schema.Time(t)
}

// isDateFormat reports whether a number format renders a date: the built-in
// ids 14-22 and 45-47, or a custom code with a year, month or day token.
func isDateFormat(id int, custom *string) bool {
	if (id >= 14 && id <= 22) || (id >= 45 && id <= 47) {
		return true
	}
	if custom == nil {
		return false
	}
	return customDateFormat(*custom)
}

// customDateFormat scans a format code for y, m or d outside quoted literals,
// bracketed sections and escaped characters. Only the first section counts.
func customDateFormat(code string) bool {
	code, _, _ = strings.Cut(code, ";")
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			switch ch | 0x20 {
			case 'y', 'm', 'd':
				return true
			}
		}
	}
	return false
}
