package parser

import (
	"fmt"
	"os"

	"github.com/extrame/xls"

	"vavmerge/pkg/schema"
)

// xlsCharset is used for legacy workbooks that store 8-bit strings.
const xlsCharset = "utf-8"

// xlsMaxCols is the BIFF8 column limit, scanned when a row carries no ROW
// record and so reports no width.
const xlsMaxCols = 256

func decodeXLS(path string) (*Sheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	wb, err := xls.OpenReader(file, xlsCharset)
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, fmt.Errorf("no workbook stream found")
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("first sheet is unreadable")
	}

	var grid schema.Grid
	if ws.MaxRow > 0 || xlsRow(ws, 0) != nil {
		grid = make(schema.Grid, int(ws.MaxRow)+1)
	}
	for r := range grid {
		row := xlsRow(ws, r)
		if row == nil {
			continue
		}
		grid[r] = xlsCells(row)
	}
	return &Sheet{Name: ws.Name, SheetCount: wb.NumSheets(), Grid: grid}, nil
}

// xlsRow returns row r, or nil when the sheet has no cells on it. The
// library dereferences missing rows, so that panic is caught here.
func xlsRow(ws *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(r)
}

// xlsCells types a row's cells. LastCol is one past the last used column.
func xlsCells(row *xls.Row) []schema.Value {
	first, last := row.FirstCol(), row.LastCol()
	if last <= 0 {
		first, last = 0, xlsMaxCols
	}
	cells := make([]schema.Value, last)
	for c := max(first, 0); c < last; c++ {
		cells[c] = parseCell(row.Col(c))
	}
	end := len(cells)
	for end > 0 && cells[end-1].IsNull() {
		end--
	}
	return cells[:end]
}
