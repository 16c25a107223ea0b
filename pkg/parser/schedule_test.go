package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/logging"
	"vavmerge/pkg/schema"
)

// writeScheduleXLSX writes a workbook with a title row, a two-row header and
// data rows interleaved with a blank row and a notes row.
func writeScheduleXLSX(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	rows := [][]any{
		{"JOB 2024-118"},
		{"UNIT NO.", "MANUFACTURER & MODEL NO.", "UNIT SIZE", "CFM", nil, "MBH", "LAT"},
		{nil, nil, nil, "MAX", "MIN", nil, nil},
		{"V-1-1", "Titus DESV", `8"`, 450, 150, 12.5, 95},
		{},
		{"NOTES: see drawings"},
		{"V-1-12", "Titus DESV", `14"`, 1200, 400, 30, 90},
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, ref, v))
		}
	}

	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadScheduleXLSX(t *testing.T) {
	path := writeScheduleXLSX(t)
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	sched, err := ReadSchedule(ctx, path, Options{DataStartRow: 4, HeaderRows: 2, SkipTitleRow: true})
	require.NoError(t, err)

	assert.Equal(t, 1, sched.HeaderInfo.TitleRowOffset)
	assert.True(t, sched.HeaderInfo.UsedSecondRow)
	assert.Equal(t,
		[]string{"Unit_No", "Manufacturer_Model", "Unit_Size", "CFM_Max", "CFM_Min", "MBH", "LAT"},
		sched.Columns)
	require.Equal(t, 2, sched.RowCount)
	require.Len(t, sched.Records, 2)

	first := sched.Records[0]
	assert.Equal(t, "V-1-1", first.Get("Unit_No").String())
	assert.Equal(t, "08", first.Get("Unit_Size").String())
	assert.True(t, schema.Int(450).Equal(first.Get("CFM_Max")))
	assert.True(t, schema.Float(12.5).Equal(first.Get("MBH")))

	second := sched.Records[1]
	assert.Equal(t, "V-1-12", second.Get("Unit_No").String())
	assert.Equal(t, "14", second.Get("Unit_Size").String())

	assert.True(t, tl.Contains("Read schedule"))
}

func TestReadScheduleXLSXDateCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"UNIT NO.", "CFM", "REV DATE", "SERIAL"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"V-1-1", 450, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 45356}))

	custom := "yyyy-mm-dd"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(sheet, "A3", "V-1-2"))
	require.NoError(t, f.SetCellValue(sheet, "C3", 45357))
	require.NoError(t, f.SetCellStyle(sheet, "C3", "C3", style))

	path := filepath.Join(t.TempDir(), "dates.xlsx")
	require.NoError(t, f.SaveAs(path))

	sched, err := ReadSchedule(context.Background(), path, Options{DataStartRow: 2, HeaderRows: 1, SkipTitleRow: false})
	require.NoError(t, err)
	require.Len(t, sched.Records, 2)

	rev := sched.Records[0].Get("REV_DATE")
	assert.Equal(t, schema.KindText, rev.Kind())
	assert.Equal(t, "2024-03-05T00:00:00", rev.String())
	assert.True(t, schema.Int(45356).Equal(sched.Records[0].Get("SERIAL")), "plain numbers stay numbers")
	assert.Equal(t, "2024-03-06T00:00:00", sched.Records[1].Get("REV_DATE").String())
}

func TestIsDateFormat(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name   string
		id     int
		custom *string
		want   bool
	}{
		{"general", 0, nil, false},
		{"builtin date", 14, nil, true},
		{"builtin datetime", 22, nil, true},
		{"builtin time", 46, nil, true},
		{"builtin number", 2, nil, false},
		{"custom date", 164, str("dd/mm/yyyy"), true},
		{"custom locale date", 164, str("[$-409]mmm d, yyyy"), true},
		{"custom number", 164, str("#,##0.00"), false},
		{"quoted literal", 164, str(`0.0 "days"`), false},
		{"escaped letter", 164, str(`0\d`), false},
		{"colour section", 164, str("[Red]0.00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDateFormat(tt.id, tt.custom))
		})
	}
}

func TestReadScheduleMissingFile(t *testing.T) {
	_, err := ReadSchedule(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), DefaultOptions())
	require.Error(t, err)

	var readErr *errors.ReadError
	assert.True(t, errors.As(err, &readErr))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestReadScheduleRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	_, err := ReadSchedule(context.Background(), path, DefaultOptions())
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestReadScheduleInvalidOptions(t *testing.T) {
	_, err := ReadSchedule(context.Background(), "x.csv", Options{DataStartRow: 0, HeaderRows: 2})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestReadScheduleCSVWithoutTitle(t *testing.T) {
	data := "UNIT NO.,UNIT SIZE,CFM,,NOTES\n" +
		",,MAX,MIN,\n" +
		"V-2-3,6\",300,100,\n" +
		",,,,trailing note\n" +
		"V-2-4,24x16,N/A,90,\n"
	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	sched, err := ReadSchedule(context.Background(), path, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, sched.HeaderInfo.TitleRowOffset)
	assert.Equal(t, []string{"Unit_No", "Unit_Size", "CFM_Max", "CFM_Min", "Notes"}, sched.HeaderInfo.Mapped)
	require.Len(t, sched.Records, 2)
	assert.Equal(t, "06", sched.Records[0].Get("Unit_Size").String())
	assert.Equal(t, "24x16", sched.Records[1].Get("Unit_Size").String())
	assert.True(t, sched.Records[1].Get("CFM_Max").IsNull())
}

func TestBuildScheduleKeepsRowsWhenNoCriticalColumns(t *testing.T) {
	grid := schema.Grid{
		{schema.Text("TAG"), schema.Text("GPM")},
		{schema.Text("V-1-1"), schema.Float(1.5)},
		{schema.Null, schema.Null},
		{schema.Text("V-1-2"), schema.Null},
	}

	sched := BuildSchedule(grid, Options{DataStartRow: 2, HeaderRows: 1, SkipTitleRow: false})

	assert.Equal(t, []string{"Unit_No", "GPM"}, sched.Columns)
	assert.Equal(t, 2, sched.RowCount)
}

func TestDecodeCSVWarnsOnBadRows(t *testing.T) {
	sheet, err := DecodeCSV([]byte("a,b\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, sheet.Rows())
	assert.Equal(t, 3, sheet.Cols())

	_, err = DecodeCSV(nil)
	assert.Error(t, err)
}
