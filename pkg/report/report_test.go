package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vavmerge/pkg/engine"
	"vavmerge/pkg/schema"
	"vavmerge/pkg/store"
)

func sampleReport() *engine.Report {
	excelKeys := []string{schema.FieldUnitNo, schema.FieldMBH, schema.FieldLAT}
	dbKeys := []string{schema.ColTag, schema.ColHWMBHCalc, schema.ColHWLATCalc, schema.ColHWPDCalc, schema.ColHWAPDCalc}
	excel := []schema.Record{
		schema.RecordFromMap(excelKeys, map[string]any{schema.FieldUnitNo: "V-1-1", schema.FieldMBH: 100, schema.FieldLAT: 80}),
		schema.RecordFromMap(excelKeys, map[string]any{schema.FieldUnitNo: "V-1-2", schema.FieldMBH: 100, schema.FieldLAT: 80}),
		schema.RecordFromMap(excelKeys, map[string]any{schema.FieldUnitNo: "V-2-1", schema.FieldMBH: 50, schema.FieldLAT: 90}),
	}
	db := []schema.Record{
		schema.RecordFromMap(dbKeys, map[string]any{schema.ColTag: "V-1-01", schema.ColHWMBHCalc: 105, schema.ColHWLATCalc: 82, schema.ColHWPDCalc: 3.5, schema.ColHWAPDCalc: 0.2}),
		schema.RecordFromMap(dbKeys, map[string]any{schema.ColTag: "V-1-02", schema.ColHWMBHCalc: 130, schema.ColHWLATCalc: 82, schema.ColHWPDCalc: 3.5, schema.ColHWAPDCalc: 0.2}),
	}
	return engine.Compare(excel, db, engine.DefaultThresholds())
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", " yaml ", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)

	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML))
	assert.IsType(t, &TableFormatter{}, NewFormatter(FormatTable))
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestGroupResults(t *testing.T) {
	groups := GroupResults(sampleReport().Results)
	require.Len(t, groups, 2)

	assert.Equal(t, "V-1", groups[0].Prefix)
	assert.Equal(t, engine.StatusFail, groups[0].Worst)
	assert.Equal(t, 2, groups[0].Summary.Total)
	assert.Equal(t, 1, groups[0].Summary.Pass)

	assert.Equal(t, "V-2", groups[1].Prefix)
	assert.Equal(t, engine.StatusNotFound, groups[1].Worst)
}

func TestTagPrefix(t *testing.T) {
	assert.Equal(t, "V-1", TagPrefix("V-1-01"))
	assert.Equal(t, "AHU", TagPrefix("AHU-3"))
	assert.Equal(t, "CV1", TagPrefix("CV1"))
}

func TestComparisonViewTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, NewComparisonView(sampleReport())))

	out := buf.String()
	assert.Contains(t, out, "Comparison")
	assert.Contains(t, out, "V-1-02")
	assert.Contains(t, out, "Fail")
	assert.Contains(t, out, "+30.0%")
	assert.Contains(t, out, "By prefix")
}

func TestComparisonViewJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, NewComparisonView(sampleReport())))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "results")
	assert.Contains(t, decoded, "summary")
	assert.Contains(t, decoded, "groups")

	summary := decoded["summary"].(map[string]any)
	assert.EqualValues(t, 3, summary["total"])
	assert.EqualValues(t, 1, summary["not_found"])
}

func TestApplyViewYAML(t *testing.T) {
	view := ApplyView{
		Store: "job.tw2",
		ApplyResult: store.ApplyResult{
			UpdatedRecords: 2,
			BackupPath:     "job.tw2.backup_20250304_050607",
			Errors:         []string{"Batch 4 error for V-1-1: no such column: HWGPM"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, view))
	out := buf.String()
	assert.Contains(t, out, "store: job.tw2")
	assert.Contains(t, out, "updated_records: 2")
	assert.Contains(t, out, "backup_file: job.tw2.backup_20250304_050607")

	buf.Reset()
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, view))
	assert.Contains(t, buf.String(), "HWGPM")
}

func TestRecordsViewLimit(t *testing.T) {
	cols := []string{schema.ColTag, schema.ColUnitSize}
	var recs []schema.Record
	for _, tag := range []string{"V-1-01", "V-1-02", "V-1-03"} {
		recs = append(recs, schema.RecordFromMap(cols, map[string]any{schema.ColTag: tag, schema.ColUnitSize: nil}))
	}

	view := NewRecordsView("tblSchedule", cols, recs, 2)
	assert.Equal(t, 3, view.Total)
	assert.Len(t, view.Records, 2)

	tables := view.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, "tblSchedule (2 of 3 rows)", tables[0].Title)
	assert.Equal(t, []string{"V-1-02", "-"}, tables[0].Rows[1])
}

func TestHeaderView(t *testing.T) {
	grid := schema.Grid{
		{schema.Text("JOB 118")},
		{schema.Text("UNIT NO."), schema.Text("CFM"), schema.Null},
		{schema.Null, schema.Text("MAX"), schema.Text("MIN")},
		{schema.Text("V-1-1"), schema.Int(450), schema.Int(150)},
	}
	info := schema.InferHeaders(grid, schema.HeaderOptions{HeaderRows: 2, SkipTitleRow: true})

	view := NewHeaderView("sched.xlsx", grid, info, 2)
	require.Len(t, view.RawRows, 2)
	assert.Equal(t, []string{"JOB 118"}, view.RawRows[0])

	tables := view.Tables()
	require.Len(t, tables, 3)
	assert.Equal(t, []string{"Title row offset", "1"}, tables[0].Rows[0])
	assert.Len(t, tables[1].Rows, len(info.Combined))
}
