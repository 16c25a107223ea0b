package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter/tw"

	"vavmerge/pkg/engine"
	"vavmerge/pkg/schema"
	"vavmerge/pkg/store"
)

// ComparisonView is a comparison report with its per-prefix groups.
type ComparisonView struct {
	engine.Report `yaml:",inline"`
	Groups []Group `json:"groups" yaml:"groups"`
}

// NewComparisonView groups the results of rep.
func NewComparisonView(rep *engine.Report) ComparisonView {
	return ComparisonView{Report: *rep, Groups: GroupResults(rep.Results)}
}

// Tables implements Tabular.
func (v ComparisonView) Tables() []Data {
	results := Data{
		Title: "Comparison",
		Headers: []string{"Unit", "Status", "Excel MBH", "DB MBH", "MBH Diff", "Excel LAT", "DB LAT",
			"LAT Diff", "WPD", "APD", "HW Rows", "Details"},
		Align: []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight,
			tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignLeft},
	}
	for _, r := range v.Results {
		results.Rows = append(results.Rows, []string{
			r.UnitTag,
			string(r.Status),
			cell(r.ExcelMBH),
			cell(r.DBMBH),
			percent(r.MBHDiff),
			cell(r.ExcelLAT),
			cell(r.DBLAT),
			percent(r.LATDiff),
			cell(r.DBWPD),
			cell(r.DBAPD),
			rows(r.HWRows),
			resultDetails(r),
		})
	}

	s := v.Summary
	tables := []Data{results, {
		Title:   "Summary",
		Headers: []string{"Total", "Pass", "Warning", "Fail", "Not Found"},
		Rows: [][]string{{
			strconv.Itoa(s.Total), strconv.Itoa(s.Pass), strconv.Itoa(s.Warning),
			strconv.Itoa(s.Fail), strconv.Itoa(s.NotFound),
		}},
	}}

	if len(v.Groups) > 1 {
		groups := Data{Title: "By prefix", Headers: []string{"Prefix", "Worst", "Units", "Fail", "Not Found"}}
		for _, g := range v.Groups {
			groups.Rows = append(groups.Rows, []string{
				g.Prefix, string(g.Worst), strconv.Itoa(g.Summary.Total),
				strconv.Itoa(g.Summary.Fail), strconv.Itoa(g.Summary.NotFound),
			})
		}
		tables = append(tables, groups)
	}

	if len(v.Collisions) > 0 {
		coll := Data{Title: "Duplicate database tags", Headers: []string{"Tag", "Kept Row", "Kept Tag", "Dropped Row", "Dropped Tag"}}
		for _, c := range v.Collisions {
			coll.Rows = append(coll.Rows, []string{
				c.Tag, strconv.Itoa(c.KeptRow), c.KeptTag, strconv.Itoa(c.DroppedRow), c.DroppedTag,
			})
		}
		tables = append(tables, coll)
	}
	return tables
}

func resultDetails(r engine.Result) string {
	if r.Status == engine.StatusNotFound && len(r.Suggestions) > 0 {
		return "did you mean " + strings.Join(r.Suggestions, ", ")
	}
	return r.StatusDetails
}

// RecordsView is a schedule as rows and columns.
type RecordsView struct {
	Title   string          `json:"source" yaml:"source"`
	Columns []string        `json:"columns" yaml:"columns"`
	Records []schema.Record `json:"data" yaml:"data"`
	Total   int             `json:"row_count" yaml:"row_count"`
}

// NewRecordsView keeps at most limit records; limit 0 keeps all.
func NewRecordsView(title string, columns []string, records []schema.Record, limit int) RecordsView {
	total := len(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return RecordsView{Title: title, Columns: columns, Records: records, Total: total}
}

// Tables implements Tabular.
func (v RecordsView) Tables() []Data {
	d := Data{Title: fmt.Sprintf("%s (%d of %d rows)", v.Title, len(v.Records), v.Total), Headers: v.Columns}
	for _, rec := range v.Records {
		row := make([]string, len(v.Columns))
		for i, c := range v.Columns {
			row[i] = cell(rec.Get(c))
		}
		d.Rows = append(d.Rows, row)
	}
	return []Data{d}
}

// HeaderView explains header inference for one sheet.
type HeaderView struct {
	Source  string            `json:"source" yaml:"source"`
	Info    schema.HeaderInfo `json:"header_info" yaml:"header_info"`
	RawRows [][]string        `json:"raw_rows" yaml:"raw_rows"`
}

// NewHeaderView previews the first rows of grid.
func NewHeaderView(source string, grid schema.Grid, info schema.HeaderInfo, previewRows int) HeaderView {
	v := HeaderView{Source: source, Info: info}
	for r := 0; r < len(grid) && r < previewRows; r++ {
		row := make([]string, len(grid[r]))
		for c, val := range grid[r] {
			row[c] = val.String()
		}
		v.RawRows = append(v.RawRows, row)
	}
	return v
}

// Tables implements Tabular.
func (v HeaderView) Tables() []Data {
	props := kv("Header inference: "+v.Source,
		"Title row offset", strconv.Itoa(v.Info.TitleRowOffset),
		"Header rows", strconv.Itoa(v.Info.HeaderRows),
		"Used second row", strconv.FormatBool(v.Info.UsedSecondRow),
	)

	cols := Data{Title: "Columns", Headers: []string{"#", "Combined", "Mapped"}}
	for i, c := range v.Info.Combined {
		mapped := ""
		if i < len(v.Info.Mapped) {
			mapped = v.Info.Mapped[i]
		}
		cols.Rows = append(cols.Rows, []string{strconv.Itoa(i), c, mapped})
	}

	raw := Data{Title: "Raw rows"}
	width := 0
	for _, r := range v.RawRows {
		width = max(width, len(r))
	}
	for i, r := range v.RawRows {
		row := make([]string, width+1)
		row[0] = strconv.Itoa(i)
		copy(row[1:], r)
		raw.Rows = append(raw.Rows, row)
	}
	return []Data{props, cols, raw}
}

// ApplyView is the result of a mapping run.
type ApplyView struct {
	Store             string `json:"store" yaml:"store"`
	store.ApplyResult `yaml:",inline"`
}

// Tables implements Tabular.
func (v ApplyView) Tables() []Data {
	tables := []Data{kv("Apply mapping: "+v.Store,
		"Updated records", strconv.Itoa(v.UpdatedRecords),
		"Backup", v.BackupPath,
		"Errors", strconv.Itoa(len(v.Errors)),
	)}
	if len(v.Errors) > 0 {
		errs := Data{Title: "Errors", Headers: []string{"Error"}}
		for _, e := range v.Errors {
			errs.Rows = append(errs.Rows, []string{e})
		}
		tables = append(tables, errs)
	}
	return tables
}

// PreviewView is a dry run of a mapping.
type PreviewView struct {
	Store         string `json:"store" yaml:"store"`
	store.Preview `yaml:",inline"`
}

// Tables implements Tabular.
func (v PreviewView) Tables() []Data {
	tables := []Data{kv("Mapping preview: "+v.Store,
		"Matched records", strconv.Itoa(len(v.Matched)),
		"Unmatched tags", strings.Join(v.Unmatched, ", "),
		"Conflicting fields", strconv.Itoa(len(v.Conflicts)),
	)}
	if len(v.Conflicts) > 0 {
		conf := Data{Title: "Values that will change", Headers: []string{"Tag", "Field", "Current", "Proposed"}}
		for _, c := range v.Conflicts {
			conf.Rows = append(conf.Rows, []string{c.Tag, c.Field, cell(c.Current), cell(c.Proposed)})
		}
		tables = append(tables, conf)
	}
	return tables
}

// HWRowsView is the result of a heating rows edit.
type HWRowsView struct {
	store.HWRowsResult `yaml:",inline"`
}

// Tables implements Tabular.
func (v HWRowsView) Tables() []Data {
	tables := []Data{kv("HW rows: "+v.TargetFile,
		"Updated", strconv.Itoa(v.UpdatedCount),
		"Backup", v.BackupFile,
		"Columns", strings.Join(v.Columns, ", "),
	)}
	if len(v.Warnings) > 0 {
		warn := Data{Title: "Warnings", Headers: []string{"Warning"}}
		for _, w := range v.Warnings {
			warn.Rows = append(warn.Rows, []string{w})
		}
		tables = append(tables, warn)
	}
	return tables
}

func cell(v schema.Value) string {
	if v.IsNull() {
		return "-"
	}
	return v.String()
}

func percent(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *p)
}

func rows(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}
