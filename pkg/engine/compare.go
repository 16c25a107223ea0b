// Package engine reconciles spreadsheet design values against database
// calculated values. It is pure: no I/O and no logging; diagnostics such as
// tag collisions are returned in the report.
package engine

import (
	"strings"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/schema"
)

// Thresholds are the tolerances applied by Compare.
type Thresholds struct {
	// LowerMargin is the percentage a calculated value may fall below design.
	LowerMargin float64 `json:"lower_margin" yaml:"lower_margin" mapstructure:"lower_margin"`
	// UpperMargin is the percentage a calculated value may exceed design.
	UpperMargin float64 `json:"upper_margin" yaml:"upper_margin" mapstructure:"upper_margin"`
	// WPD is the maximum water pressure drop.
	WPD float64 `json:"wpd_threshold" yaml:"wpd_threshold" mapstructure:"wpd_threshold"`
	// APD is the maximum air pressure drop.
	APD float64 `json:"apd_threshold" yaml:"apd_threshold" mapstructure:"apd_threshold"`
}

// DefaultThresholds returns -15%/+25% deviation margins, WPD 5 and APD 0.25.
func DefaultThresholds() Thresholds {
	return Thresholds{LowerMargin: 15, UpperMargin: 25, WPD: 5, APD: 0.25}
}

// Validate rejects negative tolerances.
func (t Thresholds) Validate() error {
	switch {
	case t.LowerMargin < 0:
		return errors.NewValidationError("lower_margin", t.LowerMargin, "must not be negative")
	case t.UpperMargin < 0:
		return errors.NewValidationError("upper_margin", t.UpperMargin, "must not be negative")
	case t.WPD < 0:
		return errors.NewValidationError("wpd_threshold", t.WPD, "must not be negative")
	case t.APD < 0:
		return errors.NewValidationError("apd_threshold", t.APD, "must not be negative")
	}
	return nil
}

// Result is the comparison of one spreadsheet unit. Database-side fields are
// Null and diffs nil when the unit was not found or a value was unusable.
type Result struct {
	UnitTag       string       `json:"unit_tag" yaml:"unit_tag"`
	RawTag        string       `json:"raw_tag" yaml:"raw_tag"`
	NormalizedTag string       `json:"normalized_tag" yaml:"normalized_tag"`
	Status        Status       `json:"status" yaml:"status"`
	StatusDetails string       `json:"status_details,omitempty" yaml:"status_details,omitempty"`
	Flags         []Flag       `json:"flags,omitempty" yaml:"flags,omitempty"`
	ExcelMBH      schema.Value `json:"excel_mbh" yaml:"excel_mbh"`
	DBMBH         schema.Value `json:"db_mbh" yaml:"db_mbh"`
	MBHDiff       *float64     `json:"mbh_diff" yaml:"mbh_diff"`
	ExcelLAT      schema.Value `json:"excel_lat" yaml:"excel_lat"`
	DBLAT         schema.Value `json:"db_lat" yaml:"db_lat"`
	LATDiff       *float64     `json:"lat_diff" yaml:"lat_diff"`
	DBWPD         schema.Value `json:"db_wpd" yaml:"db_wpd"`
	DBAPD         schema.Value `json:"db_apd" yaml:"db_apd"`
	HWRows        *int         `json:"db_hw_rows" yaml:"db_hw_rows"`
	HWRowsRaw     schema.Value `json:"db_hw_rows_raw" yaml:"db_hw_rows_raw"`
	Suggestions   []string     `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// Summary counts results per status.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Pass     int `json:"pass" yaml:"pass"`
	Warning  int `json:"warning" yaml:"warning"`
	Fail     int `json:"fail" yaml:"fail"`
	NotFound int `json:"not_found" yaml:"not_found"`
}

func (s *Summary) add(status Status) {
	s.Total++
	switch status {
	case StatusPass:
		s.Pass++
	case StatusWarning:
		s.Warning++
	case StatusFail:
		s.Fail++
	case StatusNotFound:
		s.NotFound++
	}
}

// Report is the output of one comparison run.
type Report struct {
	Results    []Result    `json:"results" yaml:"results"`
	Summary    Summary     `json:"summary" yaml:"summary"`
	Collisions []Collision `json:"collisions,omitempty" yaml:"collisions,omitempty"`
	Index      IndexStats  `json:"index" yaml:"index"`
	Thresholds Thresholds  `json:"thresholds" yaml:"thresholds"`
}

// Spreadsheet fields holding design capacity and leaving-air temperature,
// in lookup order.
var (
	excelMBHFields = []string{schema.FieldMBH, schema.FieldMBHTotal, schema.FieldTotalMBH}
	excelLATFields = []string{schema.FieldLAT, schema.FieldLeavingAirTemp}
)

// Compare matches every spreadsheet record that has a Unit_No against the
// database records and classifies it. Records are processed in order and each
// result depends only on its own pair.
func Compare(excel, db []schema.Record, th Thresholds) *Report {
	ix := BuildTagIndex(db)
	report := &Report{
		Results:    make([]Result, 0, len(excel)),
		Collisions: ix.Collisions,
		Index:      ix.Stats,
		Thresholds: th,
	}

	for _, rec := range excel {
		raw := strings.TrimSpace(rec.Get(schema.FieldUnitNo).String())
		if raw == "" {
			continue
		}
		normalized := schema.StrictTagNormalize(raw)

		dbRec, ok := ix.Lookup(raw, normalized)
		var res Result
		if ok {
			res = compareUnit(rec, dbRec, th)
		} else {
			res = notFound(rec, normalized, ix)
		}
		res.RawTag = raw
		res.NormalizedTag = normalized
		res.UnitTag = schema.TagDisplay(raw, normalized)

		report.Results = append(report.Results, res)
		report.Summary.add(res.Status)
	}
	return report
}

func notFound(rec schema.Record, normalized string, ix *TagIndex) Result {
	return Result{
		Status:      StatusNotFound,
		ExcelMBH:    rec.First(excelMBHFields...),
		ExcelLAT:    rec.First(excelLATFields...),
		Suggestions: SuggestTags(normalized, ix.Tags()),
	}
}

func compareUnit(excel, db schema.Record, th Thresholds) Result {
	res := Result{
		ExcelMBH: excel.First(excelMBHFields...),
		ExcelLAT: excel.First(excelLATFields...),
		DBMBH:    db.Get(schema.ColHWMBHCalc),
		DBLAT:    db.Get(schema.ColHWLATCalc),
		DBWPD:    db.Get(schema.ColHWPDCalc),
		DBAPD:    db.Get(schema.ColHWAPDCalc),
	}

	for _, key := range schema.HWRowsColumns {
		v := db.Get(key)
		if v.IsNull() || (v.Kind() == schema.KindText && v.String() == "") {
			continue
		}
		res.HWRowsRaw = v
		if n, ok := schema.NormalizeHWRows(v); ok {
			res.HWRows = &n
		}
		break
	}

	var flags []Flag
	res.MBHDiff, flags = checkDeviation(MetricMBH, res.ExcelMBH, res.DBMBH, th, flags)
	res.LATDiff, flags = checkDeviation(MetricLAT, res.ExcelLAT, res.DBLAT, th, flags)
	flags = checkThreshold(MetricWPD, res.DBWPD, th.WPD, flags)
	flags = checkThreshold(MetricAPD, res.DBAPD, th.APD, flags)

	res.Flags = flags
	res.Status = classify(flags)
	res.StatusDetails = details(flags)
	return res
}

// checkDeviation computes (calculated - design) / design * 100. A negative
// deviation means the calculated value is below design. It is skipped when
// design is zero or either side is not a number.
func checkDeviation(m Metric, design, calculated schema.Value, th Thresholds, flags []Flag) (*float64, []Flag) {
	d, ok := design.Number()
	if !ok || d == 0 {
		return nil, flags
	}
	c, ok := calculated.Number()
	if !ok {
		return nil, flags
	}
	dev := (c - d) / d * 100
	switch {
	case dev < -th.LowerMargin:
		flags = append(flags, Flag{Metric: m, Value: dev, Direction: "too low"})
	case dev > th.UpperMargin:
		flags = append(flags, Flag{Metric: m, Value: dev, Direction: "too high"})
	}
	return &dev, flags
}

// checkThreshold flags a value strictly above limit.
func checkThreshold(m Metric, v schema.Value, limit float64, flags []Flag) []Flag {
	f, ok := v.Number()
	if ok && f > limit {
		flags = append(flags, Flag{Metric: m, Value: f})
	}
	return flags
}

func details(flags []Flag) string {
	if len(flags) == 0 {
		return "All within range"
	}
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}
