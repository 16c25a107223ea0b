package engine

import "fmt"

// Status is the outcome of comparing one spreadsheet unit.
type Status string

const (
	StatusPass     Status = "Pass"
	StatusWarning  Status = "Warning"
	StatusFail     Status = "Fail"
	StatusNotFound Status = "Not Found"
)

// Metric names a compared quantity.
type Metric string

const (
	MetricMBH Metric = "MBH"
	MetricLAT Metric = "LAT"
	MetricWPD Metric = "WPD"
	MetricAPD Metric = "APD"
)

// Deviation reports whether the metric is judged as a percentage of its
// design value rather than against an absolute threshold.
func (m Metric) Deviation() bool {
	return m == MetricMBH || m == MetricLAT
}

// Flag is one out-of-tolerance finding.
type Flag struct {
	Metric Metric  `json:"metric" yaml:"metric"`
	Value  float64 `json:"value" yaml:"value"`
	// Direction is "too low" or "too high" for deviation metrics, empty for thresholds.
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
}

func (f Flag) String() string {
	if f.Metric.Deviation() {
		return fmt.Sprintf("%s %.1f%% (%s)", f.Metric, f.Value, f.Direction)
	}
	return fmt.Sprintf("%s %.2f", f.Metric, f.Value)
}

// classify derives the status from a unit's flags: any deviation flag is a
// failure, threshold flags alone are a warning.
func classify(flags []Flag) Status {
	if len(flags) == 0 {
		return StatusPass
	}
	for _, f := range flags {
		if f.Metric.Deviation() {
			return StatusFail
		}
	}
	return StatusWarning
}
