package schema

import (
	"strings"
)

// HeaderMappings maps known combined header spellings to standard field
// names. Lookup is case-insensitive on the trimmed header.
var HeaderMappings = map[string]string{
	// Unit identification
	"UNIT NO.": FieldUnitNo,
	"UNIT_NO.": FieldUnitNo,
	"UNIT NO":  FieldUnitNo,
	"UNIT_NO":  FieldUnitNo,
	"TAG":      FieldUnitNo,

	// Manufacturer
	"MANUFACTURER and MODEL NO.": FieldManufacturerModel,
	"MANUFACTURER & MODEL NO.":   FieldManufacturerModel,
	"MANUFACTURER MODEL NO.":     FieldManufacturerModel,
	"MANUFACTURER and MODEL":     FieldManufacturerModel,

	// Sizes
	"UNIT SIZE":   FieldUnitSize,
	"UNIT_SIZE":   FieldUnitSize,
	"INLET SIZE":  FieldInletSize,
	"INLET_SIZE":  FieldInletSize,
	"OUTLET SIZE": FieldOutletSize,
	"OUTLET_SIZE": FieldOutletSize,

	// Dimensions
	"W x L x H":  FieldDimensions,
	"Wx Lx H":    FieldDimensions,
	"DIMENSIONS": FieldDimensions,

	// Airflow; a bare CFM with no sub-header is the maximum
	"CFM":      FieldCFMMax,
	"CFM_MAX":  FieldCFMMax,
	"CFM MAX":  FieldCFMMax,
	"CFM_MIN":  FieldCFMMin,
	"CFM MIN":  FieldCFMMin,
	"CFM_HEAT": FieldCFMHeat,
	"CFM HEAT": FieldCFMHeat,

	// Heating coil
	"EAT":       FieldEAT,
	"LAT":       FieldLAT,
	"MBH":       FieldMBH,
	"TOTAL MBH": FieldTotalMBH,
	"TOTAL_MBH": FieldTotalMBH,
	"EWT":       FieldEWT,
	"FLUID":     FieldFluid,
	"GPM":       FieldGPM,
	"MAX WPD":   FieldMaxWPD,
	"MAX_WPD":   FieldMaxWPD,
	"WPD":       FieldWPD,
	"APD":       FieldAPD,
	"NOTES":     FieldNotes,
}

var headerIndex = func() map[string]string {
	idx := make(map[string]string, len(HeaderMappings))
	for k, v := range HeaderMappings {
		idx[strings.ToUpper(k)] = v
	}
	return idx
}()

// cfmSubHeaders resolve only when a CFM column precedes them.
var cfmSubHeaders = map[string]string{
	"MAX":  FieldCFMMax,
	"MIN":  FieldCFMMin,
	"HEAT": FieldCFMHeat,
}

// cfmContextWindow is how many preceding columns are searched for CFM.
const cfmContextWindow = 3

// substringMappings are tried in order on the upper-cased header.
var substringMappings = []struct {
	Match  func(upper string) bool
	Target string
}{
	{func(u string) bool { return strings.Contains(u, "MANUFACTURER") }, FieldManufacturerModel},
	{func(u string) bool { return strings.Contains(u, "UNIT") && strings.Contains(u, "SIZE") }, FieldUnitSize},
	{func(u string) bool { return strings.Contains(u, "UNIT") && strings.Contains(u, "NO") }, FieldUnitNo},
	{func(u string) bool { return strings.Contains(u, "INLET") }, FieldInletSize},
	{func(u string) bool { return strings.Contains(u, "OUTLET") }, FieldOutletSize},
	{func(u string) bool { return strings.Contains(u, "DIMENSION") || strings.Contains(u, "X") }, FieldDimensions},
}

// MapHeaders maps combined headers to standard field names. Each header is
// resolved by, in order: exact case-insensitive lookup in HeaderMappings;
// positional context for bare MAX/MIN/HEAT sub-headers and blank headers that
// follow a CFM column; substring rules; and finally the header itself with
// spaces replaced by underscores and & by "and".
func MapHeaders(headers []string) []string {
	mapped := make([]string, len(headers))
	for i := range headers {
		mapped[i] = mapHeader(headers, i)
	}
	return mapped
}

func mapHeader(headers []string, i int) string {
	header := headers[i]
	upper := strings.ToUpper(strings.TrimSpace(header))

	if target, ok := headerIndex[upper]; ok {
		return target
	}
	if target, ok := cfmSubHeaders[upper]; ok {
		if cfmBefore(headers, i) {
			return target
		}
		return upper
	}
	if upper == "" && i > 0 && strings.Contains(strings.ToUpper(headers[i-1]), "CFM") {
		return FieldCFMMax
	}
	for _, sm := range substringMappings {
		if sm.Match(upper) {
			return sm.Target
		}
	}
	return strings.NewReplacer(" ", "_", "&", "and").Replace(header)
}

func cfmBefore(headers []string, i int) bool {
	for j := max(0, i-cfmContextWindow); j < i; j++ {
		if strings.Contains(strings.ToUpper(headers[j]), "CFM") {
			return true
		}
	}
	return false
}
