// Package schema defines the normalized record shape shared by the
// spreadsheet and database readers, the value sanitizer, the tag and size
// normalizers, and the header inference heuristics that recover column names
// from spreadsheets without a reliable header row.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Standard spreadsheet field names produced by header mapping.
const (
	FieldUnitNo            = "Unit_No"
	FieldManufacturerModel = "Manufacturer_Model"
	FieldUnitSize          = "Unit_Size"
	FieldDimensions        = "Dimensions"
	FieldInletSize         = "Inlet_Size"
	FieldOutletSize        = "Outlet_Size"
	FieldCFMMax            = "CFM_Max"
	FieldCFMMin            = "CFM_Min"
	FieldCFMHeat           = "CFM_Heat"
	FieldEAT               = "EAT"
	FieldLAT               = "LAT"
	FieldLeavingAirTemp    = "Leaving_Air_Temp"
	FieldMBH               = "MBH"
	FieldTotalMBH          = "Total_MBH"
	FieldMBHTotal          = "MBH_Total"
	FieldEWT               = "EWT"
	FieldFluid             = "Fluid"
	FieldGPM               = "GPM"
	FieldMaxWPD            = "Max_WPD"
	FieldWPD               = "WPD"
	FieldAPD               = "APD"
	FieldNotes             = "Notes"
)

// Database column names in the governing schedule table.
const (
	ColTag                   = "Tag"
	ColUnitSize              = "UnitSize"
	ColInletSize             = "InletSize"
	ColCFMDesign             = "CFMDesign"
	ColCFMMinPrime           = "CFMMinPrime"
	ColCFMMin                = "CFMMin"
	ColHWCFM                 = "HWCFM"
	ColHeatingPrimaryAirflow = "HeatingPrimaryAirflow"
	ColHWGPM                 = "HWGPM"
	ColHWMBHCalc             = "HWMBHCalc"
	ColHWLATCalc             = "HWLATCalc"
	ColHWPDCalc              = "HWPDCalc"
	ColHWAPDCalc             = "HWAPDCalc"
	ColHWRowsCalc            = "HWRowsCalc"
	ColHWRows                = "HWRows"
	ColHWRow                 = "HWRow"
)

// CriticalFields are the spreadsheet columns of which at least one must hold
// a value for a row to count as equipment data.
var CriticalFields = []string{FieldUnitSize, FieldCFMMax, FieldManufacturerModel}

// SizeFields are cleaned with CleanSizeValue on read.
var SizeFields = []string{FieldUnitSize, FieldInletSize, FieldOutletSize}

// HWRowsColumns are the spellings under which a store may carry the
// heating-coil row count, in lookup order.
var HWRowsColumns = []string{ColHWRowsCalc, ColHWRows, ColHWRow}

// TargetFields are the database columns an operator may map onto.
var TargetFields = []string{
	ColTag, ColUnitSize, ColInletSize, ColCFMDesign, ColCFMMinPrime,
	ColHWCFM, ColHWGPM, ColHeatingPrimaryAirflow, ColCFMMin,
}

// FieldDescriptions explains each target field.
var FieldDescriptions = map[string]string{
	ColTag:                   "Unit identifier - Must match Excel Unit_No (e.g., V-1-1 -> V-1-01)",
	ColUnitSize:              "VAV unit size designation (e.g., 6, 8, 10, 14, 24x16)",
	ColInletSize:             `Air inlet size in inches (e.g., 6", 8", 10", 14")`,
	ColCFMDesign:             "Design air flow rate in CFM - Maximum airflow capacity",
	ColCFMMinPrime:           "Minimum primary airflow in CFM when heating/cooling",
	ColCFMMin:                "Minimum airflow in CFM (alternate spelling of CFMMinPrime)",
	ColHeatingPrimaryAirflow: "Primary airflow during heating mode in CFM",
	ColHWCFM:                 "Hot water coil airflow in CFM - Airflow through heating coil",
	ColHWGPM:                 "Hot water flow rate in GPM (gallons per minute)",
}

// MappingTable maps a target database field to the spreadsheet field that
// feeds it. Fields that are unmapped, or whose source is missing from a
// record, are skipped at use time.
type MappingTable map[string]string

// SuggestedMappings is the default mapping offered to operators.
func SuggestedMappings() MappingTable {
	return MappingTable{
		ColTag:                   FieldUnitNo,
		ColUnitSize:              FieldUnitSize,
		ColInletSize:             FieldUnitSize,
		ColCFMDesign:             FieldCFMMax,
		ColCFMMinPrime:           FieldCFMMin,
		ColCFMMin:                FieldCFMMin,
		ColHeatingPrimaryAirflow: FieldCFMHeat,
		ColHWCFM:                 FieldCFMHeat,
		ColHWGPM:                 FieldGPM,
	}
}

// Source returns the spreadsheet field mapped to target.
func (m MappingTable) Source(target string) (string, bool) {
	src, ok := m[target]
	if !ok || src == "" {
		return "", false
	}
	return src, true
}

// Targets returns the mapped target fields in sorted order.
func (m MappingTable) Targets() []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ParseMappingPairs parses TARGET=SOURCE pairs.
func ParseMappingPairs(pairs []string) (MappingTable, error) {
	m := make(MappingTable, len(pairs))
	for _, p := range pairs {
		target, source, ok := strings.Cut(p, "=")
		target, source = strings.TrimSpace(target), strings.TrimSpace(source)
		if !ok || target == "" || source == "" {
			return nil, fmt.Errorf("invalid mapping %q: want TARGET=SOURCE", p)
		}
		m[target] = source
	}
	return m, nil
}
