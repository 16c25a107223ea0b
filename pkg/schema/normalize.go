package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var inchMarks = strings.NewReplacer(`"`, "", "″", "", "”", "", "“", "")

// CleanSizeValue strips inch marks from a size cell and zero-pads single-digit
// sizes: 8" becomes "08", 14" becomes "14". Values that are not a plain number,
// such as "24x16", come back with the marks removed and nothing else changed.
// Null passes through.
func CleanSizeValue(v Value) Value {
	if v.IsNull() {
		return Null
	}
	cleaned := inchMarks.Replace(v.String())
	f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Text(cleaned)
	}
	n := int64(f)
	switch {
	case n >= 1 && n <= 9:
		return Text(fmt.Sprintf("%02d", n))
	case n >= 10:
		return Text(strconv.FormatInt(n, 10))
	default:
		return Text(cleaned)
	}
}

// SizeNumber returns the integer part of a cleaned size, if it has one.
func SizeNumber(v Value) (int64, bool) {
	f, ok := v.Number()
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// NormalizeHeaderText trims a header cell, collapses whitespace and line
// breaks to single spaces, replaces & with "and" and drops quote characters.
func NormalizeHeaderText(v Value) string {
	if v.IsNull() {
		return ""
	}
	cleaned := strings.Join(strings.Fields(v.String()), " ")
	return headerTextReplacer.Replace(cleaned)
}

var headerTextReplacer = strings.NewReplacer("&", "and", `"`, "", "'", "")

// NormalizeHWRows converts a heating-rows cell to an integer, truncating any
// fraction. Missing or non-numeric cells report false.
func NormalizeHWRows(v Value) (int, bool) {
	if v.IsNull() {
		return 0, false
	}
	if v.Kind() == KindText && strings.TrimSpace(v.String()) == "" {
		return 0, false
	}
	f, ok := v.Number()
	if !ok {
		return 0, false
	}
	return int(f), true
}
