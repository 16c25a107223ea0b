package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// HeaderSpec is the list of combined column names, one per grid column.
type HeaderSpec []string

// HeaderOptions controls header inference.
type HeaderOptions struct {
	// HeaderRows is how many rows are combined into one header (1 or 2).
	HeaderRows int
	// SkipTitleRow treats the first row as a title unless it looks like headers.
	SkipTitleRow bool
}

// HeaderInfo records every decision header inference made.
type HeaderInfo struct {
	TitleRowOffset int        `json:"title_row_offset" yaml:"title_row_offset"`
	HeaderRows     int        `json:"header_rows" yaml:"header_rows"`
	UsedSecondRow  bool       `json:"used_second_row" yaml:"used_second_row"`
	Combined       HeaderSpec `json:"combined_headers" yaml:"combined_headers"`
	Mapped         []string   `json:"mapped_headers" yaml:"mapped_headers"`
}

// IsProbablyHeader reports whether a single cell looks like header text rather
// than data. Blanks, numbers, booleans, timestamps and the n/a markers do not.
// Text containing digits only counts when it has more letters than digits.
func IsProbablyHeader(v Value) bool {
	if v.Kind() != KindText {
		return false
	}
	text := strings.TrimSpace(v.String())
	if text == "" {
		return false
	}
	switch strings.ToLower(text) {
	case "n/a", "na", "nan":
		return false
	}
	letters, digits := 0, 0
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if digits > 0 {
		return letters > digits
	}
	return true
}

func countHeaderLike(values []Value) int {
	n := 0
	for _, v := range values {
		if IsProbablyHeader(v) {
			n++
		}
	}
	return n
}

// DetectTitleOffset returns how many title rows precede the header window.
// With skipTitleRow it is 1, unless at least half of the first row's
// non-blank cells look like header text, in which case the sheet has no title
// and the offset is 0.
func DetectTitleOffset(grid Grid, skipTitleRow bool) int {
	if !skipTitleRow {
		return 0
	}
	values := nonBlank(grid.Row(0))
	if len(values) == 0 {
		return 1
	}
	if countHeaderLike(values) >= max(1, len(values)/2) {
		return 0
	}
	return 1
}

// CombineHeaderRows builds one name per grid column from the header window
// starting at titleRowOffset. A second row is used only when headerRows > 1,
// the row exists, and at least half of its non-blank cells look like header
// text. Columns are named "row1_row2", whichever part is non-empty, or
// Column_<n> when both are blank.
func CombineHeaderRows(grid Grid, headerRows, titleRowOffset int) (HeaderSpec, bool) {
	useSecond := headerRows > 1 && titleRowOffset+1 < len(grid)
	if useSecond {
		values := nonBlank(grid.Row(titleRowOffset + 1))
		if len(values) > 0 && float64(countHeaderLike(values)) < float64(len(values))*0.5 {
			useSecond = false
		}
	}

	width := grid.Width()
	headers := make(HeaderSpec, width)
	for c := 0; c < width; c++ {
		first := NormalizeHeaderText(grid.Cell(titleRowOffset, c))
		second := ""
		if useSecond {
			second = NormalizeHeaderText(grid.Cell(titleRowOffset+1, c))
		}
		switch {
		case first != "" && second != "":
			headers[c] = first + "_" + second
		case first != "":
			headers[c] = first
		case second != "":
			headers[c] = second
		default:
			headers[c] = fmt.Sprintf("Column_%d", c+1)
		}
	}
	return headers, useSecond
}

// InferHeaders runs title detection, header combination and mapping over a
// raw grid. It never fails; a malformed grid yields synthesized names.
func InferHeaders(grid Grid, opts HeaderOptions) HeaderInfo {
	rows := opts.HeaderRows
	if rows < 1 {
		rows = 1
	}
	offset := DetectTitleOffset(grid, opts.SkipTitleRow)
	combined, usedSecond := CombineHeaderRows(grid, rows, offset)
	return HeaderInfo{
		TitleRowOffset: offset,
		HeaderRows:     rows,
		UsedSecondRow:  usedSecond,
		Combined:       combined,
		Mapped:         MapHeaders(combined),
	}
}
