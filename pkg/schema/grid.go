package schema

// Grid is a raw sheet: rows of cells with no header assumption. Rows may have
// different lengths; missing cells read as Null.
type Grid [][]Value

// Width is the length of the longest row.
func (g Grid) Width() int {
	w := 0
	for _, row := range g {
		w = max(w, len(row))
	}
	return w
}

// Cell returns the value at row r, column c, or Null when out of range.
func (g Grid) Cell(r, c int) Value {
	if r < 0 || r >= len(g) || c < 0 || c >= len(g[r]) {
		return Null
	}
	return g[r][c]
}

// Row returns row r, or nil when out of range.
func (g Grid) Row(r int) []Value {
	if r < 0 || r >= len(g) {
		return nil
	}
	return g[r]
}

// IsBlankRow reports whether every cell in row is Null or whitespace text.
func IsBlankRow(row []Value) bool {
	for _, v := range row {
		if !isBlank(v) {
			return false
		}
	}
	return true
}

func isBlank(v Value) bool {
	if v.IsNull() {
		return true
	}
	return v.Kind() == KindText && v.String() == ""
}

func nonBlank(row []Value) []Value {
	out := make([]Value, 0, len(row))
	for _, v := range row {
		if !v.IsNull() {
			out = append(out, v)
		}
	}
	return out
}
