package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanSizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want Value
	}{
		{"inch mark single digit", Text(`8"`), Text("08")},
		{"inch mark two digits", Text(`14"`), Text("14")},
		{"compound", Text("24x16"), Text("24x16")},
		{"compound with marks", Text(`24"x16"`), Text("24x16")},
		{"integer cell", Int(6), Text("06")},
		{"float cell", Float(10), Text("10")},
		{"fraction truncates", Text("9.7"), Text("09")},
		{"zero", Text("0"), Text("0")},
		{"null", Null, Null},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanSizeValue(tt.in)
			assert.True(t, tt.want.Equal(got), "want %#v, got %#v", tt.want, got)
		})
	}
}

func TestNormalizeHeaderText(t *testing.T) {
	assert.Equal(t, "UNIT NO.", NormalizeHeaderText(Text("UNIT\nNO.")))
	assert.Equal(t, "MANUFACTURER and MODEL NO.", NormalizeHeaderText(Text("  MANUFACTURER & MODEL   NO. ")))
	assert.Equal(t, "INLET SIZE", NormalizeHeaderText(Text(`INLET "SIZE'`)))
	assert.Equal(t, "", NormalizeHeaderText(Null))
	assert.Equal(t, "5", NormalizeHeaderText(Int(5)))
}

func TestNormalizeHWRows(t *testing.T) {
	tests := []struct {
		in   Value
		want int
		ok   bool
	}{
		{Int(2), 2, true},
		{Float(3.0), 3, true},
		{Text(" 4 "), 4, true},
		{Text("2.0"), 2, true},
		{Text(""), 0, false},
		{Text("two"), 0, false},
		{Null, 0, false},
	}
	for _, tt := range tests {
		got, ok := NormalizeHWRows(tt.in)
		assert.Equal(t, tt.ok, ok, "%#v", tt.in)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
	}
}
