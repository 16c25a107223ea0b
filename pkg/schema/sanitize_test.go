package schema

import (
	"database/sql"
	"database/sql/driver"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type label string

func (l *label) String() string { return string(*l) }

type brokenLabel struct{}

func (brokenLabel) String() string { panic("boom") }

type brokenValuer struct{}

func (brokenValuer) Value() (driver.Value, error) { panic("boom") }

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Value
	}{
		{"nil", nil, Null},
		{"empty string", "", Null},
		{"nan string", "NaN", Null},
		{"n/a string", "N/A", Null},
		{"float nan", math.NaN(), Null},
		{"float inf", math.Inf(1), Null},
		{"int", 42, Int(42)},
		{"int64", int64(-7), Int(-7)},
		{"bool", true, Bool(true)},
		{"float", 3.5, Float(3.5)},
		{"big uint", uint64(math.MaxUint64), Float(float64(uint64(math.MaxUint64)))},
		{"decimal", Decimal("12.50"), Float(12.5)},
		{"rat", big.NewRat(1, 4), Float(0.25)},
		{"text", "V-1-01", Text("V-1-01")},
		{"accented text", "Café", Text("Cafe")},
		{"non-ascii dropped", "10°F", Text("10F")},
		{"bytes", []byte("VAV\xff-1"), Text("VAV-1")},
		{"utc time", time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), Text("2025-03-04T05:06:07")},
		{"null string", sql.NullString{}, Null},
		{"valid null string", sql.NullString{String: "x", Valid: true}, Text("x")},
		{"null float", sql.NullFloat64{Float64: 2, Valid: true}, Float(2)},
		{"value nan", Float(math.NaN()), Null},
		{"value time", Time(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), Text("2024-01-02T00:00:00")},
		{"stringer fallback", struct{ A int }{1}, Text("{1}")},
		{"stringer", label("VAV-2"), Text("VAV-2")},
		{"panicking stringer", brokenLabel{}, Null},
		{"panicking nested stringer", struct{ L brokenLabel }{}, Null},
		{"nil pointer", (*struct{ A int })(nil), Null},
		{"nil stringer pointer", (*label)(nil), Null},
		{"panicking valuer", brokenValuer{}, Null},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.raw)
			assert.True(t, tt.want.Equal(got), "want %#v, got %#v", tt.want, got)
		})
	}
}

func TestSanitizeRoundTripsScalars(t *testing.T) {
	for _, v := range []Value{Int(0), Int(15), Bool(false), Bool(true), Float(0.25), Text("abc")} {
		assert.True(t, v.Equal(Sanitize(v)))
		assert.True(t, v.Equal(Sanitize(Sanitize(v))))
	}
}

func TestValueNumber(t *testing.T) {
	tests := []struct {
		v    Value
		want float64
		ok   bool
	}{
		{Int(3), 3, true},
		{Float(2.5), 2.5, true},
		{Text(" 7.25 "), 7.25, true},
		{Text("24x16"), 0, false},
		{Text("NaN"), 0, false},
		{Null, 0, false},
		{Bool(true), 1, true},
	}
	for _, tt := range tests {
		got, ok := tt.v.Number()
		assert.Equal(t, tt.ok, ok, "%v", tt.v)
		assert.Equal(t, tt.want, got, "%v", tt.v)
	}
}

func TestValueJSON(t *testing.T) {
	for _, tt := range []struct {
		v    Value
		json string
	}{
		{Null, "null"},
		{Int(5), "5"},
		{Float(0.2), "0.2"},
		{Bool(true), "true"},
		{Text("V-1-01"), `"V-1-01"`},
		{Float(math.Inf(-1)), "null"},
	} {
		b, err := tt.v.MarshalJSON()
		assert.NoError(t, err)
		assert.JSONEq(t, tt.json, string(b))
	}

	var v Value
	assert.NoError(t, v.UnmarshalJSON([]byte("105")))
	assert.Equal(t, KindInt, v.Kind())
	assert.NoError(t, v.UnmarshalJSON([]byte("3.5")))
	assert.Equal(t, KindFloat, v.Kind())
	assert.Error(t, v.UnmarshalJSON([]byte(`{"a":1}`)))
}
