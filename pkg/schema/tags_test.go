package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrictTagNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"V-1-1", "V-1-01"},
		{"V-1-01", "V-1-01"},
		{"V-1-12", "V-1-12"},
		{"  V-2-3 ", "V-2-03"},
		{"VAV-10-4", "VAV-10-04"},
		{"v-1-1", "v-1-1"},
		{"V-1-1-1", "V-1-1-1"},
		{"V-1", "V-1"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := StrictTagNormalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, StrictTagNormalize(got), "idempotent")
		})
	}
}

func TestLooseTagNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"V-1-1", "V-1-01"},
		{"V-1-01", "V-1-01"},
		{"V-1-12", "V-1-12"},
		{"V-1-1-1", "V-1-1-01"},
		{"v-1-1", "v-1-01"},
		{"V-1-A", "V-1-A"},
		{"V-1", "V-1"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := LooseTagNormalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, LooseTagNormalize(got), "idempotent")
		})
	}
}

func TestTagPoliciesDiverge(t *testing.T) {
	// Four-segment tags are padded on the write path only.
	assert.Equal(t, "V-1-1-01", LooseTagNormalize("V-1-1-1"))
	assert.Equal(t, "V-1-1-1", StrictTagNormalize("V-1-1-1"))
}

func TestTagDisplay(t *testing.T) {
	assert.Equal(t, "V-1-01", TagDisplay("V-1-01", "V-1-01"))
	assert.Equal(t, "V-1-1 → V-1-01", TagDisplay("V-1-1", "V-1-01"))
}

func TestStripTagSuffix(t *testing.T) {
	assert.Equal(t, "V-1-01", StripTagSuffix("V-1-01  (VAV 8)"))
	assert.Equal(t, "V-1-01", StripTagSuffix(" V-1-01 "))
}

func TestTagFromDisplay(t *testing.T) {
	assert.Equal(t, "V-1-01", TagFromDisplay("V-1-1 → V-1-01"))
	assert.Equal(t, "V-1-01", TagFromDisplay("V-1-01  (HW 2)"))
	assert.Equal(t, "V-1-12", TagFromDisplay("V-1-12"))
}
