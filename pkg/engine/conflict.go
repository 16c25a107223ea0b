package engine

import (
	"strings"

	"vavmerge/pkg/schema"
)

// FieldValue is a value proposed for one database field.
type FieldValue struct {
	Field string       `json:"field" yaml:"field"`
	Value schema.Value `json:"value" yaml:"value"`
}

// FieldConflict is a database field whose current value differs from the
// value a mapping would write. The proposed value always wins on apply.
type FieldConflict struct {
	Tag      string       `json:"tag" yaml:"tag"`
	Field    string       `json:"field" yaml:"field"`
	Current  schema.Value `json:"current" yaml:"current"`
	Proposed schema.Value `json:"proposed" yaml:"proposed"`
}

// DetectConflicts compares proposed values against the current record.
// Numbers compare numerically, text case-insensitively after trimming, and
// two nulls are equal.
func DetectConflicts(tag string, current schema.Record, proposed []FieldValue) []FieldConflict {
	var conflicts []FieldConflict
	for _, p := range proposed {
		cur := current.Get(p.Field)
		if sameValue(cur, p.Value) {
			continue
		}
		conflicts = append(conflicts, FieldConflict{
			Tag:      tag,
			Field:    p.Field,
			Current:  cur,
			Proposed: p.Value,
		})
	}
	return conflicts
}

func sameValue(a, b schema.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if x, ok := a.Number(); ok {
		if y, ok := b.Number(); ok {
			return x == y
		}
	}
	return strings.EqualFold(strings.TrimSpace(a.String()), strings.TrimSpace(b.String()))
}
