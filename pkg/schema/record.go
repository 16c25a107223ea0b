package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Record is one normalized row: an ordered mapping from field name to Value.
// Records are immutable once built.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord pairs columns with values. Missing trailing values are Null and
// extra values are ignored. A repeated column keeps its first position; a
// later occurrence only fills it when the earlier one was Null.
func NewRecord(columns []string, values []Value) Record {
	r := Record{
		keys:   make([]string, 0, len(columns)),
		values: make(map[string]Value, len(columns)),
	}
	for i, col := range columns {
		v := Null
		if i < len(values) {
			v = values[i]
		}
		existing, seen := r.values[col]
		if !seen {
			r.keys = append(r.keys, col)
			r.values[col] = v
			continue
		}
		if existing.IsNull() && !v.IsNull() {
			r.values[col] = v
		}
	}
	return r
}

// RecordFromMap builds a record from native values, sanitizing each one.
// Keys are taken in the order given.
func RecordFromMap(keys []string, m map[string]any) Record {
	values := make([]Value, len(keys))
	for i, k := range keys {
		values[i] = Sanitize(m[k])
	}
	return NewRecord(keys, values)
}

// Get returns the value for key, or Null when absent.
func (r Record) Get(key string) Value {
	return r.values[key]
}

// Has reports whether the record has a column named key.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// First returns the first non-null value among keys.
func (r Record) First(keys ...string) Value {
	for _, k := range keys {
		if v := r.values[k]; !v.IsNull() {
			return v
		}
	}
	return Null
}

// Keys returns the column names in order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.keys) }

// Values returns the values in column order.
func (r Record) Values() []Value {
	out := make([]Value, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.values[k]
	}
	return out
}

// Map returns the record as native Go values.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		out[k] = r.values[k].Interface()
	}
	return out
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: record must be a JSON object")
	}
	var keys []string
	var values []Value
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("schema: unexpected record key %v", tok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("schema: field %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = NewRecord(keys, values)
	return nil
}

// MarshalYAML encodes the record as an ordered mapping.
func (r Record) MarshalYAML() (any, error) {
	out := make(yaml.MapSlice, 0, len(r.keys))
	for _, k := range r.keys {
		v, err := r.values[k].MarshalYAML()
		if err != nil {
			return nil, err
		}
		out = append(out, yaml.MapItem{Key: k, Value: v})
	}
	return out, nil
}

// Column returns the values of one column across records.
func Column(records []Record, key string) []Value {
	out := make([]Value, len(records))
	for i, r := range records {
		out[i] = r.Get(key)
	}
	return out
}
