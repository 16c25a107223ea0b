package engine

import (
	"strings"

	"vavmerge/pkg/schema"
)

// TagIndex looks up database records by unit tag. Each record is reachable
// by its strict-normalized tag and by its raw tag.
type TagIndex struct {
	byTag      map[string]indexEntry
	normalized []string
	Stats      IndexStats
	Collisions []Collision
}

type indexEntry struct {
	row    int
	raw    string
	record schema.Record
}

// IndexStats contains aggregate statistics about the index.
type IndexStats struct {
	TotalRecords int `json:"total_records" yaml:"total_records"`
	Indexed      int `json:"indexed" yaml:"indexed"`
	SkippedNoTag int `json:"skipped_no_tag" yaml:"skipped_no_tag"`
	UniqueTags   int `json:"unique_tags" yaml:"unique_tags"`
}

// Collision records two database rows that resolve to the same tag. The
// later row replaces the earlier one in the index.
type Collision struct {
	Tag        string `json:"tag" yaml:"tag"`
	KeptRow    int    `json:"kept_row" yaml:"kept_row"`
	KeptTag    string `json:"kept_tag" yaml:"kept_tag"`
	DroppedRow int    `json:"dropped_row" yaml:"dropped_row"`
	DroppedTag string `json:"dropped_tag" yaml:"dropped_tag"`
}

// BuildTagIndex indexes records by their Tag column. Rows without a tag are
// skipped. When two rows share a tag the later one wins and a Collision is
// recorded; row numbers are 0-based positions in records.
func BuildTagIndex(records []schema.Record) *TagIndex {
	ix := &TagIndex{byTag: make(map[string]indexEntry, len(records)*2)}
	seen := make(map[string]bool, len(records))

	for row, rec := range records {
		raw := strings.TrimSpace(rec.Get(schema.ColTag).String())
		if raw == "" {
			ix.Stats.SkippedNoTag++
			continue
		}
		normalized := schema.StrictTagNormalize(raw)
		entry := indexEntry{row: row, raw: raw, record: rec}

		for _, key := range uniqueKeys(normalized, raw) {
			if prev, ok := ix.byTag[key]; ok && prev.row != row {
				ix.Collisions = append(ix.Collisions, Collision{
					Tag:        key,
					KeptRow:    row,
					KeptTag:    raw,
					DroppedRow: prev.row,
					DroppedTag: prev.raw,
				})
			}
			ix.byTag[key] = entry
		}
		if !seen[normalized] {
			seen[normalized] = true
			ix.normalized = append(ix.normalized, normalized)
		}
		ix.Stats.Indexed++
	}

	ix.Stats.TotalRecords = len(records)
	ix.Stats.UniqueTags = len(ix.normalized)
	return ix
}

func uniqueKeys(normalized, raw string) []string {
	if normalized == raw {
		return []string{raw}
	}
	return []string{normalized, raw}
}

// Lookup finds the record for a spreadsheet tag: by its normalized form
// first, then by the raw text.
func (ix *TagIndex) Lookup(raw, normalized string) (schema.Record, bool) {
	if e, ok := ix.byTag[normalized]; ok {
		return e.record, true
	}
	if e, ok := ix.byTag[raw]; ok {
		return e.record, true
	}
	return schema.Record{}, false
}

// Tags returns the distinct normalized tags in insertion order.
func (ix *TagIndex) Tags() []string {
	out := make([]string, len(ix.normalized))
	copy(out, ix.normalized)
	return out
}
