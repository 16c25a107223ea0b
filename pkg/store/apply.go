package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"vavmerge/pkg/engine"
	"vavmerge/pkg/errors"
	"vavmerge/pkg/logging"
	"vavmerge/pkg/schema"
)

// FieldBatches partitions the writable target fields. Each batch is one
// UPDATE per record, which keeps a failing field isolated and keeps the
// parameter count under the ODBC driver's ceiling.
var FieldBatches = [][]string{
	{schema.ColUnitSize, schema.ColInletSize, schema.ColCFMDesign},
	{schema.ColCFMMinPrime, schema.ColCFMMin},
	{schema.ColHWCFM, schema.ColHeatingPrimaryAirflow},
	{schema.ColHWGPM},
}

// Catalog rule: a size 40 box has a 24x16 rectangular inlet.
const (
	rectInletUnitSize = 40
	rectInletSize     = "24x16"
)

// BatchOutcome is the result of one UPDATE for one record.
type BatchOutcome struct {
	Tag          string   `json:"tag" yaml:"tag"`
	Batch        int      `json:"batch" yaml:"batch"`
	Fields       []string `json:"fields" yaml:"fields"`
	RowsAffected int64    `json:"rows_affected" yaml:"rows_affected"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
	Err          error    `json:"-" yaml:"-"`
}

// ApplyResult aggregates a mapping run.
type ApplyResult struct {
	UpdatedRecords int            `json:"updated_records" yaml:"updated_records"`
	BackupPath     string         `json:"backup_file" yaml:"backup_file"`
	Errors         []string       `json:"errors,omitempty" yaml:"errors,omitempty"`
	Outcomes       []BatchOutcome `json:"outcomes" yaml:"outcomes"`
}

// plannedWrite is the set of values one record contributes to one batch.
type plannedWrite struct {
	batch  int
	values []engine.FieldValue
}

// planWrites computes the per-batch values for rec under mapping. Mapped
// fields whose source column is absent from the record are skipped.
func planWrites(rec schema.Record, mapping schema.MappingTable) []plannedWrite {
	var plan []plannedWrite
	for i, batch := range FieldBatches {
		var values []engine.FieldValue
		for _, target := range batch {
			source, ok := mapping.Source(target)
			if !ok || !rec.Has(source) {
				continue
			}
			values = append(values, engine.FieldValue{
				Field: target,
				Value: transformValue(target, source, rec.Get(source)),
			})
		}
		if len(values) > 0 {
			plan = append(plan, plannedWrite{batch: i + 1, values: values})
		}
	}
	return plan
}

// transformValue applies the size rules and turns blank text into null.
func transformValue(target, source string, v schema.Value) schema.Value {
	switch {
	case source == schema.FieldUnitSize && target == schema.ColUnitSize:
		v = schema.CleanSizeValue(v)
	case source == schema.FieldUnitSize && target == schema.ColInletSize:
		v = schema.CleanSizeValue(v)
		if n, ok := schema.SizeNumber(v); ok && n == rectInletUnitSize {
			v = schema.Text(rectInletSize)
		}
	case strings.Contains(target, "Size"):
		v = schema.CleanSizeValue(v)
	}
	if v.Kind() == schema.KindText && strings.TrimSpace(v.String()) == "" {
		return schema.Null
	}
	return v
}

// recordTag returns the write-path tag of rec, or false when the tag cell
// is missing or blank.
func recordTag(rec schema.Record, source string) (raw, tag string, ok bool) {
	v := rec.Get(source)
	if v.IsNull() {
		return "", "", false
	}
	raw = v.String()
	if strings.TrimSpace(raw) == "" {
		return "", "", false
	}
	return raw, schema.LooseTagNormalize(raw), true
}

func updateQuery(table string, fields []engine.FieldValue) (string, []any) {
	sets := make([]string, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		sets[i] = quoteIdent(f.Field) + " = ?"
		args = append(args, f.Value.Interface())
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quoteIdent(table), strings.Join(sets, ", "), quoteIdent(schema.ColTag))
	return q, args
}

// ApplyMapping writes spreadsheet values into the store. The store file is
// copied to a timestamped backup first; if that copy fails nothing is
// written. Every record's batches run inside one transaction that is
// committed once at the end. A failing batch is recorded and the run goes on.
func ApplyMapping(ctx context.Context, path string, records []schema.Record, mapping schema.MappingTable, opts Options) (*ApplyResult, error) {
	opts = opts.withDefaults()
	logger := logging.FromContext(ctx).With().Str("store", path).Logger()

	tagSource, ok := mapping.Source(schema.ColTag)
	if !ok {
		return nil, errors.NewValidationError("mapping", schema.ColTag, "no source field mapped to Tag")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("database file", path)
		}
		return nil, err
	}

	backup, err := Backup(path, LabelBackup, opts.Now())
	if err != nil {
		return nil, err
	}
	logger.Info().Str("backup", backup).Msg("Created backup")
	result := &ApplyResult{BackupPath: backup}

	ctx, cancel := opts.context(ctx)
	defer cancel()

	conn, err := Connect(ctx, path, opts.Table, opts.Strategies)
	if err != nil {
		return result, err
	}
	defer conn.Close()

	tx, err := conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return result, wrapTimeout(err)
	}

	for _, rec := range records {
		raw, tag, ok := recordTag(rec, tagSource)
		if !ok {
			continue
		}
		logger.Debug().Str("tag", raw).Str("normalized", tag).Msg("Applying record")

		updated := false
		for _, w := range planWrites(rec, mapping) {
			outcome := execBatch(ctx, tx, opts.Table, tag, w)
			if outcome.Err != nil {
				if ctx.Err() != nil {
					tx.Rollback()
					return result, wrapTimeout(ctx.Err())
				}
				msg := schema.ToASCII(fmt.Sprintf("Batch %d error for %s: %v", w.batch, raw, outcome.Err))
				outcome.Error = msg
				result.Errors = append(result.Errors, msg)
				logger.Warn().Err(outcome.Err).Int("batch", w.batch).Str("tag", raw).Msg("Batch update failed")
			} else if outcome.RowsAffected > 0 {
				updated = true
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}
		if updated {
			result.UpdatedRecords++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, wrapTimeout(err)
	}
	logger.Info().Int("updated", result.UpdatedRecords).Int("errors", len(result.Errors)).Msg("Applied mapping")
	return result, nil
}

func execBatch(ctx context.Context, tx *sql.Tx, table, tag string, w plannedWrite) BatchOutcome {
	outcome := BatchOutcome{Tag: tag, Batch: w.batch}
	for _, f := range w.values {
		outcome.Fields = append(outcome.Fields, f.Field)
	}
	query, args := updateQuery(table, w.values)
	res, err := tx.ExecContext(ctx, query, append(args, tag)...)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if n, err := res.RowsAffected(); err == nil {
		outcome.RowsAffected = n
	}
	return outcome
}

// PlannedRecord is what ApplyMapping would write for one matched record.
type PlannedRecord struct {
	Tag    string              `json:"tag" yaml:"tag"`
	Values []engine.FieldValue `json:"values" yaml:"values"`
}

// Preview is a dry run of ApplyMapping.
type Preview struct {
	Matched   []PlannedRecord        `json:"matched" yaml:"matched"`
	Unmatched []string               `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	Conflicts []engine.FieldConflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// PreviewMapping reads the store and reports the values ApplyMapping would
// write, matching tags exactly as the UPDATE would. It takes no backup and
// writes nothing.
func PreviewMapping(ctx context.Context, path string, records []schema.Record, mapping schema.MappingTable, opts Options) (*Preview, error) {
	tagSource, ok := mapping.Source(schema.ColTag)
	if !ok {
		return nil, errors.NewValidationError("mapping", schema.ColTag, "no source field mapped to Tag")
	}
	current, err := ReadSchedule(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	byTag := make(map[string]schema.Record, len(current.Records))
	for _, rec := range current.Records {
		if v := rec.Get(schema.ColTag); !v.IsNull() {
			byTag[v.String()] = rec
		}
	}

	preview := &Preview{}
	for _, rec := range records {
		raw, tag, ok := recordTag(rec, tagSource)
		if !ok {
			continue
		}
		target, found := byTag[tag]
		if !found {
			preview.Unmatched = append(preview.Unmatched, raw)
			continue
		}
		planned := PlannedRecord{Tag: tag}
		for _, w := range planWrites(rec, mapping) {
			planned.Values = append(planned.Values, w.values...)
		}
		preview.Matched = append(preview.Matched, planned)
		preview.Conflicts = append(preview.Conflicts, engine.DetectConflicts(tag, target, planned.Values)...)
	}
	return preview, nil
}
