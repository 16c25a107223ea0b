package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/logging"
	"vavmerge/pkg/schema"
)

// HWRowsEdit sets the heating coil row count of one unit.
type HWRowsEdit struct {
	UnitTag string `json:"unit_tag" yaml:"unit_tag"`
	HWRows  int    `json:"hw_rows" yaml:"hw_rows"`
}

// HWRowsResult reports a SaveHWRows run.
type HWRowsResult struct {
	UpdatedCount int      `json:"updated_count" yaml:"updated_count"`
	BackupFile   string   `json:"backup_file" yaml:"backup_file"`
	TargetFile   string   `json:"target_file" yaml:"target_file"`
	TargetPath   string   `json:"target_path" yaml:"target_path"`
	Columns      []string `json:"columns" yaml:"columns"`
	Warnings     []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ValidateHWRows checks that every edit has 1 to 4 rows.
func ValidateHWRows(edits []HWRowsEdit) error {
	for _, e := range edits {
		if e.HWRows < 1 || e.HWRows > 4 {
			return errors.NewValidationError("hw_rows", e.HWRows,
				fmt.Sprintf("Invalid HW Rows value: %d. Must be 1, 2, 3, or 4", e.HWRows))
		}
	}
	return nil
}

// hwRowsColumns picks the row count columns present in the table. HWRowsCalc
// is always written; HWRows and HWRow are written when they exist.
func hwRowsColumns(columns []string) []string {
	lookup := make(map[string]string, len(columns))
	for _, c := range columns {
		lookup[strings.ToLower(c)] = c
	}
	out := []string{schema.ColHWRowsCalc}
	if c, ok := lookup[strings.ToLower(schema.ColHWRowsCalc)]; ok {
		out[0] = c
	}
	for _, name := range []string{schema.ColHWRows, schema.ColHWRow} {
		if c, ok := lookup[strings.ToLower(name)]; ok {
			out = append(out, c)
		}
	}
	return out
}

// SaveHWRows writes heating row counts by tag. All edits are validated before
// the store is backed up; a tag with no matching row becomes a warning.
func SaveHWRows(ctx context.Context, path string, edits []HWRowsEdit, opts Options) (*HWRowsResult, error) {
	opts = opts.withDefaults()
	logger := logging.FromContext(ctx).With().Str("store", path).Logger()

	if err := ValidateHWRows(edits); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("database file", path)
		}
		return nil, err
	}

	backup, err := Backup(path, LabelHWRowsBackup, opts.Now())
	if err != nil {
		return nil, err
	}
	result := &HWRowsResult{
		BackupFile: filepath.Base(backup),
		TargetFile: filepath.Base(path),
		TargetPath: path,
	}

	ctx, cancel := opts.context(ctx)
	defer cancel()

	conn, err := Connect(ctx, path, opts.Table, opts.Strategies)
	if err != nil {
		return result, err
	}
	defer conn.Close()
	result.Columns = hwRowsColumns(conn.Columns)

	sets := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		sets[i] = quoteIdent(c) + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdent(opts.Table), strings.Join(sets, ", "), quoteIdent(schema.ColTag))

	tx, err := conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return result, wrapTimeout(err)
	}
	for _, e := range edits {
		if strings.TrimSpace(e.UnitTag) == "" {
			result.Warnings = append(result.Warnings, "Missing unit tag in edit payload")
			continue
		}
		tag := schema.TagFromDisplay(e.UnitTag)
		args := make([]any, 0, len(result.Columns)+1)
		for range result.Columns {
			args = append(args, int64(e.HWRows))
		}
		res, err := tx.ExecContext(ctx, query, append(args, tag)...)
		if err != nil {
			if ctx.Err() != nil {
				tx.Rollback()
				return result, wrapTimeout(ctx.Err())
			}
			result.Warnings = append(result.Warnings, schema.ToASCII(fmt.Sprintf("Error updating %s: %v", e.UnitTag, err)))
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.UpdatedCount++
			logger.Debug().Str("tag", tag).Int("hw_rows", e.HWRows).Msg("Updated HW rows")
		} else {
			result.Warnings = append(result.Warnings, fmt.Sprintf("No record found for tag: %s", tag))
		}
	}
	if err := tx.Commit(); err != nil {
		return result, wrapTimeout(err)
	}
	logger.Info().Int("updated", result.UpdatedCount).Str("backup", result.BackupFile).Msg("Saved HW rows")
	return result, nil
}
