package store

import (
	"context"
	"path/filepath"
	"strings"

	"vavmerge/pkg/logging"
	"vavmerge/pkg/schema"
)

// DefaultProjectName is used when neither the store nor the file name
// yields a project name.
const DefaultProjectName = "VAV Schedule Data"

// ProjectName returns the project name stored in the project table. When the
// store cannot be read or the name is blank it falls back to the file stem,
// cut at the first " - ", and then to DefaultProjectName.
func ProjectName(ctx context.Context, path string, opts Options) string {
	if path == "" {
		return DefaultProjectName
	}
	if name, err := storedProjectName(ctx, path, opts); err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("store", path).Msg("Project name lookup failed")
	} else if name != "" {
		return name
	}
	return projectNameFromFile(path)
}

func storedProjectName(ctx context.Context, path string, opts Options) (string, error) {
	opts = opts.withDefaults()
	ctx, cancel := opts.context(ctx)
	defer cancel()

	conn, err := Connect(ctx, path, opts.ProjectTable, opts.Strategies)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	var raw any
	err = conn.DB.QueryRowContext(ctx, "SELECT [Name] FROM "+quoteIdent(opts.ProjectTable)).Scan(&raw)
	if err != nil {
		return "", wrapTimeout(err)
	}
	return strings.TrimSpace(schema.Sanitize(raw).String()), nil
}

func projectNameFromFile(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if before, _, ok := strings.Cut(stem, " - "); ok {
		stem = before
	}
	if stem = strings.TrimSpace(stem); stem == "" {
		return DefaultProjectName
	}
	return stem
}
