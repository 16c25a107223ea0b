package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vavmerge/internal/session"
	"vavmerge/pkg/engine"
	"vavmerge/pkg/errors"
	"vavmerge/pkg/logging"
	"vavmerge/pkg/parser"
	"vavmerge/pkg/report"
	"vavmerge/pkg/schema"
	"vavmerge/pkg/store"
)

// scheduleFlags override the configured spreadsheet layout.
type scheduleFlags struct {
	dataStartRow int
	headerRows   int
	noTitle      bool
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.dataStartRow, "data-start-row", 0, "1-based row where data begins (default from config)")
	cmd.Flags().IntVar(&f.headerRows, "header-rows", 0, "number of header rows, 1 or 2 (default from config)")
	cmd.Flags().BoolVar(&f.noTitle, "no-title", false, "the first row is not a title row")
}

func (a *App) parserOptions(f *scheduleFlags) parser.Options {
	opts := a.config.Schedule
	if f.dataStartRow > 0 {
		opts.DataStartRow = f.dataStartRow
	}
	if f.headerRows > 0 {
		opts.HeaderRows = f.headerRows
	}
	if f.noTitle {
		opts.SkipTitleRow = false
	}
	return opts
}

// resolvePath picks the path from args[i], falling back to the session.
func resolvePath(args []string, i int, fromSession, what string) (string, error) {
	path := fromSession
	if i < len(args) {
		path = args[i]
	}
	path = session.SanitizePath(path)
	if path == "" {
		return "", errors.NewValidationError(what, "", "no file given and none in the session")
	}
	if !session.AllowedFile(path) {
		return "", errors.NewValidationError(what, path, "unsupported file type")
	}
	return path, nil
}

func (a *App) scheduleCommand() *cobra.Command {
	var (
		flags scheduleFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:     "schedule [file]",
		GroupID: "read",
		Short:   "Read an equipment schedule spreadsheet",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			path, err := resolvePath(args, 0, sess.ExcelFile, "schedule")
			if err != nil {
				return err
			}
			sched, err := parser.ReadSchedule(cmd.Context(), path, a.parserOptions(&flags))
			if err != nil {
				return err
			}
			sess.SetExcel(path, sched.Columns)
			if err := a.saveSession(sess); err != nil {
				return err
			}
			return a.render(report.NewRecordsView(filepath.Base(path), sched.Columns, sched.Records, limit))
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many records (0 for all)")
	return cmd
}

func (a *App) headersCommand() *cobra.Command {
	var (
		flags   scheduleFlags
		preview int
	)
	cmd := &cobra.Command{
		Use:     "headers [file]",
		GroupID: "read",
		Short:   "Show how the header rows of a spreadsheet are interpreted",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			path, err := resolvePath(args, 0, sess.ExcelFile, "schedule")
			if err != nil {
				return err
			}
			sheet, err := parser.LoadSheet(cmd.Context(), path)
			if err != nil {
				return err
			}
			opts := a.parserOptions(&flags)
			info := schema.InferHeaders(sheet.Grid, schema.HeaderOptions{HeaderRows: opts.HeaderRows, SkipTitleRow: opts.SkipTitleRow})
			return a.render(report.NewHeaderView(filepath.Base(path), sheet.Grid, info, preview))
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&preview, "preview", 5, "number of raw rows to show")
	return cmd
}

func (a *App) storeOptions() (store.Options, error) {
	return a.config.StoreOptions()
}

func (a *App) dbCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "db [file]",
		GroupID: "read",
		Short:   "Read the schedule table of an equipment database",
		Long: `Read the schedule table of an equipment database.

Without a file argument the store is reloaded from the session: the original
path first, then the working copy, then the last store loaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			opts, err := a.storeOptions()
			if err != nil {
				return err
			}
			load := func(ctx context.Context, path string) (*store.Schedule, error) {
				return store.ReadSchedule(ctx, path, opts)
			}

			var sched *store.Schedule
			if len(args) > 0 {
				path, err := resolvePath(args, 0, "", "store")
				if err != nil {
					return err
				}
				if sched, err = load(cmd.Context(), path); err != nil {
					return err
				}
				sess.SetStore(path, sched.Columns)
			} else if sched, err = sess.Reload(cmd.Context(), load); err != nil {
				return err
			}
			if err := a.saveSession(sess); err != nil {
				return err
			}
			return a.render(report.NewRecordsView(filepath.Base(sched.Source), sched.Columns, sched.Records, limit))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many records (0 for all)")
	return cmd
}

func (a *App) compareCommand() *cobra.Command {
	var flags scheduleFlags
	cmd := &cobra.Command{
		Use:     "compare [schedule] [store]",
		GroupID: "read",
		Short:   "Compare schedule capacities against database calculations",
		Long: `Compare every unit of the schedule against the database row with the same
tag. MBH and LAT must fall within the configured margins of design; water and
air pressure drops must not exceed their thresholds.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			excelPath, err := resolvePath(args, 0, sess.ExcelFile, "schedule")
			if err != nil {
				return err
			}
			storePath, err := resolvePath(args, 1, sess.StoreFile, "store")
			if err != nil {
				return err
			}
			opts, err := a.storeOptions()
			if err != nil {
				return err
			}

			excel, err := parser.ReadSchedule(ctx, excelPath, a.parserOptions(&flags))
			if err != nil {
				return err
			}
			db, err := store.ReadSchedule(ctx, storePath, opts)
			if err != nil {
				return err
			}

			rep := engine.Compare(excel.Records, db.Records, a.config.Compare)
			logCollisions(ctx, rep.Collisions)

			sess.SetExcel(excelPath, excel.Columns)
			sess.SetStore(storePath, db.Columns)
			if err := a.saveSession(sess); err != nil {
				return err
			}
			return a.render(report.NewComparisonView(rep))
		},
	}
	flags.register(cmd)
	return cmd
}

func logCollisions(ctx context.Context, collisions []engine.Collision) {
	logger := logging.FromContext(ctx)
	for _, c := range collisions {
		logger.Warn().
			Str("tag", c.Tag).
			Int("kept_row", c.KeptRow).
			Int("dropped_row", c.DroppedRow).
			Msg("Duplicate database tag; later row used")
	}
}

func (a *App) projectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "project [store]",
		GroupID: "read",
		Short:   "Print the project name of an equipment database",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			opts, err := a.storeOptions()
			if err != nil {
				return err
			}
			path := sess.OriginalStorePath
			if path == "" {
				path = sess.StoreFile
			}
			if len(args) > 0 {
				path = session.SanitizePath(args[0])
			}
			return a.render(projectView{Store: path, Name: store.ProjectName(cmd.Context(), path, opts)})
		},
	}
}

type projectView struct {
	Store string `json:"store" yaml:"store"`
	Name  string `json:"project_name" yaml:"project_name"`
}

func (v projectView) Tables() []report.Data {
	return []report.Data{{Headers: []string{"Store", "Project"}, Rows: [][]string{{v.Store, v.Name}}}}
}

func (a *App) applyCommand() *cobra.Command {
	var (
		flags    scheduleFlags
		mappings []string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:     "apply [schedule] [store]",
		GroupID: "write",
		Short:   "Write mapped schedule fields into the database",
		Long: `Write mapped schedule fields into the database.

The database file is copied to <file>.backup_<YYYYMMDD_HHMMSS> first; if the
copy fails nothing is written. Mappings are TARGET=SOURCE pairs; without
--map the session mapping is used, and without one the suggested mapping.
Use --dry-run to see the values that would change without writing.`,
		Example: `  vavmerge apply schedule.xlsx job.tw2
  vavmerge apply --map Tag=Unit_No --map HWGPM=GPM --dry-run`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			excelPath, err := resolvePath(args, 0, sess.ExcelFile, "schedule")
			if err != nil {
				return err
			}
			storePath, err := resolvePath(args, 1, sess.StoreFile, "store")
			if err != nil {
				return err
			}
			mapping, err := chooseMapping(mappings, sess.Mapping)
			if err != nil {
				return err
			}
			opts, err := a.storeOptions()
			if err != nil {
				return err
			}

			excel, err := parser.ReadSchedule(ctx, excelPath, a.parserOptions(&flags))
			if err != nil {
				return err
			}

			if dryRun {
				preview, err := store.PreviewMapping(ctx, storePath, excel.Records, mapping, opts)
				if err != nil {
					return err
				}
				return a.render(report.PreviewView{Store: storePath, Preview: *preview})
			}

			res, err := store.ApplyMapping(ctx, storePath, excel.Records, mapping, opts)
			if err != nil {
				if res != nil {
					return a.keepBackup(ctx, sess, res.BackupPath, err)
				}
				return err
			}
			sess.SetExcel(excelPath, excel.Columns)
			sess.SetStore(storePath, nil)
			sess.Mapping = mapping
			sess.LastBackup = res.BackupPath
			if _, err := sess.Reload(ctx, func(ctx context.Context, path string) (*store.Schedule, error) {
				return store.ReadSchedule(ctx, path, opts)
			}, session.Candidate{Label: "applied", Path: storePath}); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Msg("Could not reload store after apply")
			}
			if err := a.saveSession(sess); err != nil {
				return err
			}
			return a.render(report.ApplyView{Store: storePath, ApplyResult: *res})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&mappings, "map", nil, "TARGET=SOURCE field mapping (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the values that would be written without writing")
	return cmd
}

// chooseMapping prefers explicit pairs, then the session mapping, then the
// suggested mapping.
func chooseMapping(pairs []string, fromSession schema.MappingTable) (schema.MappingTable, error) {
	if len(pairs) > 0 {
		m, err := schema.ParseMappingPairs(pairs)
		if err != nil {
			return nil, errors.NewValidationError("map", strings.Join(pairs, " "), err.Error())
		}
		return m, nil
	}
	if len(fromSession) > 0 {
		return fromSession, nil
	}
	return schema.SuggestedMappings(), nil
}

func (a *App) hwRowsCommand() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:     "hw-rows [store]",
		GroupID: "write",
		Short:   "Set heating coil row counts by unit tag",
		Long: `Set heating coil row counts by unit tag. Values must be 1 to 4; every value
is checked before the database is copied to <file>.backup_hw_rows_<timestamp>.`,
		Example: `  vavmerge hw-rows job.tw2 --set V-1-01=2 --set V-1-02=3`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			storePath, err := resolvePath(args, 0, sess.StoreFile, "store")
			if err != nil {
				return err
			}
			edits, err := parseHWRowsEdits(sets)
			if err != nil {
				return err
			}
			opts, err := a.storeOptions()
			if err != nil {
				return err
			}
			res, err := store.SaveHWRows(cmd.Context(), storePath, edits, opts)
			if err != nil {
				if res != nil && res.BackupFile != "" {
					return a.keepBackup(cmd.Context(), sess, filepath.Join(filepath.Dir(storePath), res.BackupFile), err)
				}
				return err
			}
			sess.LastBackup = filepath.Join(filepath.Dir(storePath), res.BackupFile)
			if err := a.saveSession(sess); err != nil {
				return err
			}
			return a.render(report.HWRowsView{HWRowsResult: *res})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "TAG=ROWS edit (repeatable)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

// keepBackup records a backup taken before a write that then failed, so the
// operator can still find it, and names it in the returned error.
func (a *App) keepBackup(ctx context.Context, sess *session.Session, backup string, err error) error {
	if backup == "" {
		return err
	}
	logger := logging.FromContext(ctx)
	logger.Warn().Err(err).Str("backup", backup).Msg("Write failed after backup")
	sess.LastBackup = backup
	if serr := a.saveSession(sess); serr != nil {
		logger.Warn().Err(serr).Msg("Could not save session")
	}
	return fmt.Errorf("%w (backup kept at %s)", err, backup)
}

func parseHWRowsEdits(sets []string) ([]store.HWRowsEdit, error) {
	edits := make([]store.HWRowsEdit, 0, len(sets))
	for _, s := range sets {
		i := strings.LastIndexByte(s, '=')
		if i < 0 {
			return nil, errors.NewValidationError("set", s, "want TAG=ROWS")
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[i+1:]))
		if err != nil {
			return nil, errors.NewValidationError("set", s, fmt.Sprintf("rows must be a number: %v", err))
		}
		edits = append(edits, store.HWRowsEdit{UnitTag: strings.TrimSpace(s[:i]), HWRows: n})
	}
	return edits, nil
}
