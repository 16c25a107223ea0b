package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vavmerge/internal/config"
	"vavmerge/internal/session"
	"vavmerge/pkg/errors"
)

type fixture struct {
	dir        string
	sessionDir string
	schedule   string
	store      string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("VAVMERGE_STORE_DRIVERS", "sqlite")
	t.Setenv("VAVMERGE_LOG_LEVEL", "error")

	f := fixture{
		dir:        dir,
		sessionDir: filepath.Join(dir, "session"),
		schedule:   filepath.Join(dir, "schedule.csv"),
		store:      filepath.Join(dir, "job.tw2"),
	}

	csv := "UNIT NO.,UNIT SIZE,CFM,,MBH,LAT\n" +
		",,MAX,MIN,,\n" +
		"V-1-1,8\",450,150,100,80\n" +
		"V-1-2,40,2000,600,100,80\n" +
		"V-9-9,6\",300,100,50,90\n"
	require.NoError(t, os.WriteFile(f.schedule, []byte(csv), 0o644))

	db, err := sql.Open("sqlite", f.store)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE tblSchedule (Tag TEXT, UnitSize TEXT, InletSize TEXT, CFMDesign REAL,
			CFMMinPrime REAL, CFMMin REAL, HWCFM REAL, HeatingPrimaryAirflow REAL, HWGPM REAL,
			HWMBHCalc REAL, HWLATCalc REAL, HWPDCalc REAL, HWAPDCalc REAL, HWRowsCalc INTEGER)`,
		`INSERT INTO tblSchedule (Tag, UnitSize, HWMBHCalc, HWLATCalc, HWPDCalc, HWAPDCalc, HWRowsCalc)
			VALUES ('V-1-01', '10', 105, 82, 3.5, 0.2, 1)`,
		`INSERT INTO tblSchedule (Tag, UnitSize, HWMBHCalc, HWLATCalc, HWPDCalc, HWAPDCalc, HWRowsCalc)
			VALUES ('V-1-02', '12', 130, 82, 3.5, 0.2, 2)`,
		`CREATE TABLE tblProjectInfo (Name TEXT)`,
		`INSERT INTO tblProjectInfo (Name) VALUES ('Riverside Medical')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return f
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := New("test", "none")
	var out, errOut bytes.Buffer
	a.SetOutput(&out, &errOut)
	err := a.Execute(context.Background(), append(args, "--session-dir", f.sessionDir))
	return out.String(), err
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

func TestCompareCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "compare", f.schedule, f.store, "-o", "json")
	require.NoError(t, err)

	summary := decode(t, out)["summary"].(map[string]any)
	assert.EqualValues(t, 3, summary["total"])
	assert.EqualValues(t, 1, summary["pass"])
	assert.EqualValues(t, 1, summary["fail"])
	assert.EqualValues(t, 1, summary["not_found"])

	sess, err := session.Load(f.sessionDir)
	require.NoError(t, err)
	assert.Equal(t, f.schedule, sess.ExcelFile)
	assert.Equal(t, f.store, sess.StoreFile)
	assert.Contains(t, sess.StoreColumns, "HWRowsCalc")

	// Both paths now come from the session.
	out, err = f.run(t, "compare", "-o", "json")
	require.NoError(t, err)
	assert.Len(t, decode(t, out)["results"], 3)
}

func TestApplyKeepsBackupWhenWriteFails(t *testing.T) {
	f := newFixture(t)
	broken := filepath.Join(f.dir, "broken.tw2")
	require.NoError(t, os.WriteFile(broken, []byte("not a database"), 0o644))

	_, err := f.run(t, "apply", f.schedule, broken, "-o", "json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoDriver))

	matches, _ := filepath.Glob(broken + ".backup_*")
	require.Len(t, matches, 1)
	assert.Contains(t, err.Error(), matches[0])

	sess, err := session.Load(f.sessionDir)
	require.NoError(t, err)
	assert.Equal(t, matches[0], sess.LastBackup)
}

func TestApplyCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "apply", f.schedule, f.store, "--dry-run", "-o", "json")
	require.NoError(t, err)
	preview := decode(t, out)
	assert.Len(t, preview["matched"], 2)
	assert.Equal(t, []any{"V-9-9"}, preview["unmatched"])
	matches, _ := filepath.Glob(f.store + ".backup_*")
	assert.Empty(t, matches)

	out, err = f.run(t, "apply", f.schedule, f.store, "-o", "json")
	require.NoError(t, err)
	res := decode(t, out)
	assert.EqualValues(t, 2, res["updated_records"])
	assert.FileExists(t, res["backup_file"].(string))

	db, err := sql.Open("sqlite", f.store)
	require.NoError(t, err)
	defer db.Close()
	var unitSize, inlet string
	require.NoError(t, db.QueryRow(`SELECT UnitSize, InletSize FROM tblSchedule WHERE Tag = 'V-1-02'`).Scan(&unitSize, &inlet))
	assert.Equal(t, "40", unitSize)
	assert.Equal(t, "24x16", inlet)

	sess, err := session.Load(f.sessionDir)
	require.NoError(t, err)
	assert.Equal(t, res["backup_file"], sess.LastBackup)
	require.NotNil(t, sess.LastReload)
	assert.Equal(t, "applied", sess.LastReload.Source)
	assert.NotEmpty(t, sess.Mapping)
}

func TestApplyCommandRejectsBadMapping(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "apply", f.schedule, f.store, "--map", "Tag")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestHWRowsCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "hw-rows", f.store, "--set", "V-1-01=3", "--set", "V-4-04=2", "-o", "json")
	require.NoError(t, err)
	res := decode(t, out)
	assert.EqualValues(t, 1, res["updated_count"])
	assert.Equal(t, []any{"No record found for tag: V-4-04"}, res["warnings"])

	_, err = f.run(t, "hw-rows", f.store, "--set", "V-1-01=7")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = f.run(t, "hw-rows", f.store, "--set", "V-1-01")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestProjectCommand(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "project", f.store, "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "Riverside Medical", decode(t, out)["project_name"])
}

func TestDBCommandReloadsFromSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "db")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = f.run(t, "session", "set", "--store", f.store, "--working-copy", filepath.Join(f.dir, "gone.tw2"))
	require.NoError(t, err)

	out, err := f.run(t, "db", "--limit", "1", "-o", "json")
	require.NoError(t, err)
	view := decode(t, out)
	assert.EqualValues(t, 2, view["row_count"])
	assert.Len(t, view["data"], 1)
}

func TestSessionCommands(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "session", "set", "--schedule", `"`+f.schedule+`"`, "--map", "Tag=Unit_No")
	require.NoError(t, err)

	out, err := f.run(t, "session", "show", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "excel_file: "+f.schedule)
	assert.Contains(t, out, "Tag: Unit_No")

	_, err = f.run(t, "session", "reset")
	require.NoError(t, err)
	out, err = f.run(t, "session", "show", "-o", "yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "excel_file")
}

func TestUnsupportedFileType(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "schedule", filepath.Join(f.dir, "notes.txt"))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = f.run(t, "schedule", f.schedule, "-o", "xml")
	assert.Error(t, err)
}

func TestDetermineLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"

	tests := []struct {
		name  string
		flags Flags
		cfg   *config.Config
		want  string
	}{
		{"explicit wins", Flags{LogLevel: "trace", Verbose: true, Quiet: true}, cfg, "trace"},
		{"invalid explicit", Flags{LogLevel: "loud"}, cfg, "info"},
		{"verbose over quiet", Flags{Verbose: true, Quiet: true}, cfg, "debug"},
		{"quiet", Flags{Quiet: true}, cfg, "warn"},
		{"config", Flags{}, cfg, "error"},
		{"default", Flags{}, config.Default(), "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineLogLevel(tt.cfg, tt.flags))
		})
	}
}
