package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/parser"
	"vavmerge/pkg/schema"
	"vavmerge/pkg/store"
)

func TestSaveLoadReset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	fresh, err := Load(dir)
	require.NoError(t, err)
	_, err = uuid.Parse(fresh.ID)
	require.NoError(t, err)

	fresh.SetExcel(`"C:\jobs\schedule.xlsx"`, []string{"Unit_No", "MBH"})
	fresh.SetStore(" /jobs/a.tw2 ", []string{"Tag"})
	fresh.Mapping = schema.MappingTable{schema.ColTag: schema.FieldUnitNo}
	require.NoError(t, Save(dir, fresh))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, loaded.ID)
	assert.Equal(t, `C:\jobs\schedule.xlsx`, loaded.ExcelFile)
	assert.Equal(t, "/jobs/a.tw2", loaded.StoreFile)
	assert.Equal(t, "/jobs/a.tw2", loaded.OriginalStorePath)
	assert.Equal(t, []string{"Unit_No", "MBH"}, loaded.ExcelColumns)
	assert.Equal(t, schema.FieldUnitNo, loaded.Mapping[schema.ColTag])

	require.NoError(t, Reset(dir))
	require.NoError(t, Reset(dir))
	again, err := Load(dir)
	require.NoError(t, err)
	assert.NotEqual(t, fresh.ID, again.ID)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("id: [unclosed"), 0o600))
	_, err := Load(dir)
	var readErr *errors.ReadError
	assert.True(t, errors.As(err, &readErr))
}

func TestSetStoreKeepsOriginal(t *testing.T) {
	s := New()
	s.SetStore("/jobs/a.tw2", nil)
	s.SetStore("/jobs/b.tw2", nil)
	assert.Equal(t, "/jobs/a.tw2", s.OriginalStorePath)
	assert.Equal(t, "/jobs/b.tw2", s.StoreFile)
}

func TestCandidates(t *testing.T) {
	s := New()
	s.OriginalStorePath = "/jobs/a.tw2"
	s.UpdatedStorePath = "'/jobs/local.tw2'"
	s.StoreFile = "/jobs/a.tw2"

	got := s.Candidates(Candidate{Label: "preferred", Path: "/jobs/new.tw2"}, Candidate{Label: "blank", Path: "  "})
	assert.Equal(t, []Candidate{
		{Label: "preferred", Path: "/jobs/new.tw2"},
		{Label: "original", Path: "/jobs/a.tw2"},
		{Label: "local", Path: "/jobs/local.tw2"},
	}, got)

	assert.Empty(t, New().Candidates())
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.tw2")
	good := filepath.Join(dir, "good.tw2")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(good, []byte("x"), 0o644))

	s := New()
	s.OriginalStorePath = filepath.Join(dir, "missing.tw2")
	s.UpdatedStorePath = bad
	s.StoreFile = good

	var tried []string
	load := func(_ context.Context, path string) (*store.Schedule, error) {
		tried = append(tried, path)
		if path == bad {
			return nil, fmt.Errorf("not a database")
		}
		return &store.Schedule{Source: path, Columns: []string{"Tag", "HWRowsCalc"}, RowCount: 7}, nil
	}

	sched, err := s.Reload(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, good, sched.Source)
	assert.Equal(t, []string{bad, good}, tried)
	require.NotNil(t, s.LastReload)
	assert.Equal(t, "store", s.LastReload.Source)
	assert.Equal(t, 7, s.LastReload.RowCount)
	assert.Equal(t, 2, s.LastReload.Columns)
	assert.Equal(t, []string{"Tag", "HWRowsCalc"}, s.StoreColumns)
}

func TestReloadFailures(t *testing.T) {
	_, err := New().Reload(context.Background(), nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	s := New()
	s.StoreFile = filepath.Join(t.TempDir(), "gone.tw2")
	_, err = s.Reload(context.Background(), func(context.Context, string) (*store.Schedule, error) {
		t.Fatal("loader must not run for a missing file")
		return nil, nil
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSanitizePath(t *testing.T) {
	tests := map[string]string{
		`"C:\a b\c.tw2"`: `C:\a b\c.tw2`,
		`  'x.xlsx'  `:   "x.xlsx",
		`"half.xlsx`:     `"half.xlsx`,
		`'`:              `'`,
		"":               "",
		"plain.mdb":      "plain.mdb",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizePath(in), in)
	}
}

func TestAllowedFile(t *testing.T) {
	assert.True(t, AllowedFile("Schedule.XLSX"))
	assert.True(t, AllowedFile("job.tw2"))
	assert.True(t, AllowedFile("units.csv"))
	assert.True(t, AllowedFile("macro.xlsm"))
	assert.False(t, AllowedFile("notes.txt"))
	assert.False(t, AllowedFile("noext"))
	assert.True(t, AllowedFile("a.txt", "txt"))
	assert.False(t, AllowedFile("a.xlsx", "tw2"))
}

func TestAllowedFileCoversDecodableSpreadsheets(t *testing.T) {
	for _, ext := range parser.SupportedExtensions {
		assert.True(t, AllowedFile("schedule"+ext), ext)
	}
	for _, ext := range StoreExtensions {
		assert.True(t, AllowedFile("job."+ext), ext)
	}
}
