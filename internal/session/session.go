// Package session holds the operator's working set between CLI invocations:
// which spreadsheet and store are loaded, their columns and the last mapping.
// Core packages never see this state; commands read it, pass plain values
// into the core and save whatever changed.
package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/logging"
	"vavmerge/pkg/parser"
	"vavmerge/pkg/schema"
	"vavmerge/pkg/store"
)

// FileName is the session file inside the session directory.
const FileName = "session.yaml"

// Session is one operator's working set.
type Session struct {
	ID        string    `yaml:"id"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`

	ExcelFile    string   `yaml:"excel_file,omitempty"`
	ExcelColumns []string `yaml:"excel_columns,omitempty"`

	// StoreFile is the store path as given; OriginalStorePath is where it was
	// first loaded from and UpdatedStorePath a working copy, when one exists.
	StoreFile         string   `yaml:"store_file,omitempty"`
	OriginalStorePath string   `yaml:"original_store_path,omitempty"`
	UpdatedStorePath  string   `yaml:"updated_store_path,omitempty"`
	StoreColumns      []string `yaml:"store_columns,omitempty"`

	Mapping    schema.MappingTable `yaml:"mapping,omitempty"`
	LastBackup string              `yaml:"last_backup,omitempty"`
	LastReload *Reload             `yaml:"last_reload,omitempty"`
}

// Reload records the last successful store reload.
type Reload struct {
	Path     string    `yaml:"path"`
	Source   string    `yaml:"source"`
	ModTime  time.Time `yaml:"mod_time,omitempty"`
	RowCount int       `yaml:"row_count"`
	Columns  int       `yaml:"column_count"`
}

// New starts an empty session.
func New() *Session {
	now := time.Now().UTC()
	return &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

// Path is the session file for dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the session in dir. A missing file starts a new session.
func Load(dir string) (*Session, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errors.NewReadError(Path(dir), "session", err)
	}
	s := &Session{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.NewReadError(Path(dir), "session", err)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return s, nil
}

// Save writes s to dir, replacing the previous file atomically.
func Save(dir string, s *Session) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()
	data, err := yaml.MarshalWithOptions(s, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), Path(dir))
}

// Reset deletes the session in dir. Resetting twice is not an error.
func Reset(dir string) error {
	if err := os.Remove(Path(dir)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SetExcel records the loaded spreadsheet.
func (s *Session) SetExcel(path string, columns []string) {
	s.ExcelFile = SanitizePath(path)
	s.ExcelColumns = columns
}

// SetStore records the loaded store. The first store loaded becomes the
// original path.
func (s *Session) SetStore(path string, columns []string) {
	path = SanitizePath(path)
	s.StoreFile = path
	if s.OriginalStorePath == "" {
		s.OriginalStorePath = path
	}
	s.StoreColumns = columns
}

// Candidate is a labelled store path.
type Candidate struct {
	Label string `yaml:"label" json:"label"`
	Path  string `yaml:"path" json:"path"`
}

// Candidates lists the store paths to reload from: preferred first, then the
// original, local and store paths of the session. Paths are sanitized, blank
// ones dropped, and a path already listed is not repeated.
func (s *Session) Candidates(preferred ...Candidate) []Candidate {
	all := append([]Candidate{}, preferred...)
	all = append(all,
		Candidate{Label: "original", Path: s.OriginalStorePath},
		Candidate{Label: "local", Path: s.UpdatedStorePath},
		Candidate{Label: "store", Path: s.StoreFile},
	)

	seen := make(map[string]bool)
	var out []Candidate
	for _, c := range all {
		p := SanitizePath(c.Path)
		if p == "" {
			continue
		}
		key := p
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Candidate{Label: c.Label, Path: p})
	}
	return out
}

// Loader reads a store.
type Loader func(ctx context.Context, path string) (*store.Schedule, error)

// Reload reads the first candidate that exists and loads, and records it in
// the session. When every candidate fails the last failure is returned.
func (s *Session) Reload(ctx context.Context, load Loader, preferred ...Candidate) (*store.Schedule, error) {
	logger := logging.FromContext(ctx)
	candidates := s.Candidates(preferred...)
	if len(candidates) == 0 {
		return nil, errors.NewNotFoundError("store path", "session")
	}

	var lastErr error
	for _, c := range candidates {
		info, err := os.Stat(c.Path)
		if err != nil {
			lastErr = errors.NewNotFoundError("store", c.Path)
			logger.Debug().Str("source", c.Label).Str("path", c.Path).Msg("Reload candidate missing")
			continue
		}
		sched, err := load(ctx, c.Path)
		if err != nil {
			lastErr = err
			logger.Warn().Err(err).Str("source", c.Label).Str("path", c.Path).Msg("Reload candidate failed")
			continue
		}
		s.StoreColumns = sched.Columns
		s.LastReload = &Reload{
			Path:     c.Path,
			Source:   c.Label,
			ModTime:  info.ModTime().UTC(),
			RowCount: sched.RowCount,
			Columns:  len(sched.Columns),
		}
		logger.Info().Str("source", c.Label).Str("path", c.Path).Int("rows", sched.RowCount).Msg("Reloaded store")
		return sched, nil
	}
	return nil, lastErr
}

// SanitizePath trims whitespace and one pair of matching surrounding quotes,
// as left by a "copy as path" on Windows.
func SanitizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 {
		first, last := p[0], p[len(p)-1]
		if (first == '"' || first == '\'') && first == last {
			return strings.TrimSpace(p[1 : len(p)-1])
		}
	}
	return p
}

// StoreExtensions are the database file types a store can be opened from.
var StoreExtensions = []string{"tw2", "mdb"}

// DefaultAllowedExtensions are the file types an operator may load: every
// spreadsheet type the parser decodes plus the store types.
var DefaultAllowedExtensions = allowedExtensions()

func allowedExtensions() []string {
	exts := make([]string, 0, len(parser.SupportedExtensions)+len(StoreExtensions))
	for _, e := range parser.SupportedExtensions {
		exts = append(exts, strings.TrimPrefix(e, "."))
	}
	return append(exts, StoreExtensions...)
}

// AllowedFile reports whether name has one of the extensions, compared
// case-insensitively. With no extensions given the defaults apply.
func AllowedFile(name string, extensions ...string) bool {
	if len(extensions) == 0 {
		extensions = DefaultAllowedExtensions
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	ext := strings.ToLower(name[i+1:])
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
