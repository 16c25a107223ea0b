package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"vavmerge/pkg/errors"
	"vavmerge/pkg/logging"
)

// Strategy is one way of opening a store file: a database/sql driver name
// and a DSN built from the absolute path.
type Strategy struct {
	Name   string
	Driver string
	DSN    func(absPath string) string
}

// AccessStrategies are the Microsoft Access ODBC connection strings, in the
// order they are tried. They need the odbc driver, which is compiled in on
// Windows or with the odbc build tag.
func AccessStrategies() []Strategy {
	return []Strategy{
		{
			Name:   "access-accdb",
			Driver: "odbc",
			DSN: func(p string) string {
				return fmt.Sprintf("DRIVER={Microsoft Access Driver (*.mdb, *.accdb)};DBQ=%s;", p)
			},
		},
		{
			Name:   "access-mdb",
			Driver: "odbc",
			DSN: func(p string) string {
				return fmt.Sprintf("DRIVER={Microsoft Access Driver (*.mdb)};DBQ=%s;", p)
			},
		},
		{
			Name:   "access-accdb-pwd",
			Driver: "odbc",
			DSN: func(p string) string {
				return fmt.Sprintf("DRIVER={Microsoft Access Driver (*.mdb, *.accdb)};DBQ=%s;PWD=;", p)
			},
		},
	}
}

// SQLiteStrategy opens the file as a SQLite database.
func SQLiteStrategy() Strategy {
	return Strategy{
		Name:   "sqlite",
		Driver: "sqlite",
		DSN:    func(p string) string { return p },
	}
}

// DefaultStrategies tries every Access variant, then SQLite.
func DefaultStrategies() []Strategy {
	return append(AccessStrategies(), SQLiteStrategy())
}

// StrategiesByName picks built-in strategies in the given order.
func StrategiesByName(names []string) ([]Strategy, error) {
	known := make(map[string]Strategy)
	for _, s := range DefaultStrategies() {
		known[s.Name] = s
	}
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		s, ok := known[n]
		if !ok {
			return nil, errors.NewValidationError("store.drivers", n, "unknown connection strategy")
		}
		out = append(out, s)
	}
	return out, nil
}

// Conn is an open store with the discovered column list of its table.
type Conn struct {
	DB       *sql.DB
	Path     string
	Strategy string
	Table    string
	Columns  []string
}

// Close releases the connection.
func (c *Conn) Close() error {
	return c.DB.Close()
}

// Connect opens path with the first strategy that opens, pings, and can run
// a zero-row query against table. When none succeeds the returned
// *errors.ConnectError lists every attempt.
func Connect(ctx context.Context, path, table string, strategies []Strategy) (*Conn, error) {
	logger := logging.FromContext(ctx)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("database file", path)
		}
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	connErr := &errors.ConnectError{Path: abs}
	for _, s := range strategies {
		conn, err := tryStrategy(ctx, s, abs, table)
		if err == nil {
			logger.Debug().Str("strategy", s.Name).Str("path", abs).Msg("Connected to store")
			return conn, nil
		}
		logger.Debug().Err(err).Str("strategy", s.Name).Msg("Connection strategy failed")
		connErr.Attempts = append(connErr.Attempts, errors.Attempt{Strategy: s.Name, Err: err})
		if ctx.Err() != nil {
			return nil, wrapTimeout(ctx.Err())
		}
	}
	return nil, connErr
}

func tryStrategy(ctx context.Context, s Strategy, abs, table string) (*Conn, error) {
	db, err := sql.Open(s.Driver, s.DSN(abs))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	cols, err := queryColumns(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Conn{DB: db, Path: abs, Strategy: s.Name, Table: table, Columns: cols}, nil
}

// queryColumns reads the column names of table from a query that returns no
// rows, without relying on driver schema introspection.
func queryColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1=0", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return cols, rows.Err()
}
