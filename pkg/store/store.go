// Package store reads and writes the single-file relational store that holds
// the equipment schedule table. Every operation opens its own connection,
// runs under a deadline, and closes the connection before returning.
//
// The store is a single-writer file. Concurrent writers against one file are
// not supported and no locking is done.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vavmerge/pkg/errors"
)

// Options configures store access.
type Options struct {
	// Table is the governing schedule table.
	Table string
	// ProjectTable holds the project metadata row.
	ProjectTable string
	// Strategies are tried in order when connecting.
	Strategies []Strategy
	// Timeout bounds each store operation. Zero means no deadline.
	Timeout time.Duration
	// Now stamps backup file names.
	Now func() time.Time
}

// DefaultOptions returns the standard table names, every built-in connection
// strategy and a 30 second timeout.
func DefaultOptions() Options {
	return Options{
		Table:        "tblSchedule",
		ProjectTable: "tblProjectInfo",
		Strategies:   DefaultStrategies(),
		Timeout:      30 * time.Second,
		Now:          time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Table == "" {
		o.Table = d.Table
	}
	if o.ProjectTable == "" {
		o.ProjectTable = d.ProjectTable
	}
	if o.Strategies == nil {
		o.Strategies = d.Strategies
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

func (o Options) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// quoteIdent brackets an identifier; both Access and SQLite accept the form.
func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// wrapTimeout marks deadline failures with errors.ErrTimeout.
func wrapTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errors.ErrTimeout) {
		return fmt.Errorf("%w: %w", errors.ErrTimeout, err)
	}
	return err
}
