// Package main is the vavmerge command line: it reconciles VAV schedules
// from spreadsheets against the equipment database and writes mapped values
// back to it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vavmerge/cmd/vavmerge/app"
	"vavmerge/pkg/schema"
)

// Version information populated at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := app.New(version, commit)
	if err := a.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", schema.ToASCII(err.Error()))
		cancel()
		os.Exit(1)
	}
}
