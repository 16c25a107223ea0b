// Package app wires configuration, logging, the session file and the
// command tree of the vavmerge CLI.
package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vavmerge/internal/config"
	"vavmerge/internal/session"
	"vavmerge/pkg/logging"
	"vavmerge/pkg/report"
)

// Flags are the persistent flags of the root command.
type Flags struct {
	ConfigFile string
	LogLevel   string
	Verbose    bool
	Quiet      bool
	NoColor    bool
	Output     string
	SessionDir string
}

// App is the CLI application.
type App struct {
	version string
	commit  string

	flags  Flags
	config *config.Config
	logger zerolog.Logger

	out    io.Writer
	errOut io.Writer
}

// New creates the application writing to stdout and stderr.
func New(version, commit string) *App {
	return &App{
		version: version,
		commit:  commit,
		config:  config.Default(),
		logger:  zerolog.Nop(),
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
}

// SetOutput redirects command output and errors.
func (a *App) SetOutput(out, errOut io.Writer) {
	a.out = out
	a.errOut = errOut
}

// Execute runs the command tree with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.Root()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

// Root builds the command tree.
func (a *App) Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "vavmerge",
		Short: "Reconcile VAV schedules against the equipment database",
		Long: `vavmerge reads VAV equipment schedules from spreadsheets and from the
single-file equipment database, compares design capacities against the
database's calculated values, and writes mapped schedule fields back to the
database after taking a timestamped backup.`,
		Version:           a.version + " (" + a.commit + ")",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigFile, "config", "", "config file (default is $HOME/.vavmerge.yaml)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	pf.BoolVarP(&a.flags.Quiet, "quiet", "q", false, "quiet output (warnings and errors only)")
	pf.BoolVar(&a.flags.NoColor, "no-color", false, "disable colored log output")
	pf.StringVarP(&a.flags.Output, "output", "o", "", "output format: table, json, yaml")
	pf.StringVar(&a.flags.SessionDir, "session-dir", "", "directory holding the session file")

	root.AddGroup(
		&cobra.Group{ID: "read", Title: "Read Commands:"},
		&cobra.Group{ID: "write", Title: "Write Commands:"},
	)
	root.AddCommand(
		a.scheduleCommand(),
		a.headersCommand(),
		a.dbCommand(),
		a.compareCommand(),
		a.projectCommand(),
		a.applyCommand(),
		a.hwRowsCommand(),
		a.sessionCommand(),
	)
	return root
}

// setup loads configuration, applies flag overrides and installs the logger
// in the command context.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags.ConfigFile)
	if err != nil {
		return err
	}
	if a.flags.Output != "" {
		if _, err := report.ParseFormat(a.flags.Output); err != nil {
			return err
		}
		cfg.Output.Format = a.flags.Output
	}
	if a.flags.SessionDir != "" {
		cfg.Session.Dir = a.flags.SessionDir
	}
	a.config = cfg

	a.logger = NewLogger(cfg, a.flags)
	ctx := logging.WithLogger(cmd.Context(), &a.logger)
	cmd.SetContext(ctx)

	a.logger.Debug().Str("config_file", cfg.ConfigFile).Str("session_dir", cfg.Session.Dir).Msg("Configuration loaded")
	return nil
}

// render writes data in the configured format.
func (a *App) render(data any) error {
	return report.NewFormatter(report.DetectFormat(a.config.Output.Format)).Format(a.out, data)
}

func (a *App) loadSession() (*session.Session, error) {
	return session.Load(a.config.Session.Dir)
}

func (a *App) saveSession(s *session.Session) error {
	return session.Save(a.config.Session.Dir, s)
}
