package app

import (
	"github.com/spf13/cobra"

	"vavmerge/internal/session"
	"vavmerge/pkg/report"
	"vavmerge/pkg/schema"
)

func (a *App) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show or change the saved working set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(a.sessionShowCommand(), a.sessionResetCommand(), a.sessionSetCommand())
	return cmd
}

// sessionView renders a session; tables fall back to key/value rows.
type sessionView struct {
	session.Session `yaml:",inline"`
}

func (v sessionView) Tables() []report.Data {
	s := &v.Session
	d := report.Data{
		Title:   "Session " + s.ID,
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Schedule", s.ExcelFile},
			{"Store", s.StoreFile},
			{"Original store", s.OriginalStorePath},
			{"Working copy", s.UpdatedStorePath},
			{"Last backup", s.LastBackup},
		},
	}
	tables := []report.Data{d}
	if len(s.Mapping) > 0 {
		m := report.Data{Title: "Mapping", Headers: []string{"Target", "Source"}}
		for _, t := range s.Mapping.Targets() {
			m.Rows = append(m.Rows, []string{t, s.Mapping[t]})
		}
		tables = append(tables, m)
	}
	return tables
}

func (a *App) sessionShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			return a.render(sessionView{*sess})
		},
	}
}

func (a *App) sessionResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the loaded files and mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := session.Reset(a.config.Session.Dir); err != nil {
				return err
			}
			a.logger.Info().Str("dir", a.config.Session.Dir).Msg("Session reset")
			return nil
		},
	}
}

func (a *App) sessionSetCommand() *cobra.Command {
	var (
		excel    string
		storeArg string
		working  string
		mappings []string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set session files or mapping without reading them",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sess, err := a.loadSession()
			if err != nil {
				return err
			}
			if excel != "" {
				sess.SetExcel(excel, nil)
			}
			if storeArg != "" {
				sess.SetStore(storeArg, nil)
			}
			if working != "" {
				sess.UpdatedStorePath = session.SanitizePath(working)
			}
			if len(mappings) > 0 {
				m, err := schema.ParseMappingPairs(mappings)
				if err != nil {
					return err
				}
				sess.Mapping = m
			}
			if err := a.saveSession(sess); err != nil {
				return err
			}
			return a.render(sessionView{*sess})
		},
	}
	cmd.Flags().StringVar(&excel, "schedule", "", "schedule spreadsheet path")
	cmd.Flags().StringVar(&storeArg, "store", "", "database path")
	cmd.Flags().StringVar(&working, "working-copy", "", "working copy of the database")
	cmd.Flags().StringArrayVar(&mappings, "map", nil, "TARGET=SOURCE field mapping (repeatable)")
	return cmd
}
