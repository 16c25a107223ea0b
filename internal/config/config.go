// Package config loads vavmerge settings from defaults, .env files, an
// optional YAML config file and VAVMERGE_ environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"vavmerge/pkg/engine"
	"vavmerge/pkg/errors"
	"vavmerge/pkg/parser"
	"vavmerge/pkg/report"
	"vavmerge/pkg/store"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VAVMERGE"

// Config is the resolved configuration.
type Config struct {
	Schedule parser.Options    `mapstructure:"schedule" yaml:"schedule"`
	Compare  engine.Thresholds `mapstructure:"compare" yaml:"compare"`
	Store    StoreConfig       `mapstructure:"store" yaml:"store"`
	Session  SessionConfig     `mapstructure:"session" yaml:"session"`
	Log      LogConfig         `mapstructure:"log" yaml:"log"`
	Output   OutputConfig      `mapstructure:"output" yaml:"output"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// StoreConfig configures database access.
type StoreConfig struct {
	Table        string        `mapstructure:"table" yaml:"table"`
	ProjectTable string        `mapstructure:"project_table" yaml:"project_table"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Drivers      []string      `mapstructure:"drivers" yaml:"drivers"`
}

// SessionConfig locates the CLI session file.
type SessionConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LogConfig is the logging section. An empty level defers to the CLI flags.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// OutputConfig selects the report format; empty means auto-detect.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
}

func setDefaults(v *viper.Viper) {
	sched := parser.DefaultOptions()
	v.SetDefault("schedule.data_start_row", sched.DataStartRow)
	v.SetDefault("schedule.header_rows", sched.HeaderRows)
	v.SetDefault("schedule.skip_title_row", sched.SkipTitleRow)

	th := engine.DefaultThresholds()
	v.SetDefault("compare.lower_margin", th.LowerMargin)
	v.SetDefault("compare.upper_margin", th.UpperMargin)
	v.SetDefault("compare.wpd_threshold", th.WPD)
	v.SetDefault("compare.apd_threshold", th.APD)

	st := store.DefaultOptions()
	names := make([]string, 0, len(st.Strategies))
	for _, s := range st.Strategies {
		names = append(names, s.Name)
	}
	v.SetDefault("store.table", st.Table)
	v.SetDefault("store.project_table", st.ProjectTable)
	v.SetDefault("store.timeout", st.Timeout)
	v.SetDefault("store.drivers", names)

	v.SetDefault("session.dir", defaultSessionDir())
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("output.format", "")
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vavmerge"
	}
	return filepath.Join(home, ".vavmerge")
}

// loadEnvFiles loads .env then .env.local. Variables already set win.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// Load resolves the configuration. When configFile is empty, .vavmerge.yaml
// is looked up in the home directory and then the working directory, and a
// missing file is not an error.
func Load(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// LOG_LEVEL is honoured without the prefix as well.
	_ = v.BindEnv("log.level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewReadError(configFile, "config", err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".vavmerge")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewReadError(v.ConfigFileUsed(), "config", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewValidationError("config", nil, err.Error())
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	st := store.DefaultOptions()
	cfg := &Config{
		Schedule: parser.DefaultOptions(),
		Compare:  engine.DefaultThresholds(),
		Store: StoreConfig{
			Table:        st.Table,
			ProjectTable: st.ProjectTable,
			Timeout:      st.Timeout,
		},
		Session: SessionConfig{Dir: defaultSessionDir()},
		Log:     LogConfig{Format: "auto", Output: "stderr"},
	}
	for _, s := range st.Strategies {
		cfg.Store.Drivers = append(cfg.Store.Drivers, s.Name)
	}
	return cfg
}

var validLogLevels = map[string]bool{
	"": true, "trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	if err := c.Compare.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Store.Table) == "" {
		return errors.NewValidationError("store.table", c.Store.Table, "must not be empty")
	}
	if strings.TrimSpace(c.Store.ProjectTable) == "" {
		return errors.NewValidationError("store.project_table", c.Store.ProjectTable, "must not be empty")
	}
	if c.Store.Timeout < 0 {
		return errors.NewValidationError("store.timeout", c.Store.Timeout, "must not be negative")
	}
	if len(c.Store.Drivers) == 0 {
		return errors.NewValidationError("store.drivers", c.Store.Drivers, "at least one driver is required")
	}
	if _, err := store.StrategiesByName(c.Store.Drivers); err != nil {
		return err
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return errors.NewValidationError("log.level", c.Log.Level, "must be one of trace, debug, info, warn, error")
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return errors.NewValidationError("output.format", c.Output.Format, err.Error())
	}
	return nil
}

// StoreOptions converts the store section for the store package.
func (c *Config) StoreOptions() (store.Options, error) {
	strategies, err := store.StrategiesByName(c.Store.Drivers)
	if err != nil {
		return store.Options{}, err
	}
	return store.Options{
		Table:        c.Store.Table,
		ProjectTable: c.Store.ProjectTable,
		Strategies:   strategies,
		Timeout:      c.Store.Timeout,
		Now:          time.Now,
	}, nil
}
