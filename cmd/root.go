// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface of asana2sql. Every setting can
// come from a flag, an ASANA2SQL_* environment variable or the config file, in
// that order of precedence; secrets fall back to the OS keychain.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"asana2sql/cli/internal/config"
	apperrors "asana2sql/cli/internal/errors"
	"asana2sql/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v          = viper.New()
	cfg        config.Config
	configFile string
	verbose    bool

	logger    = logging.Discard()
	logCloser io.Closer
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "asana2sql",
	Short: "Mirror the tasks of an Asana project into a SQL table",
	Long: `asana2sql copies the tasks of one Asana project, sub-tasks included, into a
PostgreSQL or SQLite table.

  create        create the project table and the enabled workspace tables
  export        insert or update every task; rows of removed tasks are kept
  synchronize   insert or update every task, then delete rows of removed tasks

All statements of a run execute in one transaction committed at the end.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, configFile)
		if err != nil {
			return apperrors.Wrap(apperrors.ConfigInvalid, "load configuration", err)
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger, logCloser, err = logging.New(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			return apperrors.Wrap(apperrors.ConfigInvalid, "configure logging", err)
		}
		logger.Debug("configuration loaded", logger.Args("project_id", cfg.ProjectID, "base_url", cfg.Asana.BaseURL))
		return nil
	},
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		pterm.Error.Println(logging.PresentError("", err))
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error kind to the process exit status.
func exitCode(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.ConfigInvalid:
		return 2
	case apperrors.ProjectNotFound:
		return 3
	case apperrors.RemoteFailed:
		return 4
	case apperrors.DatabaseFailed:
		return 5
	default:
		return 1
	}
}

// flagBindings maps each persistent flag to its configuration key.
var flagBindings = map[string]string{
	"project-id":                          "project_id",
	"table-name":                          "table_name",
	"dump-perf":                           "dump_perf",
	"projects-table-name":                 "tables.projects",
	"project-memberships-table-name":      "tables.project_memberships",
	"users-table-name":                    "tables.users",
	"followers-table-name":                "tables.followers",
	"custom-fields-table-name":            "tables.custom_fields",
	"custom-field-enum-values-table-name": "tables.custom_field_enum_values",
	"custom-field-values-table-name":      "tables.custom_field_values",
	"access-token":                        "asana.access_token",
	"base-url":                            "asana.base_url",
	"no-verify":                           "asana.no_verify",
	"dump-api":                            "asana.dump_api",
	"timeout":                             "asana.timeout",
	"dsn":                                 "db.dsn",
	"dump-sql":                            "db.dump_sql",
	"dry":                                 "db.dry",
	"log-level":                           "log.level",
	"log-file":                            "log.file",
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/asana2sql/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level debug")

	pf.String("project-id", "", "Asana project gid")
	pf.String("table-name", "", "SQL table for tasks (default: derived from the project name)")
	pf.Bool("dump-perf", false, "print performance information on completion")

	pf.String("projects-table-name", "", "table recording synchronized projects")
	pf.String("project-memberships-table-name", "", "table of task project/section memberships")
	pf.String("users-table-name", "", "table of users (assignees and followers)")
	pf.String("followers-table-name", "", "table of task followers")
	pf.String("custom-fields-table-name", "", "table of custom field definitions")
	pf.String("custom-field-enum-values-table-name", "", "table of custom field enum options")
	pf.String("custom-field-values-table-name", "", "table of task custom field values")

	pf.String("access-token", "", "Asana personal access token (default: keychain)")
	pf.String("base-url", config.DefaultBaseURL, "URL of the Asana API")
	pf.Bool("no-verify", false, "turn off HTTPS certificate verification")
	pf.Bool("dump-api", false, "print every API request")
	pf.Duration("timeout", 0, "timeout of a single API request (default 30s)")

	pf.String("dsn", "", "database DSN: postgres://... or a SQLite file (default: DATABASE_URL, then keychain)")
	pf.Bool("dump-sql", false, "print every SQL statement")
	pf.Bool("dry", false, "do not execute writes or commit")

	pf.String("log-level", "info", "log level: trace, debug, info, warn, error, off")
	pf.String("log-file", "", "write JSON logs to this file instead of stderr")

	for flag, key := range flagBindings {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", flag, err))
		}
	}

	rootCmd.SetVersionTemplate("asana2sql {{.Version}}\n")
}
