// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/auth"
	"asana2sql/cli/internal/db"
	apperrors "asana2sql/cli/internal/errors"
	"asana2sql/cli/internal/fields"
	"asana2sql/cli/internal/httperrors"
	"asana2sql/cli/internal/keychain"
	"asana2sql/cli/internal/project"
	"asana2sql/cli/internal/report"
	"asana2sql/cli/internal/terminal"
	"asana2sql/cli/internal/workspace"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	commandCreate      = "create"
	commandExport      = "export"
	commandSynchronize = "synchronize"
)

var createCmd = &cobra.Command{
	Use:   commandCreate,
	Short: "Create the project table and the enabled workspace tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProject(cmd, commandCreate)
	},
}

var exportCmd = &cobra.Command{
	Use:   commandExport,
	Short: "Insert or update every task of the project; never delete rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProject(cmd, commandExport)
	},
}

var synchronizeCmd = &cobra.Command{
	Use:     commandSynchronize,
	Aliases: []string{"sync"},
	Short:   "Export every task, then delete rows of tasks removed from the project",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProject(cmd, commandSynchronize)
	},
}

func init() {
	rootCmd.AddCommand(createCmd, exportCmd, synchronizeCmd)
}

// workspaceTables maps the configured auxiliary table names to workspace keys.
func workspaceTables() workspace.Tables {
	return workspace.Tables{
		workspace.Projects:              cfg.Tables.Projects,
		workspace.ProjectMemberships:    cfg.Tables.ProjectMemberships,
		workspace.Users:                 cfg.Tables.Users,
		workspace.Followers:             cfg.Tables.Followers,
		workspace.CustomFields:          cfg.Tables.CustomFields,
		workspace.CustomFieldEnumValues: cfg.Tables.CustomFieldEnumValues,
		workspace.CustomFieldValues:     cfg.Tables.CustomFieldValues,
	}
}

// newAsanaClient builds the API client for token from the current config.
func newAsanaClient(token string) *asana.Client {
	return asana.New(asana.Options{
		BaseURL:     cfg.Asana.BaseURL,
		AccessToken: token,
		NoVerify:    cfg.Asana.NoVerify,
		DumpAPI:     cfg.Asana.DumpAPI,
		DumpTo:      os.Stdout,
		Timeout:     cfg.Asana.Timeout,
		UserAgent:   "asana2sql/" + Version,
	})
}

// resolveDSN returns the database DSN and where it came from: the --dsn flag or
// config, DATABASE_URL, then the keychain. An empty DSN is not an error.
func resolveDSN() (string, string, error) {
	if cfg.DB.DSN != "" {
		return cfg.DB.DSN, "configuration", nil
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env, "DATABASE_URL", nil
	}
	km, err := keychain.GetManager()
	if err != nil {
		logger.Debug("keychain unavailable", logger.Args("error", err.Error()))
		return "", "", nil
	}
	stored, err := km.LoadDBDSN()
	if errors.Is(err, keychain.ErrNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.SecretsUnavailable, "read DSN from keychain", err)
	}
	return stored, "keychain", nil
}

// resolveToken returns the access token from flags, env, config or keychain.
func resolveToken() (string, error) {
	if cfg.Asana.AccessToken != "" {
		return cfg.Asana.AccessToken, nil
	}
	var store auth.Store
	if km, err := keychain.GetManager(); err == nil {
		store = km
	} else {
		logger.Debug("keychain unavailable", logger.Args("error", err.Error()))
	}
	svc := auth.NewService(store, func(token string) auth.Identity { return newAsanaClient(token) })
	token, err := svc.ResolveToken(cfg.Asana.AccessToken)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ConfigInvalid, "resolve access token", err)
	}
	return token, nil
}

// runProject executes create, export or synchronize for the configured project
// inside one transaction.
func runProject(cmd *cobra.Command, command string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.ValidateProject(); err != nil {
		return apperrors.Wrap(apperrors.ConfigInvalid, "invalid configuration", err)
	}
	token, err := resolveToken()
	if err != nil {
		return err
	}
	client := newAsanaClient(token)

	rawDSN, source, err := resolveDSN()
	if err != nil {
		return err
	}
	if rawDSN == "" && !cfg.DB.Dry {
		return apperrors.Wrap(apperrors.ConfigInvalid, "resolve database", db.ErrNoConnection)
	}

	rep := report.New(command, cfg.ProjectID)
	rep.Dry = cfg.DB.Dry

	var conn db.Conn
	if rawDSN != "" {
		logger.Debug("opening database", logger.Args("source", source))
		rep.Start("connect")
		c, info, openErr := db.Open(ctx, rawDSN)
		if openErr != nil {
			rep.Fail("connect", openErr)
			return apperrors.Wrap(apperrors.DatabaseFailed, "open database", openErr)
		}
		rep.Done("connect")
		logger.Debug("database opened", logger.Args("kind", string(info.Kind)))
		conn = c
	}
	wrapper := db.NewWrapper(conn, db.Options{Dry: cfg.DB.Dry, Dump: cfg.DB.DumpSQL})
	defer func() {
		if cerr := wrapper.Close(); cerr != nil && err == nil {
			err = apperrors.Wrap(apperrors.DatabaseFailed, "close database", cerr)
		}
	}()

	ws := workspace.New(wrapper, workspaceTables())
	proj, err := project.New(client, wrapper,
		project.Config{ProjectID: cfg.ProjectID, TableName: cfg.TableName},
		fields.DefaultFields(ws),
		project.WithLogger(logger),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ConfigInvalid, "configure fields", err)
	}

	var spin *areaSpinner
	if showProgress() {
		spin = startAreaSpinner(func() string { return progressText(rep) }, 120*time.Millisecond)
	}
	res, runErr := execute(ctx, command, proj, ws, wrapper, rep)
	spin.Stop()
	rep.Finish()

	if runErr != nil {
		if cfg.DumpPerf && rep.Failed() {
			if err := rep.Render(os.Stdout); err != nil {
				logger.Warn("render report", logger.Args("error", err.Error()))
			}
		}
		return classify(runErr)
	}

	rep.SetResult(res.Upserted, res.Deleted)
	printSummary(command, rep, ws, res)
	if cfg.DumpPerf {
		st := wrapper.Stats()
		rep.SetCounters(report.Counters{
			APIRequests: client.NumRequests(),
			DBReads:     st.Reads,
			DBWrites:    st.Writes,
			DBExecuted:  st.Executed,
		})
		if err := rep.Render(os.Stdout); err != nil {
			logger.Warn("render report", logger.Args("error", err.Error()))
		}
	}
	return nil
}

// execute runs the phases of command and commits.
func execute(ctx context.Context, command string, proj *project.Project, ws *workspace.Workspace, wrapper *db.Wrapper, rep *report.Report) (project.Result, error) {
	var res project.Result

	phase := func(name string, fn func() error) error {
		rep.Start(name)
		if err := fn(); err != nil {
			rep.Fail(name, err)
			return err
		}
		rep.Done(name)
		return nil
	}

	if err := phase("fetch project", func() error {
		if _, err := proj.ProjectData(ctx); err != nil {
			return err
		}
		table, err := proj.TableName(ctx)
		rep.Table = table
		return err
	}); err != nil {
		return res, err
	}

	switch command {
	case commandCreate:
		if err := phase("create tables", func() error {
			if err := proj.CreateTable(ctx); err != nil {
				return err
			}
			return ws.CreateTables(ctx)
		}); err != nil {
			return res, err
		}
	case commandExport, commandSynchronize:
		if err := phase("fetch tasks", func() error {
			_, err := proj.Tasks(ctx)
			return err
		}); err != nil {
			return res, err
		}
		if err := phase(command, func() error {
			var err error
			if command == commandExport {
				res, err = proj.Export(ctx)
			} else {
				res, err = proj.Synchronize(ctx)
			}
			return err
		}); err != nil {
			return res, err
		}
		if ws.Tracks(workspace.Projects) {
			if err := phase("record project", func() error {
				data, err := proj.ProjectData(ctx)
				if err != nil {
					return err
				}
				return ws.AddProject(ctx, data, rep.Table)
			}); err != nil {
				return res, err
			}
		}
	default:
		return res, fmt.Errorf("unknown command %q", command)
	}

	if err := phase("commit", func() error { return wrapper.Commit(ctx) }); err != nil {
		return res, err
	}
	return res, nil
}

// classify wraps err with the kind matching where it originated. Network and
// API failures also print an explanation. Errors of unknown origin are returned
// unchanged.
func classify(err error) error {
	var (
		notFound *project.ProjectNotFoundError
		apiErr   *asana.APIError
		urlErr   *url.Error
		decErr   *asana.DecodeError
		stmtErr  *db.StatementError
	)
	switch {
	case errors.As(err, &notFound):
		return apperrors.Wrap(apperrors.ProjectNotFound, "fetch project", err)
	case errors.As(err, &apiErr), errors.As(err, &urlErr):
		return apperrors.Wrap(apperrors.RemoteFailed, "asana api",
			httperrors.FormatNetworkError(err, "talking to Asana", cfg.Asana.BaseURL))
	case errors.As(err, &decErr):
		return apperrors.Wrap(apperrors.RemoteFailed, "unexpected response from Asana", err)
	case errors.As(err, &stmtErr), errors.Is(err, db.ErrNoConnection):
		return apperrors.Wrap(apperrors.DatabaseFailed, "database", err)
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(apperrors.RemoteFailed, "interrupted", err)
	default:
		return err
	}
}

// showProgress reports whether the spinner may draw without corrupting
// dumped output or debug logs.
func showProgress() bool {
	if !terminal.IsInteractive() {
		return false
	}
	if cfg.Asana.DumpAPI || cfg.DB.DumpSQL {
		return false
	}
	return cfg.Log.File != "" || (cfg.Log.Level != "debug" && cfg.Log.Level != "trace")
}

func progressText(rep *report.Report) string {
	name := "Starting"
	for _, p := range rep.Phases() {
		if p.State == report.PhaseRunning {
			name = p.Name
		}
	}
	return fmt.Sprintf("%s (%s)", name, rep.Elapsed().Round(time.Second))
}

func printSummary(command string, rep *report.Report, ws *workspace.Workspace, res project.Result) {
	suffix := ""
	if rep.Dry {
		suffix = " (dry run, nothing committed)"
	}
	switch command {
	case commandCreate:
		pterm.Success.Printfln("Created table %s%s", rep.Table, suffix)
		for _, key := range workspace.Keys() {
			if ws.Tracks(key) {
				pterm.Info.Printfln("%s table: %s", key, ws.TableName(key))
			}
		}
	case commandExport:
		pterm.Success.Printfln("Exported %d tasks to %s%s", res.Upserted, rep.Table, suffix)
	default:
		pterm.Success.Printfln("Synchronized %s: %d upserted, %d deleted%s", rep.Table, res.Upserted, res.Deleted, suffix)
	}
}
