// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"asana2sql/cli/internal/dsn"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// dbinfoCmd shows the database the next run will use, password masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the current database connection",
	Long: `The dbinfo command displays the DSN the next run will use, taken from --dsn,
ASANA2SQL_DB_DSN, the config file, DATABASE_URL or the OS keychain, with the
password replaced by ***.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, source, err := resolveDSN()
		if err != nil {
			return err
		}
		if raw == "" {
			pterm.Println("⚠️  No database connection configured")
			pterm.Println("   Pass --dsn, set DATABASE_URL, or run: asana2sql connect")
			return nil
		}

		body := maskPassword(raw)
		if info, err := dsn.Parse(raw); err == nil {
			body = describeDSN(info, body)
		}
		pterm.Printfln("Using DSN from %s", source)
		pterm.Println()
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connection")).
			WithPadding(1).
			Println(body)
		pterm.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}

func describeDSN(info *dsn.Info, masked string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nkind: %s", masked, info.Kind)
	switch info.Kind {
	case dsn.KindPostgres:
		fmt.Fprintf(&b, "\nhost: %s", info.Host)
		if info.Port != "" {
			fmt.Fprintf(&b, ":%s", info.Port)
		}
		fmt.Fprintf(&b, "\ndatabase: %s", info.Database)
		if info.User != "" {
			fmt.Fprintf(&b, "\nuser: %s", info.User)
		}
	case dsn.KindSQLite:
		fmt.Fprintf(&b, "\nfile: %s", info.Path)
	}
	return b.String()
}

// maskPassword replaces the password in a URL-style DSN with ***.
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || strings.Count(raw, "@") > 1 {
		return maskPasswordSimple(raw)
	}
	if u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	return strings.Replace(u.Redacted(), ":xxxxx@", ":***@", 1)
}

// maskPasswordSimple masks user:password@ in DSNs that don't parse as URLs.
func maskPasswordSimple(raw string) string {
	at := strings.LastIndex(raw, "@")
	if at == -1 {
		return raw
	}
	before := raw[:at]
	start := 0
	if p := strings.Index(before, "://"); p != -1 {
		start = p + 3
	}
	colon := strings.Index(before[start:], ":")
	if colon == -1 {
		return raw
	}
	colon += start
	return raw[:colon+1] + "***" + raw[at:]
}
