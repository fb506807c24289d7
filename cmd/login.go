// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/auth"
	apperrors "asana2sql/cli/internal/errors"
	"asana2sql/cli/internal/httperrors"
	"asana2sql/cli/internal/keychain"
	"asana2sql/cli/internal/terminal"

	"github.com/spf13/cobra"
)

// loginCmd stores a personal access token in the OS keychain.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Store an Asana personal access token in the OS keychain",
	Long: `The login command validates a personal access token against GET /users/me and
stores it in the OS keychain together with the owner's name and workspaces.

The token is read from --access-token, ASANA2SQL_ASANA_ACCESS_TOKEN, or an
interactive prompt that does not echo input. Create tokens under
My Settings > Apps > Developer apps in Asana.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		svc, err := newAuthService()
		if err != nil {
			return err
		}

		token := cfg.Asana.AccessToken
		if token == "" {
			prompt := "Asana personal access token: "
			token, err = terminal.ReadSecret(prompt)
			if err != nil {
				return apperrors.Wrap(apperrors.ConfigInvalid, "read token", err)
			}
		}
		if token == "" {
			return apperrors.Wrap(apperrors.ConfigInvalid, "login", auth.ErrNoToken)
		}

		stop := startInlineSpinner(os.Stdout, "Validating token", 100*time.Millisecond)
		me, err := svc.Login(ctx, token)
		stop()
		if err != nil {
			if errors.Is(err, asana.ErrUnauthorized) {
				fmt.Println("❌ Asana rejected this token. Check that it was copied completely.")
				return apperrors.Wrap(apperrors.RemoteFailed, "login", err)
			}
			return apperrors.Wrap(apperrors.RemoteFailed, "login",
				httperrors.FormatNetworkError(err, "validating the token", cfg.Asana.BaseURL))
		}

		fmt.Printf("✅ Logged in as %s", me.Name)
		if me.Email != "" {
			fmt.Printf(" <%s>", me.Email)
		}
		fmt.Println()
		return nil
	},
}

// newAuthService opens the keychain and returns a Service backed by it.
func newAuthService() (*auth.Service, error) {
	km, err := keychain.GetManager()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.SecretsUnavailable, "open keychain", err)
	}
	return auth.NewService(km, func(token string) auth.Identity { return newAsanaClient(token) }), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
