// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"asana2sql/cli/internal/auth"
	apperrors "asana2sql/cli/internal/errors"
	"asana2sql/cli/internal/keychain"

	"github.com/spf13/cobra"
)

var logoutAll bool

// logoutCmd removes stored credentials from the keychain.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored access token",
	Long: `The logout command removes the access token and cached identity from the OS
keychain. With --all the stored database DSN is removed as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return apperrors.Wrap(apperrors.SecretsUnavailable, "open keychain", err)
		}
		err = auth.NewService(km, nil).Logout()
		if err == nil && logoutAll {
			err = km.ClearDB()
		}
		if err != nil {
			return apperrors.Wrap(apperrors.SecretsUnavailable, "clear keychain", err)
		}
		fmt.Println("👋 Logged out")
		return nil
	},
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "also remove the stored database DSN")
	rootCmd.AddCommand(logoutCmd)
}
