package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// whoamiCmd shows the owner of the stored access token.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account of the stored access token",
	Long: `The whoami command checks the stored token against the Asana API and prints
its owner. A token Asana rejects is removed. When the API cannot be reached the
identity cached at login is shown instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		svc, err := newAuthService()
		if err != nil {
			return err
		}
		st, online, err := svc.WhoAmI(ctx)
		if err != nil {
			return err
		}
		if !st.LoggedIn {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'asana2sql login' to get started.")
			return nil
		}

		fmt.Printf("👤 Current user: %s", st.Account)
		if st.Email != "" {
			fmt.Printf(" <%s>", st.Email)
		}
		fmt.Println()
		if len(st.Workspaces) > 0 {
			fmt.Printf("   Workspaces: %s\n", strings.Join(st.Workspaces, ", "))
		}
		if !online {
			fmt.Println("   (offline: showing the identity cached at login)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
