package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lmoreno/railguard/internal/domain"
)

func newAccountsCmd(wire func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts and their stored session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wire()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "accounts: %d\n", len(app.cfg.Accounts))
			for _, account := range app.cfg.Accounts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n",
					account.Name, account.Username, sessionLabel(cmd, app, domain.AccountName(account.Name)))
			}
			return nil
		},
	}
}

func sessionLabel(cmd *cobra.Command, app *app, account domain.AccountName) string {
	session, err := app.sessions.Load(cmd.Context(), account)
	if err != nil {
		if errors.Is(err, domain.ErrSessionAbsent) {
			return "no stored session"
		}
		return fmt.Sprintf("session unreadable: %v", err)
	}
	return fmt.Sprintf("session from %s", session.LastAuthenticated.UTC().Format(time.RFC3339))
}
