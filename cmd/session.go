package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lmoreno/railguard/internal/domain"
)

func newSessionCmd(wire func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear stored portal sessions",
	}
	cmd.AddCommand(newSessionShowCmd(wire), newSessionClearCmd(wire))
	return cmd
}

func newSessionShowCmd(wire func() (*app, error)) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored session for one account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wire()
			if err != nil {
				return err
			}

			session, err := app.sessions.Load(cmd.Context(), domain.AccountName(account))
			if err != nil {
				if errors.Is(err, domain.ErrSessionAbsent) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: no stored session\n", account)
					return nil
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: authenticated %s, %d cookies, %d storage keys\n",
				account,
				session.LastAuthenticated.UTC().Format(time.RFC3339),
				len(session.Cookies),
				len(session.Storage))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account name")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newSessionClearCmd(wire func() (*app, error)) *cobra.Command {
	var (
		account string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored sessions, forcing a fresh login on the next run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wire()
			if err != nil {
				return err
			}

			if account == "" && !all {
				return errors.New("pass --account or --all")
			}

			names := []string{account}
			if all {
				names = names[:0]
				for _, a := range app.cfg.Accounts {
					names = append(names, a.Name)
				}
			}

			for _, name := range names {
				if err := app.sessions.Clear(cmd.Context(), domain.AccountName(name)); err != nil {
					return fmt.Errorf("clear session for %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared session for %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account name")
	cmd.Flags().BoolVar(&all, "all", false, "Clear every configured account's session")

	return cmd
}
