package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSecretCmd(wire func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage stored portal credentials",
	}
	cmd.AddCommand(newSecretSetCmd(wire))
	return cmd
}

func newSecretSetCmd(wire func() (*app, error)) *cobra.Command {
	var (
		ref   string
		value string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a credential under its secret reference",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wire()
			if err != nil {
				return err
			}

			if err := app.secrets.Put(cmd.Context(), ref, value); err != nil {
				return fmt.Errorf("store secret %q: %w", ref, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored secret %s\n", ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Secret reference, e.g. railguard/ana/password")
	cmd.Flags().StringVar(&value, "value", "", "Secret value")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
