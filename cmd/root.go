package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "railguard",
		Short:         "railguard: keep train reservations confirmed across accounts",
		Long:          "railguard logs in to the travel portal for each configured account, reusing stored sessions where possible, harvests pending reservations, and confirms the ones inside their confirmation window.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to railguard.toml (default: ./railguard.toml, then ~/.railguard/railguard.toml)")

	wire := func() (*app, error) { return wireApp(configPath) }

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(wire),
		newAccountsCmd(wire),
		newSessionCmd(wire),
		newSecretCmd(wire),
	)

	return rootCmd
}
