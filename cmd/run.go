package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	browseradapter "github.com/lmoreno/railguard/internal/adapters/browser/chromedp"
	"github.com/lmoreno/railguard/internal/adapters/notify"
	"github.com/lmoreno/railguard/internal/adapters/relay"
	"github.com/lmoreno/railguard/internal/adapters/render/summary"
	"github.com/lmoreno/railguard/internal/application"
	"github.com/lmoreno/railguard/internal/config"
	"github.com/lmoreno/railguard/internal/domain"
)

var errRunInProgress = errors.New("a run is already in progress")

func newRunCmd(wire func() (*app, error)) *cobra.Command {
	var (
		onlyAccount string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Authenticate every account and confirm pending reservations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wire()
			if err != nil {
				return err
			}

			accounts, err := selectAccounts(app.cfg, onlyAccount)
			if err != nil {
				return err
			}

			if !app.runState.TryBegin(app.now()) {
				return errRunInProgress
			}
			defer app.runState.End()

			ctx := cmd.Context()
			browser, releaseBrowser, err := browseradapter.New(ctx, browseradapter.Options{
				Headless:  app.cfg.Browser.Headless,
				UserAgent: app.cfg.Browser.UserAgent,
			}, app.log)
			if err != nil {
				return fmt.Errorf("start browser: %w", err)
			}
			defer releaseBrowser()

			codes := &relay.Client{
				URL:          app.cfg.Relay.URL,
				Secret:       app.cfg.Relay.Secret,
				PollInterval: app.cfg.Relay.PollInterval,
				Timeout:      app.cfg.Relay.Timeout,
				Clock:        app.clock,
				Log:          app.log,
			}

			notifier := notify.NewMulti(notify.NewLogNotifier(app.log))
			heur := application.DefaultHeuristics()
			diagnostics := application.Diagnostics{
				Enabled: app.cfg.Browser.ScreenshotOnError,
				Dir:     app.cfg.Browser.ScreenshotDir,
			}

			orchestrator := application.NewOrchestrator(application.OrchestratorDeps{
				Browser:   browser,
				Secrets:   app.secrets,
				Sessions:  app.sessions,
				Notifier:  notifier,
				Log:       app.log,
				Auth:      application.NewAuthenticator(app.cfg.Portal.LoginURL, app.sessions, codes, notifier, app.clock, app.log, heur, diagnostics),
				Harvester: application.NewHarvester(app.cfg.Portal.ReservationsURL, heur, app.clock, app.log),
				Confirmer: application.NewConfirmer(notifier, app.log, heur, diagnostics),
				Clock:     app.clock,
				Pause:     application.PauseRange{Min: app.cfg.Pause.Min, Max: app.cfg.Pause.Max},
				DryRun:    dryRun,
			})

			started := app.now()
			results := orchestrator.Run(ctx, accounts)

			output, err := summary.Render(results, summary.RenderOptions{StartedAt: started, Now: app.now()})
			if err != nil {
				return fmt.Errorf("render run summary: %w", err)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), output); err != nil {
				return err
			}

			return runFailure(results)
		},
	}

	cmd.Flags().StringVar(&onlyAccount, "account", "", "Run a single configured account instead of all")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Harvest and report reservations without confirming")

	return cmd
}

func selectAccounts(cfg *config.Config, only string) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		if only != "" && a.Name != only {
			continue
		}
		accounts = append(accounts, domain.Account{
			Name:      domain.AccountName(a.Name),
			Username:  a.Username,
			SecretRef: a.SecretRef,
		})
	}
	if only != "" && len(accounts) == 0 {
		return nil, fmt.Errorf("account %q is not configured", only)
	}
	return accounts, nil
}

func runFailure(results []domain.AccountResult) error {
	authFailed, confirmFailed := 0, 0
	for _, result := range results {
		if result.AuthFailed {
			authFailed++
		}
		confirmFailed += result.Failed
	}
	if authFailed == 0 && confirmFailed == 0 {
		return nil
	}
	return fmt.Errorf("run finished with failures: %d accounts not authenticated, %d confirmations failed", authFailed, confirmFailed)
}
