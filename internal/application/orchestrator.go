package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

// PauseRange bounds the randomized pause between reservation confirmations,
// keeping the interaction pattern from looking bursty.
type PauseRange struct {
	Min time.Duration
	Max time.Duration
}

// Orchestrator drives the full per-account workflow: authenticate, harvest,
// confirm. Accounts run strictly sequentially; each needs its own
// authenticated browser context, and concurrent automated sessions against
// the same site invite rate limiting. One account's failure never reaches
// another: every error is converted to that account's result at this
// boundary.
type Orchestrator struct {
	browser   ports.Browser
	secrets   ports.SecretStore
	sessions  ports.SessionStore
	notifier  ports.Notifier
	log       *slog.Logger
	auth      *Authenticator
	harvester *Harvester
	confirmer *Confirmer
	clock     ports.Clock
	pause     PauseRange
	dryRun    bool

	// sleep and intn are injection points for tests.
	sleep func(ctx context.Context, d time.Duration)
	intn  func(n int) int
}

type OrchestratorDeps struct {
	Browser   ports.Browser
	Secrets   ports.SecretStore
	Sessions  ports.SessionStore
	Notifier  ports.Notifier
	Log       *slog.Logger
	Auth      *Authenticator
	Harvester *Harvester
	Confirmer *Confirmer
	Clock     ports.Clock
	Pause     PauseRange
	DryRun    bool
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	return &Orchestrator{
		browser:   deps.Browser,
		secrets:   deps.Secrets,
		sessions:  deps.Sessions,
		notifier:  deps.Notifier,
		log:       deps.Log,
		auth:      deps.Auth,
		harvester: deps.Harvester,
		confirmer: deps.Confirmer,
		clock:     deps.Clock,
		pause:     deps.Pause,
		dryRun:    deps.DryRun,
		sleep:     sleepCtx,
		intn:      rand.Intn,
	}
}

// Run processes every account and always returns one result per input
// account, in input order.
func (o *Orchestrator) Run(ctx context.Context, accounts []domain.Account) []domain.AccountResult {
	o.notifier.Startup(ctx, len(accounts))

	results := make([]domain.AccountResult, 0, len(accounts))
	for _, account := range accounts {
		results = append(results, o.runAccount(ctx, account))
	}

	o.notifier.RunComplete(ctx, results)
	return results
}

// runAccount owns the account's browser context for its whole lifetime and
// releases it whatever happens before the next account starts.
func (o *Orchestrator) runAccount(ctx context.Context, account domain.Account) domain.AccountResult {
	result := domain.AccountResult{Account: account.Name}

	page, release, err := o.browser.NewPage(ctx)
	if err != nil {
		o.log.Error("acquiring browser context failed", "account", account.Name, "err", err)
		result.AuthFailed = true
		result.Error = err.Error()
		return result
	}
	defer release()

	password, err := o.secrets.Get(ctx, account.SecretRef)
	if err != nil {
		err = fmt.Errorf("resolve credential %q: %w", account.SecretRef, err)
		o.log.Error("credential resolution failed", "account", account.Name, "err", err)
		o.notifier.AuthFailure(ctx, account.Name, err, "")
		result.AuthFailed = true
		result.Error = err.Error()
		return result
	}
	creds := Credentials{Username: account.Username, Password: password}

	if err := o.auth.Authenticate(ctx, page, account, creds); err != nil {
		// Authenticate already notified; nothing more to try this run.
		result.AuthFailed = true
		result.Error = err.Error()
		return result
	}

	reservations, err := o.harvest(ctx, page, account, creds)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	o.notifier.ReservationsFound(ctx, account.Name, reservations)

	for i, r := range reservations {
		if i > 0 {
			o.sleep(ctx, o.pauseDuration())
		}
		if o.dryRun {
			o.log.Info("dry run, not confirming", "account", account.Name, "route", r.Route(), "confirmable", r.Confirmable)
			result.Record(domain.ConfirmationResult{Reservation: r, Skipped: true})
			continue
		}
		// The harvester surfaces every reservation; the window decision is
		// made here. Unknown departures stay eligible so an unparsed date
		// never loses a seat.
		if !r.Departure.IsZero() && !r.NeedsConfirmation(o.clock.Now()) {
			o.log.Info("departure outside the confirmation window, skipping",
				"account", account.Name, "route", r.Route(), "departure", r.Departure)
			result.Record(domain.ConfirmationResult{Reservation: r, Skipped: true})
			continue
		}
		result.Record(o.confirmer.Confirm(ctx, page, account.Name, r))
	}

	return result
}

// harvest fetches pending reservations, forcing one re-authentication when
// the restored session turns out to be expired mid-navigation.
func (o *Orchestrator) harvest(ctx context.Context, page ports.BrowserPage, account domain.Account, creds Credentials) ([]domain.Reservation, error) {
	reservations, err := o.harvester.FetchPending(ctx, page)
	if errors.Is(err, domain.ErrSessionExpired) {
		o.log.Warn("session expired mid-run, re-authenticating", "account", account.Name)
		if clearErr := o.sessions.Clear(ctx, account.Name); clearErr != nil {
			o.log.Warn("clearing expired session failed", "account", account.Name, "err", clearErr)
		}
		if authErr := o.auth.Authenticate(ctx, page, account, creds); authErr != nil {
			return nil, authErr
		}
		reservations, err = o.harvester.FetchPending(ctx, page)
	}
	if errors.Is(err, domain.ErrNoReservations) {
		o.log.Warn("page structure yielded no extractable reservations", "account", account.Name)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (o *Orchestrator) pauseDuration() time.Duration {
	if o.pause.Max <= o.pause.Min {
		return o.pause.Min
	}
	return o.pause.Min + time.Duration(o.intn(int(o.pause.Max-o.pause.Min)))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
