package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

const (
	loginSettleTimeout = 20 * time.Second
	loginProbeTimeout  = 5 * time.Second
)

// Credentials is a resolved identity/secret pair for one login attempt. The
// secret is resolved from the store immediately before use and never stored
// on the authenticator.
type Credentials struct {
	Username string
	Password string
}

// Authenticator drives a browser page from cold start to a verified login.
// A failed attempt is never retried within a run; the caller reports it and
// skips the account.
type Authenticator struct {
	loginURL    string
	sessions    ports.SessionStore
	codes       ports.CodeChannel
	notifier    ports.Notifier
	clock       ports.Clock
	log         *slog.Logger
	heur        Heuristics
	diagnostics Diagnostics
}

func NewAuthenticator(loginURL string, sessions ports.SessionStore, codes ports.CodeChannel, notifier ports.Notifier, clock ports.Clock, log *slog.Logger, heur Heuristics, diagnostics Diagnostics) *Authenticator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Authenticator{
		loginURL:    loginURL,
		sessions:    sessions,
		codes:       codes,
		notifier:    notifier,
		clock:       clock,
		log:         log,
		heur:        heur,
		diagnostics: diagnostics,
	}
}

// Authenticate restores any stored session, navigates to the portal, and
// logs in when the restored state is not enough. On success the fresh
// session state is persisted and an auth-success event is emitted; on
// failure the account is left for manual attention and a *domain.AuthError
// is returned.
func (a *Authenticator) Authenticate(ctx context.Context, page ports.BrowserPage, account domain.Account, creds Credentials) error {
	if err := a.restoreSession(ctx, page, account.Name); err != nil {
		a.log.Warn("restoring stored session failed, continuing without it", "account", account.Name, "err", err)
	}

	if err := page.Navigate(ctx, a.loginURL); err != nil {
		return a.fail(ctx, page, account.Name, "navigate", err)
	}
	if err := page.WaitSettled(ctx, loginSettleTimeout); err != nil {
		a.log.Debug("portal did not settle in time, probing anyway", "account", account.Name, "err", err)
	}

	// Restored cookies may already satisfy the logged-in check; then the
	// whole credential and code dance is skipped.
	if a.isLoggedIn(ctx, page) {
		a.log.Info("stored session still valid", "account", account.Name)
		return nil
	}

	a.notifier.AuthRequired(ctx, account.Name)

	if err := a.submitCredentials(ctx, page, creds); err != nil {
		return a.fail(ctx, page, account.Name, "credentials", err)
	}

	otpMode, err := a.probeOtp(ctx, page)
	if err != nil {
		return a.fail(ctx, page, account.Name, "otp-probe", err)
	}
	if otpMode != otpNotRequired {
		code, err := a.codes.WaitForCode(ctx)
		if err != nil {
			return a.fail(ctx, page, account.Name, "otp-wait", err)
		}
		if err := a.submitCode(ctx, page, otpMode, code.Code); err != nil {
			return a.fail(ctx, page, account.Name, "otp-submit", err)
		}
	}

	if !a.verifyLogin(ctx, page) {
		return a.fail(ctx, page, account.Name, "verify", errors.New("logged-in indicators absent after login"))
	}

	if err := a.persistSession(ctx, page, account.Name); err != nil {
		// The login itself worked; a failed save only costs the next run a
		// fresh login.
		a.log.Warn("persisting session failed", "account", account.Name, "err", err)
	}

	a.notifier.AuthSuccess(ctx, account.Name)
	return nil
}

func (a *Authenticator) restoreSession(ctx context.Context, page ports.BrowserPage, account domain.AccountName) error {
	session, err := a.sessions.Load(ctx, account)
	if err != nil {
		if errors.Is(err, domain.ErrSessionAbsent) {
			return nil
		}
		return err
	}

	if err := page.SetCookies(ctx, session.Cookies); err != nil {
		return fmt.Errorf("restore cookies: %w", err)
	}
	if len(session.Storage) > 0 {
		if err := page.RestoreStorage(ctx, session.Storage); err != nil {
			return fmt.Errorf("restore client storage: %w", err)
		}
	}
	a.log.Debug("session restored", "account", account, "cookies", len(session.Cookies))
	return nil
}

func (a *Authenticator) isLoggedIn(ctx context.Context, page ports.Page) bool {
	for _, probe := range a.heur.LoggedInProbes {
		states, err := page.Query(ctx, probe)
		if err != nil {
			continue
		}
		for _, state := range states {
			if state.Visible {
				return true
			}
		}
	}
	return false
}

func (a *Authenticator) submitCredentials(ctx context.Context, page ports.Page, creds Credentials) error {
	if err := a.fillFirst(ctx, page, a.heur.UsernameFields, creds.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := a.fillFirst(ctx, page, a.heur.PasswordFields, creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := a.clickFirst(ctx, page, a.heur.SubmitControls); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	// Advance only after the portal acknowledges the submission.
	if err := page.WaitSettled(ctx, loginSettleTimeout); err != nil {
		a.log.Debug("login submission did not settle in time", "err", err)
	}
	return nil
}

type otpMode int

const (
	otpNotRequired otpMode = iota
	otpPerDigit
	otpCombined
)

// probeOtp looks for one-time-code affordances: one field per digit first,
// then a single combined field.
func (a *Authenticator) probeOtp(ctx context.Context, page ports.Page) (otpMode, error) {
	for _, sel := range a.heur.OtpDigitFields {
		states, err := page.Query(ctx, sel)
		if err != nil {
			return otpNotRequired, err
		}
		if len(states) > 1 {
			return otpPerDigit, nil
		}
	}
	for _, sel := range a.heur.OtpCombinedFields {
		states, err := page.Query(ctx, sel)
		if err != nil {
			return otpNotRequired, err
		}
		if len(states) > 0 {
			return otpCombined, nil
		}
	}
	return otpNotRequired, nil
}

func (a *Authenticator) submitCode(ctx context.Context, page ports.Page, mode otpMode, code string) error {
	switch mode {
	case otpPerDigit:
		sel, states, err := a.firstMatch(ctx, page, a.heur.OtpDigitFields)
		if err != nil {
			return err
		}
		if len(states) < len(code) {
			return fmt.Errorf("code has %d digits but the form has %d fields", len(code), len(states))
		}
		for i, digit := range code {
			if err := page.Fill(ctx, sel, i, string(digit)); err != nil {
				return fmt.Errorf("fill code digit %d: %w", i, err)
			}
		}
	case otpCombined:
		if err := a.fillFirst(ctx, page, a.heur.OtpCombinedFields, code); err != nil {
			return fmt.Errorf("fill code field: %w", err)
		}
	default:
		return nil
	}

	if err := a.clickFirst(ctx, page, a.heur.OtpSubmitControls); err != nil {
		return fmt.Errorf("submit code form: %w", err)
	}
	if err := page.WaitSettled(ctx, loginSettleTimeout); err != nil {
		a.log.Debug("code submission did not settle in time", "err", err)
	}
	return nil
}

// verifyLogin re-probes the logged-in indicators, giving the slowest layout
// one bounded wait before deciding.
func (a *Authenticator) verifyLogin(ctx context.Context, page ports.Page) bool {
	if a.isLoggedIn(ctx, page) {
		return true
	}
	for _, probe := range a.heur.LoggedInProbes {
		if err := page.WaitVisible(ctx, probe, loginProbeTimeout); err == nil {
			return true
		}
	}
	return a.isLoggedIn(ctx, page)
}

func (a *Authenticator) persistSession(ctx context.Context, page ports.BrowserPage, account domain.AccountName) error {
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("capture cookies: %w", err)
	}
	storage, err := page.StorageSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("capture client storage: %w", err)
	}
	userAgent, err := page.UserAgent(ctx)
	if err != nil {
		return fmt.Errorf("read user agent: %w", err)
	}

	return a.sessions.Save(ctx, account, domain.Session{
		Cookies:           cookies,
		Storage:           storage,
		LastAuthenticated: a.clock.Now(),
		UserAgent:         userAgent,
	})
}

func (a *Authenticator) fail(ctx context.Context, page ports.Page, account domain.AccountName, stage string, err error) error {
	screenshot := a.diagnostics.Capture(ctx, page, a.log, "auth-"+string(account))
	authErr := &domain.AuthError{Account: account, Stage: stage, Err: err}
	a.notifier.AuthFailure(ctx, account, authErr, screenshot)
	return authErr
}

func (a *Authenticator) fillFirst(ctx context.Context, page ports.Page, selectors []string, value string) error {
	sel, _, err := a.firstMatch(ctx, page, selectors)
	if err != nil {
		return err
	}
	return page.Fill(ctx, sel, 0, value)
}

func (a *Authenticator) clickFirst(ctx context.Context, page ports.Page, selectors []string) error {
	sel, _, err := a.firstMatch(ctx, page, selectors)
	if err != nil {
		return err
	}
	return page.Click(ctx, sel, 0)
}

// firstMatch returns the first selector in the ranked list with at least one
// match on the page.
func (a *Authenticator) firstMatch(ctx context.Context, page ports.Page, selectors []string) (string, []ports.ElementState, error) {
	for _, sel := range selectors {
		states, err := page.Query(ctx, sel)
		if err != nil {
			return "", nil, err
		}
		if len(states) > 0 {
			return sel, states, nil
		}
	}
	return "", nil, fmt.Errorf("no selector matched out of %d candidates", len(selectors))
}
