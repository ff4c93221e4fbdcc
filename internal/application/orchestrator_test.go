package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmoreno/railguard/internal/domain"
)

type orchestratorHarness struct {
	orch     *Orchestrator
	browser  *fakeBrowser
	sessions *memorySessionStore
	notifier *recordingNotifier
	sleeps   []time.Duration
}

func newOrchestratorHarness(t *testing.T, browser *fakeBrowser, secrets memorySecretStore, opts ...func(*OrchestratorDeps)) *orchestratorHarness {
	t.Helper()

	h := &orchestratorHarness{
		browser:  browser,
		sessions: newMemorySessionStore(),
		notifier: &recordingNotifier{},
	}
	log := discardLogger()
	// The first fixture trip departs within 48 hours of this instant; the
	// later ones do not.
	clock := harvestClock{now: time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)}
	heur := DefaultHeuristics()
	diag := Diagnostics{}

	deps := OrchestratorDeps{
		Browser:   browser,
		Secrets:   secrets,
		Sessions:  h.sessions,
		Notifier:  h.notifier,
		Log:       log,
		Auth:      NewAuthenticator(loginURL, h.sessions, &fakeCodeChannel{code: "111111"}, h.notifier, clock, log, heur, diag),
		Harvester: NewHarvester(reservationsURL, heur, clock, log),
		Confirmer: NewConfirmer(h.notifier, log, heur, diag),
		Clock:     clock,
		Pause:     PauseRange{Min: 2 * time.Second, Max: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	h.orch = NewOrchestrator(deps)
	h.orch.sleep = func(_ context.Context, d time.Duration) { h.sleeps = append(h.sleeps, d) }
	h.orch.intn = func(int) int { return 0 }
	return h
}

// loggedInTripPage is a page whose stored session is still valid and whose
// reservations view carries the three-trip fixture.
func loggedInTripPage() *fakePage {
	page := newFakePage()
	page.html = tripListHTML
	page.elements[`a[href*="logout"]`] = visible(1)
	page.elements["button"] = visible(4)
	page.onClick = func(f *fakePage, sel string, index int) {
		if sel == "button" {
			f.elements["button"][index].Disabled = true
		}
	}
	return page
}

func testSecrets() memorySecretStore {
	return memorySecretStore{
		"railguard/ana/password":  "pw-ana",
		"railguard/luis/password": "pw-luis",
	}
}

func TestRunConfirmsAcrossAccounts(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{pages: []*fakePage{loggedInTripPage(), loggedInTripPage()}}
	h := newOrchestratorHarness(t, browser, testSecrets())

	accounts := []domain.Account{
		{Name: "ana", Username: "ana@example.com", SecretRef: "railguard/ana/password"},
		{Name: "luis", Username: "luis@example.com", SecretRef: "railguard/luis/password"},
	}
	results := h.orch.Run(context.Background(), accounts)

	require.Len(t, results, 2)
	for i, result := range results {
		assert.Equal(t, accounts[i].Name, result.Account)
		assert.False(t, result.AuthFailed)
		assert.Equal(t, 1, result.Confirmed, "only the trip inside the confirmation window is confirmed")
		assert.Equal(t, 2, result.Skipped, "the later departure and the disabled control are skipped, not failed")
		assert.Zero(t, result.Failed)
	}

	assert.Equal(t, 2, browser.releases, "one browser context released per account")
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}, h.sleeps,
		"two pauses between three reservations, per account")

	require.NotEmpty(t, h.notifier.events)
	assert.Equal(t, "startup:2", h.notifier.events[0])
	assert.Equal(t, "run-complete:2", h.notifier.events[len(h.notifier.events)-1])
	assert.Contains(t, h.notifier.events, "reservations-found:ana:3")
	assert.Contains(t, h.notifier.events, "reservations-found:luis:3")
}

func TestRunIsolatesCredentialFailure(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{pages: []*fakePage{loggedInTripPage(), loggedInTripPage()}}
	secrets := testSecrets()
	delete(secrets, "railguard/ana/password")
	h := newOrchestratorHarness(t, browser, secrets)

	results := h.orch.Run(context.Background(), []domain.Account{
		{Name: "ana", Username: "ana@example.com", SecretRef: "railguard/ana/password"},
		{Name: "luis", Username: "luis@example.com", SecretRef: "railguard/luis/password"},
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].AuthFailed)
	assert.Contains(t, results[0].Error, "railguard/ana/password")
	assert.False(t, results[1].AuthFailed, "one account's failure never reaches the next")
	assert.Equal(t, 1, results[1].Confirmed)
	assert.Equal(t, 2, browser.releases)
	assert.Contains(t, h.notifier.events, "auth-failure:ana")
}

func TestRunReauthenticatesOnExpiredSession(t *testing.T) {
	t.Parallel()

	page := loggedInTripPage()
	redirected := false
	page.onNavigate = func(f *fakePage, url string) {
		if url == reservationsURL && !redirected {
			redirected = true
			f.location = "https://portal.example.com/login?expired=1"
		}
	}

	browser := &fakeBrowser{pages: []*fakePage{page}}
	h := newOrchestratorHarness(t, browser, testSecrets())
	require.NoError(t, h.sessions.Save(context.Background(), "ana", domain.Session{
		LastAuthenticated: time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC),
	}))

	results := h.orch.Run(context.Background(), []domain.Account{
		{Name: "ana", Username: "ana@example.com", SecretRef: "railguard/ana/password"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].AuthFailed)
	assert.Equal(t, 1, results[0].Confirmed)
	assert.Equal(t, 1, h.sessions.clears, "the expired session file is cleared before re-authenticating")
	assert.GreaterOrEqual(t, len(page.navigations), 4, "login, reservations, re-login, reservations")
}

func TestRunDryRunConfirmsNothing(t *testing.T) {
	t.Parallel()

	page := loggedInTripPage()
	browser := &fakeBrowser{pages: []*fakePage{page}}
	h := newOrchestratorHarness(t, browser, testSecrets(), func(deps *OrchestratorDeps) {
		deps.DryRun = true
	})

	results := h.orch.Run(context.Background(), []domain.Account{
		{Name: "ana", Username: "ana@example.com", SecretRef: "railguard/ana/password"},
	})

	require.Len(t, results, 1)
	assert.Zero(t, results[0].Confirmed)
	assert.Zero(t, results[0].Failed)
	assert.Equal(t, 3, results[0].Skipped)
	assert.Empty(t, page.clicks, "dry run never touches the page controls")
}

func TestRunSkipsDeparturesOutsideConfirmationWindow(t *testing.T) {
	t.Parallel()

	page := loggedInTripPage()
	browser := &fakeBrowser{pages: []*fakePage{page}}
	h := newOrchestratorHarness(t, browser, testSecrets(), func(deps *OrchestratorDeps) {
		// Weeks before any fixture departure, so every trip is outside the
		// 48-hour confirmation window.
		deps.Clock = harvestClock{now: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)}
	})

	results := h.orch.Run(context.Background(), []domain.Account{
		{Name: "ana", Username: "ana@example.com", SecretRef: "railguard/ana/password"},
	})

	require.Len(t, results, 1)
	assert.Zero(t, results[0].Confirmed)
	assert.Zero(t, results[0].Failed)
	assert.Equal(t, 3, results[0].Skipped)
	assert.Empty(t, page.clicks, "out-of-window reservations are never touched")
	for _, event := range h.notifier.events {
		assert.NotContains(t, event, "confirmation-success", "no confirmation may be reported")
	}
}

func TestRunEmptyReservationPageYieldsEmptyResult(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.html = `<html><body><p>No tienes viajes próximos.</p></body></html>`
	page.elements[`a[href*="logout"]`] = visible(1)
	browser := &fakeBrowser{pages: []*fakePage{page}}
	h := newOrchestratorHarness(t, browser, testSecrets())

	results := h.orch.Run(context.Background(), []domain.Account{
		{Name: "ana", Username: "ana@example.com", SecretRef: "railguard/ana/password"},
	})

	require.Len(t, results, 1)
	assert.Zero(t, results[0].Confirmed+results[0].Failed+results[0].Skipped)
	assert.Empty(t, results[0].Error)
	assert.Contains(t, h.notifier.events, "reservations-found:ana:0")
}

func TestRunBrowserFailureMarksAccountFailed(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{err: errors.New("chrome did not start")}
	h := newOrchestratorHarness(t, browser, testSecrets())

	results := h.orch.Run(context.Background(), []domain.Account{
		{Name: "ana", Username: "ana@example.com", SecretRef: "railguard/ana/password"},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].AuthFailed)
	assert.Contains(t, results[0].Error, "chrome did not start")
}
