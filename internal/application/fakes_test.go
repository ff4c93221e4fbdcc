package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClick struct {
	Sel   string
	Index int
}

type fakeFill struct {
	Sel   string
	Index int
	Value string
}

// fakePage is an in-memory ports.BrowserPage. Tests preload selector states
// and HTML, and use the onNavigate/onClick hooks to mutate page state the
// way the portal would.
type fakePage struct {
	location  string
	html      string
	elements  map[string][]ports.ElementState
	cookies   []domain.Cookie
	storage   map[string]string
	userAgent string

	navigations []string
	clicks      []fakeClick
	fills       []fakeFill
	screenshots []string

	onNavigate func(f *fakePage, url string)
	onClick    func(f *fakePage, sel string, index int)
}

var _ ports.BrowserPage = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		elements:  map[string][]ports.ElementState{},
		storage:   map[string]string{},
		userAgent: "fake-agent/1.0",
	}
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	f.location = url
	if f.onNavigate != nil {
		f.onNavigate(f, url)
	}
	return nil
}

func (f *fakePage) Location(context.Context) (string, error) { return f.location, nil }

func (f *fakePage) HTML(context.Context) (string, error) { return f.html, nil }

func (f *fakePage) Query(_ context.Context, sel string) ([]ports.ElementState, error) {
	states := f.elements[sel]
	return append([]ports.ElementState(nil), states...), nil
}

func (f *fakePage) Click(_ context.Context, sel string, index int) error {
	if index >= len(f.elements[sel]) {
		return fmt.Errorf("no element %d for selector %q", index, sel)
	}
	f.clicks = append(f.clicks, fakeClick{Sel: sel, Index: index})
	if f.onClick != nil {
		f.onClick(f, sel, index)
	}
	return nil
}

func (f *fakePage) Fill(_ context.Context, sel string, index int, value string) error {
	if index >= len(f.elements[sel]) {
		return fmt.Errorf("no element %d for selector %q", index, sel)
	}
	f.fills = append(f.fills, fakeFill{Sel: sel, Index: index, Value: value})
	return nil
}

func (f *fakePage) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	for _, state := range f.elements[sel] {
		if state.Visible {
			return nil
		}
	}
	return fmt.Errorf("selector %q not visible before timeout", sel)
}

func (f *fakePage) WaitSettled(context.Context, time.Duration) error { return nil }

func (f *fakePage) Screenshot(_ context.Context, path string) error {
	f.screenshots = append(f.screenshots, path)
	return nil
}

func (f *fakePage) Cookies(context.Context) ([]domain.Cookie, error) {
	return append([]domain.Cookie(nil), f.cookies...), nil
}

func (f *fakePage) SetCookies(_ context.Context, cookies []domain.Cookie) error {
	f.cookies = append(f.cookies, cookies...)
	return nil
}

func (f *fakePage) StorageSnapshot(context.Context) (map[string]string, error) {
	snapshot := map[string]string{}
	for k, v := range f.storage {
		snapshot[k] = v
	}
	return snapshot, nil
}

func (f *fakePage) RestoreStorage(_ context.Context, snapshot map[string]string) error {
	for k, v := range snapshot {
		f.storage[k] = v
	}
	return nil
}

func (f *fakePage) UserAgent(context.Context) (string, error) { return f.userAgent, nil }

// memorySessionStore is an in-memory ports.SessionStore.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[domain.AccountName]domain.Session
	clears   int
}

var _ ports.SessionStore = (*memorySessionStore)(nil)

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: map[domain.AccountName]domain.Session{}}
}

func (s *memorySessionStore) Load(_ context.Context, account domain.AccountName) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[account]
	if !ok {
		return domain.Session{}, domain.ErrSessionAbsent
	}
	return session, nil
}

func (s *memorySessionStore) Save(_ context.Context, account domain.AccountName, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[account] = session
	return nil
}

func (s *memorySessionStore) Clear(_ context.Context, account domain.AccountName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, account)
	s.clears++
	return nil
}

// fakeCodeChannel serves a canned code or error.
type fakeCodeChannel struct {
	code  string
	err   error
	calls int
}

func (c *fakeCodeChannel) WaitForCode(context.Context) (domain.OneTimeCode, error) {
	c.calls++
	if c.err != nil {
		return domain.OneTimeCode{}, c.err
	}
	return domain.OneTimeCode{Code: c.code, CapturedAt: time.Now()}, nil
}

// recordingNotifier records every event it sees, in order.
type recordingNotifier struct {
	events []string
}

var _ ports.Notifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) record(event string) { n.events = append(n.events, event) }

func (n *recordingNotifier) Startup(_ context.Context, accounts int) {
	n.record(fmt.Sprintf("startup:%d", accounts))
}

func (n *recordingNotifier) AuthRequired(_ context.Context, account domain.AccountName) {
	n.record("auth-required:" + string(account))
}

func (n *recordingNotifier) AuthSuccess(_ context.Context, account domain.AccountName) {
	n.record("auth-success:" + string(account))
}

func (n *recordingNotifier) AuthFailure(_ context.Context, account domain.AccountName, _ error, _ string) {
	n.record("auth-failure:" + string(account))
}

func (n *recordingNotifier) ReservationsFound(_ context.Context, account domain.AccountName, reservations []domain.Reservation) {
	n.record(fmt.Sprintf("reservations-found:%s:%d", account, len(reservations)))
}

func (n *recordingNotifier) ConfirmationSuccess(_ context.Context, account domain.AccountName, r domain.Reservation) {
	n.record("confirmation-success:" + string(account) + ":" + r.Route())
}

func (n *recordingNotifier) ConfirmationFailure(_ context.Context, account domain.AccountName, r domain.Reservation, _ error, _ string) {
	n.record("confirmation-failure:" + string(account) + ":" + r.Route())
}

func (n *recordingNotifier) RunComplete(_ context.Context, results []domain.AccountResult) {
	n.record(fmt.Sprintf("run-complete:%d", len(results)))
}

// memorySecretStore is a read-only map-backed ports.SecretStore.
type memorySecretStore map[string]string

func (s memorySecretStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (s memorySecretStore) Put(_ context.Context, key, value string) error {
	s[key] = value
	return nil
}

func (s memorySecretStore) Delete(_ context.Context, key string) error {
	delete(s, key)
	return nil
}

// fakeBrowser hands out preset pages in order and tracks releases.
type fakeBrowser struct {
	pages    []*fakePage
	next     int
	releases int
	err      error
}

var _ ports.Browser = (*fakeBrowser)(nil)

func (b *fakeBrowser) NewPage(context.Context) (ports.BrowserPage, func(), error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	if b.next >= len(b.pages) {
		return nil, nil, errors.New("fakeBrowser: out of pages")
	}
	page := b.pages[b.next]
	b.next++
	return page, func() { b.releases++ }, nil
}
