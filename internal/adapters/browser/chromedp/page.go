package chromedp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

// Page wraps one Chrome tab. Selector operations address matches in
// querySelectorAll order, which is document order, so indexes are stable
// across calls while the page is unchanged.
type Page struct {
	tab context.Context
	log *slog.Logger

	// pendingStorage holds a restored localStorage snapshot until the first
	// navigation puts the tab on the portal's origin.
	pendingStorage map[string]string
}

var _ ports.BrowserPage = (*Page)(nil)

// run executes actions against the tab while honoring the caller's context.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	if len(p.pendingStorage) > 0 {
		snapshot := p.pendingStorage
		p.pendingStorage = nil
		if err := p.writeStorage(ctx, snapshot); err != nil {
			p.log.Warn("applying restored client storage failed", "err", err)
		}
	}
	return nil
}

func (p *Page) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document html: %w", err)
	}
	return html, nil
}

// elementState mirrors ports.ElementState for the evaluate round trip.
type elementState struct {
	Visible  bool   `json:"visible"`
	Disabled bool   `json:"disabled"`
	Text     string `json:"text"`
}

func (p *Page) Query(ctx context.Context, sel string) ([]ports.ElementState, error) {
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map((el) => {
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		return {
			visible: style.display !== "none" && style.visibility !== "hidden" && rect.width > 0 && rect.height > 0,
			disabled: !!(el.disabled || el.getAttribute("aria-disabled") === "true"),
			text: (el.textContent || "").trim(),
		};
	})`, jsString(sel))

	var raw []elementState
	if err := p.run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, fmt.Errorf("query %q: %w", sel, err)
	}

	states := make([]ports.ElementState, len(raw))
	for i, s := range raw {
		states[i] = ports.ElementState{Visible: s.Visible, Disabled: s.Disabled, Text: s.Text}
	}
	return states, nil
}

func (p *Page) Click(ctx context.Context, sel string, index int) error {
	script := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%s);
		if (%d >= els.length) return false;
		const el = els[%d];
		el.scrollIntoView({block: "center"});
		el.click();
		return true;
	})()`, jsString(sel), index, index)

	var clicked bool
	if err := p.run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("click %q[%d]: %w", sel, index, err)
	}
	if !clicked {
		return fmt.Errorf("click %q[%d]: no such element", sel, index)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, sel string, index int, value string) error {
	// The value is written through the native setter and followed by input
	// and change events so framework-bound forms observe it.
	script := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%s);
		if (%d >= els.length) return false;
		const el = els[%d];
		el.focus();
		const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
		Object.getOwnPropertyDescriptor(proto, "value").set.call(el, %s);
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.dispatchEvent(new Event("change", {bubbles: true}));
		return true;
	})()`, jsString(sel), index, index, jsString(value))

	var filled bool
	if err := p.run(ctx, chromedp.Evaluate(script, &filled)); err != nil {
		return fmt.Errorf("fill %q[%d]: %w", sel, index, err)
	}
	if !filled {
		return fmt.Errorf("fill %q[%d]: no such element", sel, index)
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.run(waitCtx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", sel, err)
	}
	return nil
}

func (p *Page) WaitSettled(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var ready bool
	err := p.run(waitCtx, chromedp.Poll(`document.readyState === "complete"`, &ready,
		chromedp.WithPollingInterval(100*time.Millisecond)))
	if err != nil {
		return fmt.Errorf("wait for page to settle: %w", err)
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

func (p *Page) Cookies(ctx context.Context) ([]domain.Cookie, error) {
	var cookies []domain.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies = make([]domain.Cookie, 0, len(raw))
		for _, c := range raw {
			cookie := domain.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			}
			// Expires is seconds since epoch; -1 marks a session cookie.
			if c.Expires > 0 {
				cookie.Expires = time.Unix(int64(c.Expires), 0).UTC()
			}
			cookies = append(cookies, cookie)
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("capture cookies: %w", err)
	}
	return cookies, nil
}

func (p *Page) SetCookies(ctx context.Context, cookies []domain.Cookie) error {
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			set := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if !c.Expires.IsZero() {
				expires := cdp.TimeSinceEpoch(c.Expires)
				set = set.WithExpires(&expires)
			}
			if err := set.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("restore cookies: %w", err)
	}
	return nil
}

func (p *Page) StorageSnapshot(ctx context.Context) (map[string]string, error) {
	script := `(() => {
		const out = {};
		for (let i = 0; i < localStorage.length; i++) {
			const key = localStorage.key(i);
			out[key] = localStorage.getItem(key);
		}
		return out;
	})()`

	var snapshot map[string]string
	if err := p.run(ctx, chromedp.Evaluate(script, &snapshot)); err != nil {
		return nil, fmt.Errorf("snapshot client storage: %w", err)
	}
	return snapshot, nil
}

// RestoreStorage defers the write until the tab is on the portal's origin;
// localStorage written against about:blank would land on the wrong origin.
func (p *Page) RestoreStorage(ctx context.Context, snapshot map[string]string) error {
	location, err := p.Location(ctx)
	if err != nil || location == "" || location == "about:blank" {
		p.pendingStorage = snapshot
		return nil
	}
	return p.writeStorage(ctx, snapshot)
}

func (p *Page) writeStorage(ctx context.Context, snapshot map[string]string) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode storage snapshot: %w", err)
	}
	script := fmt.Sprintf(`(() => {
		const items = %s;
		for (const [key, value] of Object.entries(items)) {
			localStorage.setItem(key, value);
		}
		return true;
	})()`, string(payload))

	var done bool
	if err := p.run(ctx, chromedp.Evaluate(script, &done)); err != nil {
		return fmt.Errorf("restore client storage: %w", err)
	}
	return nil
}

func (p *Page) UserAgent(ctx context.Context) (string, error) {
	var userAgent string
	if err := p.run(ctx, chromedp.Evaluate(`navigator.userAgent`, &userAgent)); err != nil {
		return "", fmt.Errorf("read user agent: %w", err)
	}
	return userAgent, nil
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}
