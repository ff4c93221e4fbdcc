// Package relay consumes the one-time-code relay: an external service that
// extracts login codes from incoming email and exposes the latest one over
// HTTP behind a shared secret.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
	"github.com/lmoreno/railguard/internal/retry"
)

const maxRelayResponseBytes = 1 << 20

var errUnauthorized = errors.New("relay rejected the shared secret")

type Client struct {
	URL          string
	Secret       string
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
	Clock        ports.Clock
	Log          *slog.Logger
	// ClearRetry paces retries of the invalidation call; the poll loop itself
	// runs at a fixed interval.
	ClearRetry retry.Policy
}

var _ ports.CodeChannel = (*Client)(nil)

type relayResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Source    string `json:"source,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WaitForCode polls the relay until it reports a non-expired code or the
// wall-clock timeout elapses. The deadline is independent of how many polls
// actually ran. A successfully read code is invalidated at the relay before
// it is returned, so a retried or concurrent read can never see it again.
func (c *Client) WaitForCode(ctx context.Context) (domain.OneTimeCode, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	clock := c.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	// A bad relay URL is a configuration problem, not something to poll
	// through.
	if _, err := c.endpoint(nil); err != nil {
		return domain.OneTimeCode{}, err
	}

	deadline := clock.Now().Add(timeout)
	for {
		code, err := c.fetchOnce(ctx, clock.Now())
		switch {
		case err == nil:
			if clearErr := c.clear(ctx); clearErr != nil {
				c.Log.Warn("invalidating relayed code failed, code may be served again", "err", clearErr)
			}
			return code, nil
		case errors.Is(err, errUnauthorized):
			return domain.OneTimeCode{}, err
		case errors.Is(err, domain.ErrRelayProtocol):
			c.Log.Warn("relay fetch failed, will retry", "err", err)
		default:
			c.Log.Debug("no usable code yet", "reason", err)
		}

		if clock.Now().Add(interval).After(deadline) {
			return domain.OneTimeCode{}, domain.ErrCodeTimeout
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return domain.OneTimeCode{}, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, now time.Time) (domain.OneTimeCode, error) {
	endpoint, err := c.endpoint(nil)
	if err != nil {
		return domain.OneTimeCode{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("create relay request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("%w: %v", domain.ErrRelayProtocol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.OneTimeCode{}, fmt.Errorf("%w: status %d", domain.ErrRelayProtocol, resp.StatusCode)
	}

	var payload relayResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRelayResponseBytes)).Decode(&payload); err != nil {
		return domain.OneTimeCode{}, fmt.Errorf("%w: %v", domain.ErrRelayProtocol, err)
	}

	if !payload.Success {
		if payload.Error == "Unauthorized" {
			return domain.OneTimeCode{}, errUnauthorized
		}
		return domain.OneTimeCode{}, fmt.Errorf("relay has no code: %s", payload.Error)
	}
	if payload.Code == "" {
		return domain.OneTimeCode{}, fmt.Errorf("%w: success without code", domain.ErrRelayProtocol)
	}

	code := domain.OneTimeCode{Code: payload.Code}
	if payload.Timestamp != "" {
		if capturedAt, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
			code.CapturedAt = capturedAt
		}
	}
	if code.Expired(now) {
		return domain.OneTimeCode{}, fmt.Errorf("relayed code captured at %s has expired", code.CapturedAt.Format(time.RFC3339))
	}

	c.Log.Info("one-time code received", "source", payload.Source)
	return code, nil
}

// clear invalidates the relay's cached code so it cannot be read twice. The
// relay holds a single mutable slot; this is the only mutation any consumer
// performs.
func (c *Client) clear(ctx context.Context) error {
	endpoint, err := c.endpoint(url.Values{"action": {"clear"}})
	if err != nil {
		return err
	}

	return c.ClearRetry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create clear request: %w", err))
		}

		resp, err := c.httpClient().Do(req)
		if err != nil {
			return fmt.Errorf("clear relayed code: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("clear relayed code: status %d", resp.StatusCode)
		}

		var payload relayResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxRelayResponseBytes)).Decode(&payload); err != nil {
			return fmt.Errorf("decode clear response: %w", err)
		}
		if !payload.Success {
			return fmt.Errorf("clear relayed code: %s", payload.Error)
		}
		return nil
	})
}

func (c *Client) endpoint(extra url.Values) (string, error) {
	parsed, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("relay url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("relay url host is required")
	}

	q := parsed.Query()
	q.Set("secret", c.Secret)
	for key, values := range extra {
		for _, value := range values {
			q.Set(key, value)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
