package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired means an authenticated navigation silently redirected
	// back to the login page. Callers re-authenticate; it is not fatal.
	ErrSessionExpired = errors.New("session expired")

	// ErrCodeTimeout means the relay never produced a usable one-time code
	// within the wait window. Surfaces as an authentication failure.
	ErrCodeTimeout = errors.New("timed out waiting for one-time code")

	// ErrRelayProtocol marks a malformed relay response (non-JSON, HTML error
	// page). Retryable inside the code wait loop.
	ErrRelayProtocol = errors.New("relay returned a malformed response")

	// ErrNoReservations means extraction was attempted but the page structure
	// yielded nothing. Logged and treated as "no reservations".
	ErrNoReservations = errors.New("no reservations extractable from page")

	ErrSecretNotFound = errors.New("secret not found")
	ErrSessionAbsent  = errors.New("no stored session")
)

// AuthError is a failed login attempt for one account. Fatal for that account
// only; never retried automatically within a run.
type AuthError struct {
	Account AccountName
	Stage   string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticate %s at %s: %v", e.Account, e.Stage, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConfirmationError is a failed confirm attempt for one reservation: the
// control went missing, or post-click verification still shows it enabled.
type ConfirmationError struct {
	Route string
	Err   error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("confirm %s: %v", e.Route, e.Err)
}

func (e *ConfirmationError) Unwrap() error { return e.Err }
