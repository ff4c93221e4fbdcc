package domain

import "time"

// SessionMaxAge is the freshness window for persisted sessions. A session
// older than this is treated as absent regardless of cookie validity.
const SessionMaxAge = 7 * 24 * time.Hour

// Cookie is a browser cookie captured from an authenticated context.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
}

// Session is the durable authentication artifact for one account: the cookie
// set, a flat snapshot of client-side storage, when the login happened, and
// the user agent the login was performed with.
type Session struct {
	Cookies           []Cookie
	Storage           map[string]string
	LastAuthenticated time.Time
	UserAgent         string
}

// Fresh reports whether the session is still inside the freshness window.
func (s Session) Fresh(now time.Time) bool {
	if s.LastAuthenticated.IsZero() {
		return false
	}
	return now.Sub(s.LastAuthenticated) <= SessionMaxAge
}
