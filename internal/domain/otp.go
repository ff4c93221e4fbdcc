package domain

import "time"

// CodeTTL is how long a relayed one-time code stays usable after capture.
const CodeTTL = 10 * time.Minute

// OneTimeCode is a short-lived login code captured by the external relay.
type OneTimeCode struct {
	Code       string
	CapturedAt time.Time
}

// Expired reports whether the code's 10-minute validity has elapsed.
func (c OneTimeCode) Expired(now time.Time) bool {
	if c.CapturedAt.IsZero() {
		return false
	}
	return now.Sub(c.CapturedAt) > CodeTTL
}
