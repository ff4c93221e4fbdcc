package application

// Heuristics holds the ranked matcher strategies the workflow components use
// against the portal's DOM. Candidates are tried in order, first match wins;
// a new portal layout is handled by adding entries here, never by new
// branching in the components.
type Heuristics struct {
	// LoggedInProbes indicate an authenticated page when any is visible.
	LoggedInProbes []string
	// LoginPathMarkers identify a login URL; an authenticated navigation
	// landing on one of these means the session expired.
	LoginPathMarkers []string

	UsernameFields []string
	PasswordFields []string
	SubmitControls []string

	// OtpDigitFields match one-input-per-digit code forms; tried before the
	// combined field.
	OtpDigitFields    []string
	OtpCombinedFields []string
	OtpSubmitControls []string

	// ConfirmControl enumerates every confirm affordance candidate on the
	// page; ConfirmTexts narrows the candidates to actual confirm controls.
	ConfirmControl string
	ConfirmTexts   []string

	// CardSelectors match whole reservation cards; the per-card strategy runs
	// before the button-anchored ancestor walk.
	CardSelectors []string
	// PendingTexts mark a card as needing confirmation.
	PendingTexts []string

	// DialogConfirmControls dismiss the optional secondary dialog after a
	// confirm click.
	DialogConfirmControls []string
}

// DefaultHeuristics covers the portal layouts observed so far.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		LoggedInProbes: []string{
			`a[href*="logout"]`,
			`a[href*="cerrar-sesion"]`,
			`[data-testid="account-menu"]`,
			`.user-menu`,
		},
		LoginPathMarkers: []string{"/login", "/signin", "/acceso", "/identificacion"},
		UsernameFields: []string{
			`input[name="username"]`,
			`input[name="email"]`,
			`input[type="email"]`,
			`#username`,
		},
		PasswordFields: []string{
			`input[name="password"]`,
			`input[type="password"]`,
		},
		SubmitControls: []string{
			`button[type="submit"]`,
			`input[type="submit"]`,
			`form button`,
		},
		OtpDigitFields: []string{
			`input[autocomplete="one-time-code"][maxlength="1"]`,
			`.otp-input input`,
			`[data-testid="otp-digit"]`,
		},
		OtpCombinedFields: []string{
			`input[autocomplete="one-time-code"]`,
			`input[name="otp"]`,
			`input[name="code"]`,
			`#verification-code`,
		},
		OtpSubmitControls: []string{
			`button[type="submit"]`,
			`[data-testid="otp-submit"]`,
		},
		ConfirmControl: "button",
		ConfirmTexts:   []string{"confirmar", "confirm"},
		CardSelectors: []string{
			`[data-testid="reservation-card"]`,
			`.reservation-card`,
			`article.trip`,
			`li.journey`,
		},
		PendingTexts: []string{"confirmar", "confirm", "pendiente", "pending"},
		DialogConfirmControls: []string{
			`[role="dialog"] button.primary`,
			`.modal button[type="submit"]`,
			`.modal-footer button`,
		},
	}
}
