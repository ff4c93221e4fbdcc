package domain

// ConfirmationResult is the immutable outcome of one confirmation attempt.
// Skipped means confirmation was not yet permitted, not that it failed.
type ConfirmationResult struct {
	Reservation Reservation
	Success     bool
	Skipped     bool
	Error       string
}

// AccountResult aggregates one account's run.
type AccountResult struct {
	Account   AccountName
	Confirmed int
	Failed    int
	Skipped   int
	// AuthFailed marks an account whose run never got past authentication.
	AuthFailed bool
	Error      string
}

// Record folds one confirmation result into the aggregate.
func (a *AccountResult) Record(r ConfirmationResult) {
	switch {
	case r.Skipped:
		a.Skipped++
	case r.Success:
		a.Confirmed++
	default:
		a.Failed++
	}
}
