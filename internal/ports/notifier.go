package ports

import (
	"context"

	"github.com/lmoreno/railguard/internal/domain"
)

// Notifier receives structured workflow events for human-facing delivery.
// The core never formats human-readable text itself; sinks decide how the
// events are rendered. Screenshot paths are optional and may be empty.
type Notifier interface {
	Startup(ctx context.Context, accounts int)
	AuthRequired(ctx context.Context, account domain.AccountName)
	AuthSuccess(ctx context.Context, account domain.AccountName)
	AuthFailure(ctx context.Context, account domain.AccountName, err error, screenshot string)
	ReservationsFound(ctx context.Context, account domain.AccountName, reservations []domain.Reservation)
	ConfirmationSuccess(ctx context.Context, account domain.AccountName, r domain.Reservation)
	ConfirmationFailure(ctx context.Context, account domain.AccountName, r domain.Reservation, err error, screenshot string)
	RunComplete(ctx context.Context, results []domain.AccountResult)
}
