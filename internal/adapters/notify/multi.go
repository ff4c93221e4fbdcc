package notify

import (
	"context"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

// Multi fans every event out to all wrapped notifiers, in order.
type Multi struct {
	notifiers []ports.Notifier
}

var _ ports.Notifier = (*Multi)(nil)

func NewMulti(notifiers ...ports.Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Startup(ctx context.Context, accounts int) {
	for _, n := range m.notifiers {
		n.Startup(ctx, accounts)
	}
}

func (m *Multi) AuthRequired(ctx context.Context, account domain.AccountName) {
	for _, n := range m.notifiers {
		n.AuthRequired(ctx, account)
	}
}

func (m *Multi) AuthSuccess(ctx context.Context, account domain.AccountName) {
	for _, n := range m.notifiers {
		n.AuthSuccess(ctx, account)
	}
}

func (m *Multi) AuthFailure(ctx context.Context, account domain.AccountName, err error, screenshot string) {
	for _, n := range m.notifiers {
		n.AuthFailure(ctx, account, err, screenshot)
	}
}

func (m *Multi) ReservationsFound(ctx context.Context, account domain.AccountName, reservations []domain.Reservation) {
	for _, n := range m.notifiers {
		n.ReservationsFound(ctx, account, reservations)
	}
}

func (m *Multi) ConfirmationSuccess(ctx context.Context, account domain.AccountName, r domain.Reservation) {
	for _, n := range m.notifiers {
		n.ConfirmationSuccess(ctx, account, r)
	}
}

func (m *Multi) ConfirmationFailure(ctx context.Context, account domain.AccountName, r domain.Reservation, err error, screenshot string) {
	for _, n := range m.notifiers {
		n.ConfirmationFailure(ctx, account, r, err, screenshot)
	}
}

func (m *Multi) RunComplete(ctx context.Context, results []domain.AccountResult) {
	for _, n := range m.notifiers {
		n.RunComplete(ctx, results)
	}
}
