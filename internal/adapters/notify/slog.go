// Package notify delivers workflow events to the operator. The log notifier
// is always wired; further channels join through the fan-out.
package notify

import (
	"context"
	"log/slog"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

// LogNotifier writes every workflow event to the structured log.
type LogNotifier struct {
	log *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Startup(_ context.Context, accounts int) {
	n.log.Info("run starting", "accounts", accounts)
}

func (n *LogNotifier) AuthRequired(_ context.Context, account domain.AccountName) {
	n.log.Info("stored session not usable, logging in", "account", account)
}

func (n *LogNotifier) AuthSuccess(_ context.Context, account domain.AccountName) {
	n.log.Info("authenticated", "account", account)
}

func (n *LogNotifier) AuthFailure(_ context.Context, account domain.AccountName, err error, screenshot string) {
	attrs := []any{"account", account, "err", err}
	if screenshot != "" {
		attrs = append(attrs, "screenshot", screenshot)
	}
	n.log.Error("authentication failed, account needs manual attention", attrs...)
}

func (n *LogNotifier) ReservationsFound(_ context.Context, account domain.AccountName, reservations []domain.Reservation) {
	confirmable := 0
	for _, r := range reservations {
		if r.Confirmable {
			confirmable++
		}
	}
	n.log.Info("reservations harvested", "account", account, "total", len(reservations), "confirmable", confirmable)
}

func (n *LogNotifier) ConfirmationSuccess(_ context.Context, account domain.AccountName, r domain.Reservation) {
	n.log.Info("reservation confirmed", "account", account, "route", r.Route(), "train", r.TrainNumber, "departure", r.Departure)
}

func (n *LogNotifier) ConfirmationFailure(_ context.Context, account domain.AccountName, r domain.Reservation, err error, screenshot string) {
	attrs := []any{"account", account, "route", r.Route(), "err", err}
	if screenshot != "" {
		attrs = append(attrs, "screenshot", screenshot)
	}
	n.log.Error("reservation confirmation failed", attrs...)
}

func (n *LogNotifier) RunComplete(_ context.Context, results []domain.AccountResult) {
	confirmed, failed, authFailed := 0, 0, 0
	for _, result := range results {
		confirmed += result.Confirmed
		failed += result.Failed
		if result.AuthFailed {
			authFailed++
		}
	}
	n.log.Info("run complete", "accounts", len(results), "confirmed", confirmed, "failed", failed, "auth_failed", authFailed)
}
