package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

type countingNotifier struct {
	events int
}

var _ ports.Notifier = (*countingNotifier)(nil)

func (n *countingNotifier) Startup(context.Context, int)                        { n.events++ }
func (n *countingNotifier) AuthRequired(context.Context, domain.AccountName)    { n.events++ }
func (n *countingNotifier) AuthSuccess(context.Context, domain.AccountName)     { n.events++ }
func (n *countingNotifier) AuthFailure(context.Context, domain.AccountName, error, string) {
	n.events++
}
func (n *countingNotifier) ReservationsFound(context.Context, domain.AccountName, []domain.Reservation) {
	n.events++
}
func (n *countingNotifier) ConfirmationSuccess(context.Context, domain.AccountName, domain.Reservation) {
	n.events++
}
func (n *countingNotifier) ConfirmationFailure(context.Context, domain.AccountName, domain.Reservation, error, string) {
	n.events++
}
func (n *countingNotifier) RunComplete(context.Context, []domain.AccountResult) { n.events++ }

func TestMultiFansOutToEveryNotifier(t *testing.T) {
	t.Parallel()

	first := &countingNotifier{}
	second := &countingNotifier{}
	multi := NewMulti(first, second)

	ctx := context.Background()
	multi.Startup(ctx, 1)
	multi.AuthRequired(ctx, "ana")
	multi.ConfirmationSuccess(ctx, "ana", domain.Reservation{})
	multi.RunComplete(ctx, nil)

	assert.Equal(t, 4, first.events)
	assert.Equal(t, 4, second.events)
}

func TestLogNotifierIncludesScreenshotOnlyWhenPresent(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	notifier := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	ctx := context.Background()
	notifier.AuthFailure(ctx, "ana", errors.New("boom"), "")
	assert.NotContains(t, buf.String(), "screenshot")

	buf.Reset()
	notifier.AuthFailure(ctx, "ana", errors.New("boom"), "/tmp/auth-ana.png")
	assert.Contains(t, buf.String(), "screenshot=/tmp/auth-ana.png")
}
