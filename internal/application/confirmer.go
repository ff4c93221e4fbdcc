package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

const (
	dialogWaitTimeout     = 2 * time.Second
	confirmSettleTimeout  = 10 * time.Second
	errConfirmStillActive = "confirm control still enabled after click"
)

// Confirmer performs the confirm action for a single reservation and
// verifies the outcome. Every error is contained here: a failed reservation
// yields a failed result and never aborts its siblings.
type Confirmer struct {
	notifier    ports.Notifier
	log         *slog.Logger
	heur        Heuristics
	diagnostics Diagnostics
}

func NewConfirmer(notifier ports.Notifier, log *slog.Logger, heur Heuristics, diagnostics Diagnostics) *Confirmer {
	return &Confirmer{notifier: notifier, log: log, heur: heur, diagnostics: diagnostics}
}

// Confirm clicks the reservation's confirm control and verifies the click
// took. A reservation whose control was disabled at harvest is skipped with
// no page interaction at all.
func (c *Confirmer) Confirm(ctx context.Context, page ports.Page, account domain.AccountName, r domain.Reservation) domain.ConfirmationResult {
	if !r.Confirmable {
		c.log.Debug("reservation not yet confirmable, skipping", "route", r.Route())
		return domain.ConfirmationResult{Reservation: r, Skipped: true}
	}

	result, err := c.confirm(ctx, page, r)
	if err != nil {
		screenshot := c.diagnostics.Capture(ctx, page, c.log, "confirm-"+string(account))
		confirmErr := &domain.ConfirmationError{Route: r.Route(), Err: err}
		c.notifier.ConfirmationFailure(ctx, account, r, confirmErr, screenshot)
		return domain.ConfirmationResult{Reservation: r, Error: confirmErr.Error()}
	}

	if result.Success {
		result.Reservation.Status = domain.ReservationConfirmed
		c.notifier.ConfirmationSuccess(ctx, account, result.Reservation)
	}
	return result
}

func (c *Confirmer) confirm(ctx context.Context, page ports.Page, r domain.Reservation) (domain.ConfirmationResult, error) {
	index, proximity, found, err := c.locate(ctx, page, r)
	if err != nil {
		return domain.ConfirmationResult{}, err
	}
	if !found {
		return domain.ConfirmationResult{}, errors.New("confirm control not found on page")
	}

	// The control's state may have changed since harvest; re-check right
	// before acting.
	states, err := page.Query(ctx, c.heur.ConfirmControl)
	if err != nil {
		return domain.ConfirmationResult{}, fmt.Errorf("query confirm controls: %w", err)
	}
	if index >= len(states) {
		return domain.ConfirmationResult{}, errors.New("confirm control disappeared before click")
	}
	if states[index].Disabled {
		c.log.Info("confirm control disabled since harvest, skipping", "route", r.Route())
		return domain.ConfirmationResult{Reservation: r, Skipped: true}, nil
	}

	if err := page.Click(ctx, c.heur.ConfirmControl, index); err != nil {
		return domain.ConfirmationResult{}, fmt.Errorf("click confirm control: %w", err)
	}

	c.dismissDialog(ctx, page)

	if err := page.WaitSettled(ctx, confirmSettleTimeout); err != nil {
		c.log.Debug("page did not settle after confirm click", "err", err)
	}

	success, err := c.verify(ctx, page, r, index, proximity)
	if err != nil {
		return domain.ConfirmationResult{}, err
	}
	if !success {
		return domain.ConfirmationResult{}, errors.New(errConfirmStillActive)
	}
	return domain.ConfirmationResult{Reservation: r, Success: true}, nil
}

// locate finds the confirm control bound to the reservation: first by
// origin/destination text proximity in an ancestor, then the harvest-time
// control index when it still points at a live confirm control, then the
// first visible confirm control as a last resort. The second return reports
// whether the match came from text proximity.
func (c *Confirmer) locate(ctx context.Context, page ports.Page, r domain.Reservation) (int, bool, bool, error) {
	confirmIndexes, matched, err := c.scan(ctx, page, r)
	if err != nil {
		return 0, false, false, err
	}
	if matched >= 0 {
		return matched, true, true, nil
	}

	states, err := page.Query(ctx, c.heur.ConfirmControl)
	if err != nil {
		return 0, false, false, fmt.Errorf("query confirm controls: %w", err)
	}

	if slices.Contains(confirmIndexes, r.ControlIndex) &&
		r.ControlIndex < len(states) && states[r.ControlIndex].Visible {
		c.log.Debug("no text-proximity match, reusing harvest-time control index", "route", r.Route(), "index", r.ControlIndex)
		return r.ControlIndex, false, true, nil
	}

	for _, index := range confirmIndexes {
		if index < len(states) && states[index].Visible {
			c.log.Debug("no text-proximity match, using first visible confirm control", "route", r.Route())
			return index, false, true, nil
		}
	}
	return 0, false, false, nil
}

// scan parses the live page and returns the indexes of all confirm controls
// plus the index of the one whose ancestor mentions both the reservation's
// origin and destination (-1 when none does).
func (c *Confirmer) scan(ctx context.Context, page ports.Page, r domain.Reservation) ([]int, int, error) {
	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, -1, fmt.Errorf("read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, -1, fmt.Errorf("parse page html: %w", err)
	}

	origin := strings.ToLower(r.Origin)
	destination := strings.ToLower(r.Destination)
	haveRoute := origin != "" && destination != ""

	var confirmIndexes []int
	matched := -1
	doc.Find(c.heur.ConfirmControl).Each(func(i int, control *goquery.Selection) {
		if !containsAny(strings.ToLower(control.Text()), c.heur.ConfirmTexts) {
			return
		}
		confirmIndexes = append(confirmIndexes, i)

		if !haveRoute || matched >= 0 {
			return
		}
		ancestor := control.Parent()
		for hop := 0; hop < maxAncestorHops && ancestor.Length() > 0; hop++ {
			text := strings.ToLower(ancestor.Text())
			if strings.Contains(text, origin) && strings.Contains(text, destination) {
				matched = i
				return
			}
			ancestor = ancestor.Parent()
		}
	})

	return confirmIndexes, matched, nil
}

// dismissDialog waits briefly for the optional secondary confirmation dialog
// and accepts it. The dialog not showing up is the common case, not an
// error.
func (c *Confirmer) dismissDialog(ctx context.Context, page ports.Page) {
	for _, sel := range c.heur.DialogConfirmControls {
		if err := page.WaitVisible(ctx, sel, dialogWaitTimeout); err != nil {
			continue
		}
		if err := page.Click(ctx, sel, 0); err != nil {
			c.log.Debug("dismissing confirmation dialog failed", "selector", sel, "err", err)
			continue
		}
		return
	}
}

// verify decides whether the click took, in priority order: control gone,
// control present but hidden, control present but disabled all mean success;
// a control still visible and enabled means the click did not take. Only a
// control that was located by text proximity counts as gone when the
// proximity match disappears; a control located any other way is judged by
// the clicked index itself.
func (c *Confirmer) verify(ctx context.Context, page ports.Page, r domain.Reservation, clicked int, proximity bool) (bool, error) {
	confirmIndexes, matched, err := c.scan(ctx, page, r)
	if err != nil {
		return false, err
	}

	index := clicked
	if proximity {
		// Losing the match means our control is gone; remaining confirm
		// controls belong to siblings.
		if matched < 0 {
			return true, nil
		}
		index = matched
	} else if len(confirmIndexes) == 0 {
		return true, nil
	}

	states, err := page.Query(ctx, c.heur.ConfirmControl)
	if err != nil {
		return false, fmt.Errorf("query confirm controls: %w", err)
	}
	if index >= len(states) {
		return true, nil
	}

	state := states[index]
	if !state.Visible || state.Disabled {
		return true, nil
	}
	return false, nil
}
