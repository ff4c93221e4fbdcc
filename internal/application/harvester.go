package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

// maxAncestorHops bounds the upward walk from a confirm control to its trip
// container, so a malformed page can never send the walk to the document
// root and capture the whole body as one reservation.
const maxAncestorHops = 10

const harvestSettleTimeout = 15 * time.Second

var (
	stationNameRe  = regexp.MustCompile(`^[A-ZÁÉÍÓÚÑ][A-Za-zÁÉÍÓÚÑáéíóúñ .'()/-]{1,40}$`)
	trainNumberRe  = regexp.MustCompile(`(?i)\b(?:tren|train|ave|avlo|alvia|euromed|intercity)\s*(?:n[ºo°.]?\s*)?(\d{3,5})\b`)
	stationMarkers = `.station, .origin, .destination, [data-station], [data-testid="station"]`
)

// Harvester discovers reservations on the authenticated page. Reservations
// are built fresh on every harvest; nothing here persists.
type Harvester struct {
	reservationsURL string
	heur            Heuristics
	clock           ports.Clock
	log             *slog.Logger
}

func NewHarvester(reservationsURL string, heur Heuristics, clock ports.Clock, log *slog.Logger) *Harvester {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Harvester{reservationsURL: reservationsURL, heur: heur, clock: clock, log: log}
}

// FetchPending navigates to the reservations view and extracts every
// reservation that carries a confirm affordance, disabled ones included, so
// not-yet-confirmable trips are still surfaced. Order follows the page, and
// no departure-window filter is applied here.
//
// A silent redirect back to a login page surfaces as domain.ErrSessionExpired
// so the caller can re-authenticate. A page where extraction was attempted
// but nothing could be parsed surfaces as domain.ErrNoReservations.
func (h *Harvester) FetchPending(ctx context.Context, page ports.Page) ([]domain.Reservation, error) {
	if err := page.Navigate(ctx, h.reservationsURL); err != nil {
		return nil, fmt.Errorf("navigate to reservations: %w", err)
	}
	if err := page.WaitSettled(ctx, harvestSettleTimeout); err != nil {
		h.log.Debug("reservations page did not settle in time, parsing anyway", "err", err)
	}

	location, err := page.Location(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page location: %w", err)
	}
	for _, marker := range h.heur.LoginPathMarkers {
		if strings.Contains(location, marker) {
			return nil, fmt.Errorf("redirected to %s: %w", location, domain.ErrSessionExpired)
		}
	}

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	controls := doc.Find(h.heur.ConfirmControl)

	if reservations := h.harvestCards(doc, controls); len(reservations) > 0 {
		h.log.Info("harvested reservations from cards", "count", len(reservations))
		return reservations, nil
	}

	reservations := h.harvestByControls(controls)
	if len(reservations) == 0 {
		if h.confirmControlCount(controls) > 0 {
			return nil, domain.ErrNoReservations
		}
		return nil, nil
	}

	h.log.Info("harvested reservations from confirm controls", "count", len(reservations))
	return reservations, nil
}

// harvestCards is the per-element strategy: ranked card selectors, first one
// with matches wins. Cards whose text does not indicate a needed
// confirmation are discarded at this layer.
func (h *Harvester) harvestCards(doc *goquery.Document, controls *goquery.Selection) []domain.Reservation {
	for _, cardSelector := range h.heur.CardSelectors {
		cards := doc.Find(cardSelector)
		if cards.Length() == 0 {
			continue
		}

		var reservations []domain.Reservation
		cards.Each(func(_ int, card *goquery.Selection) {
			if !containsAny(strings.ToLower(card.Text()), h.heur.PendingTexts) {
				return
			}
			if r, ok := h.extract(card, controls); ok {
				reservations = append(reservations, r)
			}
		})
		return reservations
	}
	return nil
}

// harvestByControls anchors on every confirm affordance and walks upward to
// the smallest ancestor holding at least two time markers, which bounds the
// capture to one full trip without swallowing its neighbors.
func (h *Harvester) harvestByControls(controls *goquery.Selection) []domain.Reservation {
	var reservations []domain.Reservation
	seen := map[*html.Node]bool{}

	controls.Each(func(_ int, control *goquery.Selection) {
		if !h.isConfirmControl(control) {
			return
		}
		container := h.containerFor(control)
		if container == nil {
			return
		}
		node := container.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true

		if r, ok := h.extract(container, controls); ok {
			reservations = append(reservations, r)
		}
	})

	return reservations
}

func (h *Harvester) containerFor(control *goquery.Selection) *goquery.Selection {
	current := control.Parent()
	for hop := 0; hop < maxAncestorHops && current.Length() > 0; hop++ {
		if current.Find("time").Length() >= 2 || len(parseClockTimes(current.Text())) >= 2 {
			return current
		}
		current = current.Parent()
	}
	return nil
}

// extract parses one trip container into a reservation. The container must
// hold a confirm control; everything else degrades gracefully.
func (h *Harvester) extract(container *goquery.Selection, controls *goquery.Selection) (domain.Reservation, bool) {
	control := h.confirmControlIn(container)
	if control == nil {
		return domain.Reservation{}, false
	}

	_, disabled := control.Attr("disabled")
	text := container.Text()
	now := h.clock.Now()

	r := domain.Reservation{
		ID:           uuid.NewString(),
		Status:       domain.ReservationPending,
		Confirmable:  !disabled,
		ControlIndex: indexIn(controls, control),
		TrainNumber:  trainNumber(text),
	}
	r.Origin, r.Destination = extractStations(container)

	date, dateFound := h.departureDate(container, now)
	times := parseClockTimes(text)
	if dateFound && len(times) > 0 {
		sorted := append([]int(nil), times...)
		sort.Ints(sorted)
		// The two earliest times on the card are the departure display pair;
		// the first is the departure itself.
		r.Departure = combineDateAndTime(date, sorted[0])
	} else if dateFound {
		r.Departure = date
	}

	if r.Origin == "" && r.Destination == "" && !dateFound {
		return domain.Reservation{}, false
	}
	return r, true
}

// departureDate prefers a machine-readable time marker over natural-language
// text.
func (h *Harvester) departureDate(container *goquery.Selection, now time.Time) (time.Time, bool) {
	var date time.Time
	found := false
	container.Find("time").EachWithBreak(func(_ int, marker *goquery.Selection) bool {
		if value, ok := marker.Attr("datetime"); ok {
			if parsed, ok := parseMachineDatetime(value); ok {
				date = parsed
				found = true
				return false
			}
		}
		return true
	})
	if found {
		return date, true
	}
	return parseNaturalDate(container.Text(), now)
}

func extractStations(container *goquery.Selection) (string, string) {
	// Markup-labelled stations are the strongest signal.
	var names []string
	container.Find(stationMarkers).Each(func(_ int, station *goquery.Selection) {
		if name := strings.TrimSpace(station.Text()); stationNameRe.MatchString(name) {
			names = append(names, name)
		}
	})
	if len(names) >= 2 {
		return names[0], names[1]
	}

	// Otherwise stations are the patterned text sharing an element with a
	// time marker.
	names = names[:0]
	container.Find("time").Each(func(_ int, marker *goquery.Selection) {
		parent := marker.Parent()
		residual := strings.TrimSpace(clockTimeRe.ReplaceAllString(parent.Text(), ""))
		if stationNameRe.MatchString(residual) {
			names = append(names, residual)
		}
	})
	if len(names) >= 2 {
		return names[0], names[1]
	}

	// Last resort: lines that pair a clock time with a station-looking label.
	names = names[:0]
	for _, line := range strings.Split(container.Text(), "\n") {
		if !clockTimeRe.MatchString(line) {
			continue
		}
		residual := strings.TrimSpace(clockTimeRe.ReplaceAllString(line, ""))
		if stationNameRe.MatchString(residual) {
			names = append(names, residual)
		}
	}
	if len(names) >= 2 {
		return names[0], names[1]
	}
	if len(names) == 1 {
		return names[0], ""
	}
	return "", ""
}

func (h *Harvester) confirmControlIn(container *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	container.Find(h.heur.ConfirmControl).EachWithBreak(func(_ int, control *goquery.Selection) bool {
		if h.isConfirmControl(control) {
			found = control
			return false
		}
		return true
	})
	return found
}

func (h *Harvester) isConfirmControl(control *goquery.Selection) bool {
	return containsAny(strings.ToLower(control.Text()), h.heur.ConfirmTexts)
}

func (h *Harvester) confirmControlCount(controls *goquery.Selection) int {
	count := 0
	controls.Each(func(_ int, control *goquery.Selection) {
		if h.isConfirmControl(control) {
			count++
		}
	})
	return count
}

func trainNumber(text string) string {
	if m := trainNumberRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// indexIn returns control's position within controls, in document order, or
// -1 when absent. The position stays valid for selector-indexed page
// operations as long as the page does not change underneath.
func indexIn(controls *goquery.Selection, control *goquery.Selection) int {
	target := control.Get(0)
	index := -1
	controls.EachWithBreak(func(i int, candidate *goquery.Selection) bool {
		if candidate.Get(0) == target {
			index = i
			return false
		}
		return true
	})
	return index
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
