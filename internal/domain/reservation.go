package domain

import "time"

// ReservationStatus is the lifecycle state of a harvested reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// confirmWindow is the period before departure in which the portal expects a
// manual re-confirmation.
const confirmWindow = 48 * time.Hour

// Reservation is one trip discovered on the authenticated page. IDs are
// synthesized per harvest and not stable across runs; reservations are never
// persisted.
type Reservation struct {
	ID          string
	Origin      string
	Destination string
	Departure   time.Time
	TrainNumber string
	Status      ReservationStatus
	// Confirmable mirrors the confirm control's enabled state at harvest
	// time. It is the portal's own signal, not a scraping heuristic.
	Confirmable bool
	// ControlIndex is the position of the reservation's confirm control among
	// all confirm controls on the page, in document order.
	ControlIndex int
}

// Route is a short "origin → destination" label for notifications.
func (r Reservation) Route() string {
	if r.Origin == "" && r.Destination == "" {
		return "unknown route"
	}
	return r.Origin + " → " + r.Destination
}

// NeedsConfirmation reports whether the reservation departs within the
// confirmation window: strictly in the future and no more than 48 hours away.
func (r Reservation) NeedsConfirmation(now time.Time) bool {
	until := r.Departure.Sub(now)
	return until > 0 && until <= confirmWindow
}
