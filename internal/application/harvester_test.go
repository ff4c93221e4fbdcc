package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmoreno/railguard/internal/domain"
)

const reservationsURL = "https://portal.example.com/reservations"

type harvestClock struct{ now time.Time }

func (c harvestClock) Now() time.Time { return c.now }

func newTestHarvester(now time.Time) *Harvester {
	return NewHarvester(reservationsURL, DefaultHeuristics(), harvestClock{now: now}, discardLogger())
}

const tripListHTML = `<html><body>
<nav><button class="menu">Menú</button></nav>
<div class="trips">
  <div class="trip">
    <div class="schedule">
      <span><time datetime="2026-03-12T08:30">08:30</time> Madrid-Puerta de Atocha</span>
      <span><time datetime="2026-03-12T11:15">11:15</time> Barcelona-Sants</span>
    </div>
    <p>Tren AVE 03083 - viernes 12 de marzo de 2026</p>
    <button>Confirmar plaza</button>
  </div>
  <div class="trip">
    <div class="schedule">
      <span><time>09:05</time> Sevilla-Santa Justa</span>
      <span><time>12:40</time> Valencia-Joaquín Sorolla</span>
    </div>
    <p>Tren AVLO 06224 - sábado 14 de marzo de 2026</p>
    <button>Confirmar plaza</button>
  </div>
  <div class="trip">
    <div class="schedule">
      <span><time datetime="2026-03-20T17:00">17:00</time> Madrid-Chamartín</span>
      <span><time datetime="2026-03-20T19:25">19:25</time> Alicante</span>
    </div>
    <p>Tren ALVIA 04412 - 20 de marzo de 2026</p>
    <button disabled>Confirmar plaza</button>
  </div>
</div>
</body></html>`

func TestFetchPendingButtonAnchoredStrategy(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	page := newFakePage()
	page.html = tripListHTML

	reservations, err := newTestHarvester(now).FetchPending(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, reservations, 3)

	assert.Equal(t, []string{reservationsURL}, page.navigations)

	first := reservations[0]
	assert.Equal(t, "Madrid-Puerta de Atocha", first.Origin)
	assert.Equal(t, "Barcelona-Sants", first.Destination)
	assert.Equal(t, "03083", first.TrainNumber)
	assert.Equal(t, domain.ReservationPending, first.Status)
	assert.True(t, first.Confirmable)
	assert.Equal(t, 1, first.ControlIndex, "the nav button shifts confirm controls to index 1")
	assert.Equal(t, time.Date(2026, time.March, 12, 8, 30, 0, 0, time.UTC), first.Departure)
	assert.NotEmpty(t, first.ID)

	second := reservations[1]
	assert.Equal(t, "Sevilla-Santa Justa", second.Origin)
	assert.Equal(t, "Valencia-Joaquín Sorolla", second.Destination)
	assert.Equal(t, "06224", second.TrainNumber)
	assert.True(t, second.Confirmable)
	// No machine-readable datetime on this card: the natural-language date
	// plus the earliest clock time win.
	assert.Equal(t, time.Date(2026, time.March, 14, 9, 5, 0, 0, time.UTC), second.Departure)

	third := reservations[2]
	assert.False(t, third.Confirmable, "a disabled confirm control is surfaced but not confirmable")
	assert.Equal(t, 3, third.ControlIndex)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestFetchPendingConfirmabilitySplit(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.html = tripListHTML

	reservations, err := newTestHarvester(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)).FetchPending(context.Background(), page)
	require.NoError(t, err)

	var confirmable []bool
	for _, r := range reservations {
		confirmable = append(confirmable, r.Confirmable)
	}
	assert.Equal(t, []bool{true, true, false}, confirmable)
}

const cardListHTML = `<html><body>
<div class="reservation-card">
  <span class="station">Madrid</span>
  <span class="station">Barcelona</span>
  <p>Salida 14 de abril - Tren 03083 - pendiente de confirmar</p>
  <button>Confirmar</button>
</div>
<div class="reservation-card">
  <span class="station">Girona</span>
  <span class="station">Figueres</span>
  <p>Cancelado por el operador</p>
</div>
</body></html>`

func TestFetchPendingCardStrategyFiltersNonPendingCards(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	page := newFakePage()
	page.html = cardListHTML

	reservations, err := newTestHarvester(now).FetchPending(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, reservations, 1, "cards without a pending marker are discarded by the card strategy")

	r := reservations[0]
	assert.Equal(t, "Madrid", r.Origin)
	assert.Equal(t, "Barcelona", r.Destination)
	assert.True(t, r.Confirmable)
	// Year omitted on the card: the upcoming occurrence is assumed.
	assert.Equal(t, 2026, r.Departure.Year())
	assert.Equal(t, time.April, r.Departure.Month())
	assert.Equal(t, 14, r.Departure.Day())
}

func TestFetchPendingDetectsLoginRedirect(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.onNavigate = func(f *fakePage, _ string) {
		f.location = "https://portal.example.com/login?next=%2Freservations"
	}

	_, err := newTestHarvester(time.Now()).FetchPending(context.Background(), page)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestFetchPendingUnparseablePageIsHarvestError(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.html = `<html><body><button>Confirmar</button></body></html>`

	_, err := newTestHarvester(time.Now()).FetchPending(context.Background(), page)
	assert.ErrorIs(t, err, domain.ErrNoReservations)
}

func TestFetchPendingNoControlsMeansNoReservations(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.html = `<html><body><p>No tienes viajes próximos.</p></body></html>`

	reservations, err := newTestHarvester(time.Now()).FetchPending(context.Background(), page)
	require.NoError(t, err)
	assert.Empty(t, reservations)
}
