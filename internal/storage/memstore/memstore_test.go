package memstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/stretchr/testify/require"
)

func newSeeded(t *testing.T) *Storage {
	t.Helper()
	st, err := New(DefaultSeed())
	require.NoError(t, err)
	return st
}

func delayAll(metro string, events func(sh models.Shipment) models.WeatherEvent) AlertProcessor {
	return func(shipments []models.Shipment) ([]models.Shipment, []models.WeatherEvent) {
		var evs []models.WeatherEvent
		for i, sh := range shipments {
			if sh.DestinationMetroCode == metro && sh.Status != models.ShipmentStatusDelivered {
				shipments[i].Status = models.ShipmentStatusDelayed
				evs = append(evs, events(sh))
			}
		}
		return shipments, evs
	}
}

func TestMemstore_RepoFlow(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	alerts, err := st.ListAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	alert := models.WeatherAlert{ID: "a2", MetroCode: "NYC", Severity: models.SeverityLow, WeatherType: models.WeatherTypeFlooding}
	evs, err := st.ApplyAlert(ctx, alert, delayAll("NYC", func(sh models.Shipment) models.WeatherEvent {
		return models.WeatherEvent{ID: "a2-" + sh.ID, WeatherAlertID: "a2", ShipmentID: sh.ID, DelayHours: 12}
	}))
	require.NoError(t, err)
	require.Len(t, evs, 2)

	all, err := st.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "1", all[0].ID)
	require.Equal(t, "a2-2", all[1].ID)
	require.Equal(t, "a2-5", all[2].ID)

	sh, err := st.GetShipmentByTrackingNumber(ctx, "BTS001234568")
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusDelayed, sh.Status)

	forShipment, err := st.EventsForShipment(ctx, "5")
	require.NoError(t, err)
	require.Len(t, forShipment, 1)

	pending, err := st.PendingImpacts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, pending)

	_, err = st.ApplyAlert(ctx, alert, delayAll("NYC", func(models.Shipment) models.WeatherEvent { return models.WeatherEvent{} }))
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemstore_ApplyAlert_RejectsShrinkingProcessor(t *testing.T) {
	st := newSeeded(t)
	_, err := st.ApplyAlert(context.Background(), models.WeatherAlert{ID: "bad"}, func(shipments []models.Shipment) ([]models.Shipment, []models.WeatherEvent) {
		return shipments[:1], nil
	})
	require.Error(t, err)

	alerts, _ := st.ListAlerts(context.Background())
	require.Len(t, alerts, 1)
}

func TestMemstore_UpdateShipment(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	eta := time.Date(2024, time.July, 16, 14, 0, 0, 0, time.UTC)
	got, err := st.UpdateShipment(ctx, "1", func(sh models.Shipment) (models.Shipment, error) {
		sh.AdjustedETA = &eta
		sh.TrackingNumber = "ignored"
		return sh, nil
	})
	require.NoError(t, err)
	require.Equal(t, "BTS001234567", got.TrackingNumber)
	require.Equal(t, eta, *got.AdjustedETA)

	want := errors.New("nope")
	_, err = st.UpdateShipment(ctx, "1", func(sh models.Shipment) (models.Shipment, error) {
		return sh, want
	})
	require.ErrorIs(t, err, want)

	_, err = st.UpdateShipment(ctx, "404", func(sh models.Shipment) (models.Shipment, error) { return sh, nil })
	require.ErrorIs(t, err, ErrNotFound)

	// returned copies do not alias stored state
	*got.AdjustedETA = time.Time{}
	again, err := st.GetShipment(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, eta, *again.AdjustedETA)
}

func TestMemstore_ToggleAlert(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	a, err := st.ToggleAlert(ctx, "1", func(a models.WeatherAlert) models.WeatherAlert {
		a.IsActive = !a.IsActive
		return a
	})
	require.NoError(t, err)
	require.False(t, a.IsActive)

	_, err = st.ToggleAlert(ctx, "missing", func(a models.WeatherAlert) models.WeatherAlert { return a })
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemstore_OutboxLease(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	_, err := st.ApplyAlert(ctx, models.WeatherAlert{ID: "a3", MetroCode: "DFW"}, delayAll("DFW", func(sh models.Shipment) models.WeatherEvent {
		return models.WeatherEvent{ID: "a3-" + sh.ID, WeatherAlertID: "a3", ShipmentID: sh.ID}
	}))
	require.NoError(t, err)

	now := time.Now().UTC()
	lease := 10 * time.Second
	due, err := st.ClaimPendingImpacts(ctx, now, 10, lease)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "a3-6", due[0].ID)
	require.Equal(t, "BTS001234582", due[0].TrackingNumber)
	require.WithinDuration(t, now.Add(lease), due[0].NextAttemptAt, time.Second)

	// leased: not claimable again until the lease expires
	again, err := st.ClaimPendingImpacts(ctx, now, 10, lease)
	require.NoError(t, err)
	require.Empty(t, again)

	require.NoError(t, st.ReleaseImpact(ctx, "a3-6", now.Add(-time.Second), "boom"))
	retry, err := st.ClaimPendingImpacts(ctx, now, 10, lease)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	require.Equal(t, int32(1), retry[0].FailCount)

	require.NoError(t, st.MarkImpactPublished(ctx, "a3-6", now))
	n, err := st.PendingImpacts(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.ErrorIs(t, st.MarkImpactPublished(ctx, "missing", now), ErrNotFound)
	require.ErrorIs(t, st.MarkImpactPublished(ctx, "a3-6", now), ErrNotFound)
	require.ErrorIs(t, st.ReleaseImpact(ctx, "a3-6", now, "late"), ErrNotFound)

	// published entries leave the queue on the next claim
	none, err := st.ClaimPendingImpacts(ctx, now.Add(time.Hour), 10, lease)
	require.NoError(t, err)
	require.Empty(t, none)
	require.Empty(t, st.outbox)
	require.Empty(t, st.outboxIdx)
}

func TestMemstore_OutboxPrunesOnlyPublished(t *testing.T) {
	ctx := context.Background()
	st := newSeeded(t)

	_, err := st.ApplyAlert(ctx, models.WeatherAlert{ID: "a4", MetroCode: "NYC"}, delayAll("NYC", func(sh models.Shipment) models.WeatherEvent {
		return models.WeatherEvent{ID: "a4-" + sh.ID, WeatherAlertID: "a4", ShipmentID: sh.ID}
	}))
	require.NoError(t, err)
	require.Len(t, st.outbox, 2)

	now := time.Now().UTC()
	first, err := st.ClaimPendingImpacts(ctx, now, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, "a4-2", first[0].ID)
	require.NoError(t, st.MarkImpactPublished(ctx, "a4-2", now))

	rest, err := st.ClaimPendingImpacts(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "a4-5", rest[0].ID)
	require.Len(t, st.outbox, 1)

	n, err := st.PendingImpacts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNew_RejectsDanglingEvent(t *testing.T) {
	seed := DefaultSeed()
	seed.Events = append(seed.Events, models.WeatherEvent{ID: "x", WeatherAlertID: "1", ShipmentID: "99"})
	_, err := New(seed)
	require.Error(t, err)
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
metro_codes:
  - code: "SEA"
    name: "Seattle"
    state: "WA"
shipments:
  - id: "s1"
    tracking_number: "BTS900000001"
    destination_metro_code: "SEA"
    original_eta: 2024-07-15T14:00:00Z
    status: "in_transit"
    scan_timestamp: 2024-07-12T08:30:00Z
    customer_name: "Acme"
    origin: "Portland, OR"
    destination: "Seattle, WA"
`), 0o600))

	seed, err := LoadSeed(p)
	require.NoError(t, err)
	require.Len(t, seed.MetroCodes, 1)
	require.Len(t, seed.Shipments, 1)
	require.Equal(t, models.ShipmentStatusInTransit, seed.Shipments[0].Status)
	require.Equal(t, time.Date(2024, time.July, 15, 14, 0, 0, 0, time.UTC), seed.Shipments[0].OriginalETA.UTC())

	st, err := New(seed)
	require.NoError(t, err)
	m, err := st.GetMetroCode(context.Background(), "SEA")
	require.NoError(t, err)
	require.Equal(t, "Seattle", m.Name)

	_, err = LoadSeed(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
