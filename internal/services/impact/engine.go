// Package impact decides which shipments a weather alert affects and by how much.
//
// Everything here is a pure function of its inputs (plus the engine clock for
// CreatedAt fields). Callers own persistence and must apply a Result atomically.
package impact

import (
	"time"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/jonboulle/clockwork"
)

type Result struct {
	Events           []models.WeatherEvent
	UpdatedShipments []models.Shipment
	// Affected holds the ids of shipments moved to delayed, in selection order.
	Affected []string
}

type Engine struct {
	clock clockwork.Clock
}

// New returns an engine reading time from clock; nil means the real clock.
func New(clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{clock: clock}
}

// SeverityToDelayHours maps a severity to the delay applied to affected shipments.
// Severity must be validated upstream; unknown values yield 0.
func SeverityToDelayHours(s models.Severity) int {
	switch s {
	case models.SeverityLow:
		return 12
	case models.SeverityMedium:
		return 24
	case models.SeverityHigh:
		return 48
	case models.SeverityCritical:
		return 72
	}
	return 0
}

func SeverityToImpactLevel(s models.Severity) models.ImpactLevel {
	switch s {
	case models.SeverityLow:
		return models.ImpactLevelMinor
	case models.SeverityMedium:
		return models.ImpactLevelModerate
	case models.SeverityHigh:
		return models.ImpactLevelMajor
	case models.SeverityCritical:
		return models.ImpactLevelSevere
	}
	return ""
}

func EventID(alertID, shipmentID string) string {
	return alertID + "-" + shipmentID
}

// ProcessNewAlert selects every non-delivered shipment bound for alert.MetroCode,
// emits one event per selected shipment and marks it delayed.
// Inputs are never mutated. An unknown metro code simply matches nothing.
func (e *Engine) ProcessNewAlert(alert models.WeatherAlert, shipments []models.Shipment) Result {
	now := e.clock.Now().UTC()
	delay := SeverityToDelayHours(alert.Severity)
	level := SeverityToImpactLevel(alert.Severity)

	res := Result{
		Events:           []models.WeatherEvent{},
		UpdatedShipments: make([]models.Shipment, len(shipments)),
		Affected:         []string{},
	}
	copy(res.UpdatedShipments, shipments)

	for i, sh := range shipments {
		if !affects(alert, sh) {
			continue
		}
		res.Events = append(res.Events, models.WeatherEvent{
			ID:               EventID(alert.ID, sh.ID),
			WeatherAlertID:   alert.ID,
			ShipmentID:       sh.ID,
			ImpactLevel:      level,
			DelayHours:       delay,
			CreatedAt:        now,
			NotificationSent: false,
		})
		sh.Status = models.ShipmentStatusDelayed
		res.UpdatedShipments[i] = sh
		res.Affected = append(res.Affected, sh.ID)
	}
	return res
}

func affects(alert models.WeatherAlert, sh models.Shipment) bool {
	return sh.DestinationMetroCode == alert.MetroCode && sh.Status != models.ShipmentStatusDelivered
}

// ApplyETAAdjustment returns OriginalETA shifted by delayHours. Prior adjustments
// are ignored, so repeated calls overwrite rather than stack.
func ApplyETAAdjustment(sh models.Shipment, delayHours int) time.Time {
	return sh.OriginalETA.Add(time.Duration(delayHours) * time.Hour)
}

// ToggleAlertActive flips IsActive. It does not touch shipments or events.
func ToggleAlertActive(alert models.WeatherAlert) models.WeatherAlert {
	alert.IsActive = !alert.IsActive
	return alert
}

// AffectedBy reports whether any event references shipmentID.
func AffectedBy(events []models.WeatherEvent, shipmentID string) bool {
	for _, ev := range events {
		if ev.ShipmentID == shipmentID {
			return true
		}
	}
	return false
}

// LatestEventFor returns the shipment's event with the greatest CreatedAt.
// Equal timestamps resolve to the one later in events.
func LatestEventFor(events []models.WeatherEvent, shipmentID string) (models.WeatherEvent, bool) {
	var best models.WeatherEvent
	found := false
	for _, ev := range events {
		if ev.ShipmentID != shipmentID {
			continue
		}
		if !found || !ev.CreatedAt.Before(best.CreatedAt) {
			best, found = ev, true
		}
	}
	return best, found
}

// LatestEvents indexes LatestEventFor for every shipment in one pass.
func LatestEvents(events []models.WeatherEvent) map[string]models.WeatherEvent {
	out := make(map[string]models.WeatherEvent, len(events))
	for _, ev := range events {
		if cur, ok := out[ev.ShipmentID]; !ok || !ev.CreatedAt.Before(cur.CreatedAt) {
			out[ev.ShipmentID] = ev
		}
	}
	return out
}
