package memstore

import (
	"context"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/pkg/errors"
)

// AlertProcessor receives the current shipments and returns the replacement
// collection plus the events to append.
type AlertProcessor func(shipments []models.Shipment) ([]models.Shipment, []models.WeatherEvent)

// ApplyAlert appends alert, runs process over the shipment collection and stores
// its output, all under one write lock. Each new event also lands in the outbox.
func (s *Storage) ApplyAlert(ctx context.Context, alert models.WeatherAlert, process AlertProcessor) ([]models.WeatherEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alertIdx[alert.ID]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "alert %q", alert.ID)
	}

	current := append([]models.Shipment(nil), s.shipments...)
	updated, events := process(current)
	if len(updated) != len(s.shipments) {
		return nil, errors.New("alert processor changed shipment count")
	}

	s.alerts = append(s.alerts, alert)
	s.shipments = updated
	s.events = append(s.events, events...)
	s.reindex()

	for _, ev := range events {
		tn := ""
		if i, ok := s.shipmentIdx[ev.ShipmentID]; ok {
			tn = s.shipments[i].TrackingNumber
		}
		e := &ImpactOutboxEntry{
			ID:             ev.ID,
			Event:          ev,
			Alert:          alert,
			TrackingNumber: tn,
		}
		s.outbox = append(s.outbox, e)
		s.outboxIdx[e.ID] = e
	}

	return append([]models.WeatherEvent{}, events...), nil
}

func (s *Storage) ToggleAlert(ctx context.Context, id string, fn func(models.WeatherAlert) models.WeatherAlert) (models.WeatherAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.alertIdx[id]
	if !ok {
		return models.WeatherAlert{}, errors.Wrapf(ErrNotFound, "alert %q", id)
	}
	next := fn(s.alerts[i])
	next.ID = id
	s.alerts[i] = next
	return next, nil
}

func (s *Storage) GetAlert(ctx context.Context, id string) (models.WeatherAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.alertIdx[id]
	if !ok {
		return models.WeatherAlert{}, errors.Wrapf(ErrNotFound, "alert %q", id)
	}
	return s.alerts[i], nil
}

func (s *Storage) ListAlerts(ctx context.Context) ([]models.WeatherAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WeatherAlert{}, s.alerts...), nil
}
