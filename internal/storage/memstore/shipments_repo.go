package memstore

import (
	"context"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/pkg/errors"
)

// UpdateShipment replaces shipment id with fn's result. An error from fn leaves
// the shipment untouched.
func (s *Storage) UpdateShipment(ctx context.Context, id string, fn func(models.Shipment) (models.Shipment, error)) (models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.shipmentIdx[id]
	if !ok {
		return models.Shipment{}, errors.Wrapf(ErrNotFound, "shipment %q", id)
	}
	next, err := fn(cloneShipment(s.shipments[i]))
	if err != nil {
		return models.Shipment{}, err
	}
	next.ID = id
	next.TrackingNumber = s.shipments[i].TrackingNumber
	s.shipments[i] = next
	return cloneShipment(next), nil
}

func (s *Storage) GetShipment(ctx context.Context, id string) (models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.shipmentIdx[id]
	if !ok {
		return models.Shipment{}, errors.Wrapf(ErrNotFound, "shipment %q", id)
	}
	return cloneShipment(s.shipments[i]), nil
}

func (s *Storage) GetShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.trackingIdx[trackingNumber]
	if !ok {
		return models.Shipment{}, errors.Wrapf(ErrNotFound, "tracking number %q", trackingNumber)
	}
	return cloneShipment(s.shipments[i]), nil
}

func (s *Storage) ListShipments(ctx context.Context) ([]models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Shipment, 0, len(s.shipments))
	for _, sh := range s.shipments {
		out = append(out, cloneShipment(sh))
	}
	return out, nil
}

func cloneShipment(sh models.Shipment) models.Shipment {
	sh.AdjustedETA = cloneTime(sh.AdjustedETA)
	return sh
}
