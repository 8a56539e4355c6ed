package dashboard

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BearBump/WeatherWatch/internal/broker/messages"
	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/pkg/errors"
)

// ApplyShipmentUpdate applies a carrier scan. Scans that would move the shipment
// backwards, set delayed, or touch a delivered shipment are ignored and the call
// returns applied=false.
func (s *Service) ApplyShipmentUpdate(ctx context.Context, msg messages.ShipmentUpdated) (bool, error) {
	id := strings.TrimSpace(msg.ShipmentID)
	if id == "" && strings.TrimSpace(msg.TrackingNumber) != "" {
		sh, err := s.repo.GetShipmentByTrackingNumber(ctx, strings.TrimSpace(msg.TrackingNumber))
		if err != nil {
			s.metrics.ShipmentUpdate("invalid")
			return false, err
		}
		id = sh.ID
	}
	if id == "" {
		s.metrics.ShipmentUpdate("invalid")
		return false, errors.Wrap(ErrInvalidInput, "shipment_id or tracking_number is required")
	}

	status, err := models.ParseShipmentStatus(msg.Status)
	if err != nil {
		s.metrics.ShipmentUpdate("invalid")
		return false, errors.Wrap(ErrInvalidInput, err.Error())
	}
	scanAt := msg.ScanTimestamp
	if scanAt.IsZero() {
		scanAt = s.clock.Now()
	}

	applied := false
	var from models.ShipmentStatus
	sh, err := s.repo.UpdateShipment(ctx, id, func(sh models.Shipment) (models.Shipment, error) {
		from = sh.Status
		if !sh.Status.CanTransitionTo(status) {
			return sh, nil
		}
		sh.Status = status
		sh.ScanTimestamp = scanAt.UTC()
		applied = true
		return sh, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.ShipmentUpdate("invalid")
		}
		return false, err
	}

	if !applied {
		s.metrics.ShipmentUpdate("ignored")
		slog.Info("scan ignored", "tracking_number", sh.TrackingNumber, "from", from, "to", status)
		return false, nil
	}

	s.metrics.ShipmentUpdate("applied")
	s.invalidate(ctx, trackKey(sh.TrackingNumber))
	slog.Info("shipment scan applied", "tracking_number", sh.TrackingNumber, "status", sh.Status)
	return true, nil
}
