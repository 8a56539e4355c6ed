package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/BearBump/WeatherWatch/internal/services/impact"
	"github.com/pkg/errors"
)

type ProgressStep struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
}

// TrackingView is what a customer sees for one tracking number.
type TrackingView struct {
	Shipment         models.Shipment      `json:"shipment"`
	ExpectedDelivery time.Time            `json:"expectedDelivery"`
	WeatherEvent     *models.WeatherEvent `json:"weatherEvent,omitempty"`
	WeatherAlert     *models.WeatherAlert `json:"weatherAlert,omitempty"`
	Progress         []ProgressStep       `json:"progress"`
	Notice           string               `json:"notice,omitempty"`
}

func (s *Service) TrackShipment(ctx context.Context, trackingNumber string) (TrackingView, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return TrackingView{}, errors.Wrap(ErrInvalidInput, "trackingNumber is required")
	}

	key := trackKey(trackingNumber)
	if s.cache != nil && s.trackTTL > 0 {
		b, ok, err := s.cache.Get(ctx, key)
		if err == nil && ok {
			var v TrackingView
			if json.Unmarshal(b, &v) == nil {
				return v, nil
			}
		}
	}

	sh, err := s.repo.GetShipmentByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return TrackingView{}, err
	}

	v := TrackingView{
		Shipment:         sh,
		ExpectedDelivery: expectedDelivery(sh),
		Progress:         progressSteps(sh.Status),
	}

	evs, err := s.repo.EventsForShipment(ctx, sh.ID)
	if err != nil {
		return TrackingView{}, err
	}
	if ev, ok := impact.LatestEventFor(evs, sh.ID); ok {
		v.WeatherEvent = &ev
		a, err := s.repo.GetAlert(ctx, ev.WeatherAlertID)
		switch {
		case err == nil:
			v.WeatherAlert = &a
			v.Notice = delayNotice(a, ev)
		case errors.Is(err, ErrNotFound):
			slog.Warn("weather event references missing alert", "event_id", ev.ID, "alert_id", ev.WeatherAlertID)
		default:
			return TrackingView{}, err
		}
	}

	if s.cache != nil && s.trackTTL > 0 {
		b, _ := json.Marshal(v)
		_ = s.cache.Set(ctx, key, b, s.trackTTL)
	}
	return v, nil
}

func progressSteps(st models.ShipmentStatus) []ProgressStep {
	delivered := st == models.ShipmentStatusDelivered
	return []ProgressStep{
		{ID: "processing", Label: "Processing", Completed: true},
		{ID: "in_transit", Label: "In Transit", Completed: st != models.ShipmentStatusProcessing},
		{ID: "out_for_delivery", Label: "Out for Delivery", Completed: delivered},
		{ID: "delivered", Label: "Delivered", Completed: delivered},
	}
}

func delayNotice(a models.WeatherAlert, ev models.WeatherEvent) string {
	return fmt.Sprintf("Your package delivery may be delayed due to %s in %s. Expected delay: %d hours.",
		a.WeatherType, a.MetroCode, ev.DelayHours)
}

// expectedDelivery is the adjusted ETA when set, otherwise the original one.
func expectedDelivery(sh models.Shipment) time.Time {
	if sh.AdjustedETA != nil {
		return *sh.AdjustedETA
	}
	return sh.OriginalETA
}
