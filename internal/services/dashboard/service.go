package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/WeatherWatch/internal/cache"
	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/BearBump/WeatherWatch/internal/observability"
	"github.com/BearBump/WeatherWatch/internal/services/impact"
	"github.com/BearBump/WeatherWatch/internal/storage/memstore"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("too many alerts for metro code")
	ErrNotFound     = memstore.ErrNotFound
)

type Repository interface {
	ListMetroCodes(ctx context.Context) ([]models.MetroCode, error)
	GetMetroCode(ctx context.Context, code string) (models.MetroCode, error)

	ListAlerts(ctx context.Context) ([]models.WeatherAlert, error)
	GetAlert(ctx context.Context, id string) (models.WeatherAlert, error)
	ApplyAlert(ctx context.Context, alert models.WeatherAlert, process memstore.AlertProcessor) ([]models.WeatherEvent, error)
	ToggleAlert(ctx context.Context, id string, fn func(models.WeatherAlert) models.WeatherAlert) (models.WeatherAlert, error)

	ListShipments(ctx context.Context) ([]models.Shipment, error)
	GetShipment(ctx context.Context, id string) (models.Shipment, error)
	GetShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (models.Shipment, error)
	UpdateShipment(ctx context.Context, id string, fn func(models.Shipment) (models.Shipment, error)) (models.Shipment, error)

	ListEvents(ctx context.Context) ([]models.WeatherEvent, error)
	EventsForShipment(ctx context.Context, shipmentID string) ([]models.WeatherEvent, error)
}

type RateLimiter interface {
	AllowAlert(ctx context.Context, metroCode string, at time.Time, perMinute int64) (bool, int64, error)
}

// ImpactNotifier is told when new weather events are waiting in the outbox.
type ImpactNotifier interface {
	Trigger()
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	trackTTL   time.Duration
	engine     *impact.Engine
	clock      clockwork.Clock
	newID      func() string
	metrics    *observability.Metrics
	rl         RateLimiter
	alertLimit int64
	notifier   ImpactNotifier
}

func New(repo Repository, c cache.BytesCache, trackTTL time.Duration) *Service {
	clock := clockwork.NewRealClock()
	return &Service{
		repo:     repo,
		cache:    c,
		trackTTL: trackTTL,
		engine:   impact.New(clock),
		clock:    clock,
		newID:    uuid.NewString,
	}
}

func (s *Service) WithClock(c clockwork.Clock) *Service {
	if c != nil {
		s.clock = c
		s.engine = impact.New(c)
	}
	return s
}

func (s *Service) WithIDGenerator(fn func() string) *Service {
	if fn != nil {
		s.newID = fn
	}
	return s
}

func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	if m != nil {
		s.metrics = m
	}
	return s
}

// WithAlertRateLimit caps alert creation per metro code per minute. perMinute <= 0 disables it.
func (s *Service) WithAlertRateLimit(rl RateLimiter, perMinute int) *Service {
	s.rl = rl
	s.alertLimit = int64(perMinute)
	return s
}

func (s *Service) WithImpactNotifier(n ImpactNotifier) *Service {
	s.notifier = n
	return s
}

type CreateAlertResult struct {
	Alert  models.WeatherAlert   `json:"alert"`
	Events []models.WeatherEvent `json:"events"`
}

func (s *Service) CreateAlert(ctx context.Context, in models.AlertInput) (CreateAlertResult, error) {
	alert, err := s.validateAlert(ctx, in)
	if err != nil {
		return CreateAlertResult{}, err
	}

	now := s.clock.Now().UTC()
	if err := s.checkAlertRate(ctx, alert.MetroCode, now); err != nil {
		return CreateAlertResult{}, err
	}

	alert.ID = s.newID()
	alert.CreatedAt = now

	var affected []models.Shipment
	events, err := s.repo.ApplyAlert(ctx, alert, func(shipments []models.Shipment) ([]models.Shipment, []models.WeatherEvent) {
		res := s.engine.ProcessNewAlert(alert, shipments)
		affected = affected[:0]
		for _, id := range res.Affected {
			for _, sh := range res.UpdatedShipments {
				if sh.ID == id {
					affected = append(affected, sh)
					break
				}
			}
		}
		return res.UpdatedShipments, res.Events
	})
	if err != nil {
		return CreateAlertResult{}, errors.Wrap(err, "apply alert")
	}

	s.metrics.AlertCreated(len(events), len(affected))
	s.refreshActiveAlerts(ctx)

	keys := make([]string, 0, len(affected))
	for _, sh := range affected {
		keys = append(keys, trackKey(sh.TrackingNumber))
	}
	s.invalidate(ctx, keys...)

	if len(events) > 0 && s.notifier != nil {
		s.notifier.Trigger()
	}

	slog.Info("weather processing complete",
		"alert_id", alert.ID, "metro_code", alert.MetroCode, "severity", alert.Severity, "affected", len(events))

	return CreateAlertResult{Alert: alert, Events: events}, nil
}

func (s *Service) validateAlert(ctx context.Context, in models.AlertInput) (models.WeatherAlert, error) {
	metro := strings.ToUpper(strings.TrimSpace(in.MetroCode))
	if metro == "" {
		return models.WeatherAlert{}, errors.Wrap(ErrInvalidInput, "metroCode is required")
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		return models.WeatherAlert{}, errors.Wrap(ErrInvalidInput, "date is required")
	}
	if _, err := time.Parse(models.AlertDateLayout, date); err != nil {
		return models.WeatherAlert{}, errors.Wrapf(ErrInvalidInput, "date must be YYYY-MM-DD, got %q", in.Date)
	}
	if strings.TrimSpace(in.WeatherType) == "" {
		return models.WeatherAlert{}, errors.Wrap(ErrInvalidInput, "weatherType is required")
	}
	wt, err := models.ParseWeatherType(in.WeatherType)
	if err != nil {
		return models.WeatherAlert{}, errors.Wrap(ErrInvalidInput, err.Error())
	}
	if strings.TrimSpace(in.Severity) == "" {
		return models.WeatherAlert{}, errors.Wrap(ErrInvalidInput, "severity is required")
	}
	sev, err := models.ParseSeverity(in.Severity)
	if err != nil {
		return models.WeatherAlert{}, errors.Wrap(ErrInvalidInput, err.Error())
	}

	// Unknown metro codes are accepted: the engine just finds nothing to delay.
	if _, err := s.repo.GetMetroCode(ctx, metro); err != nil {
		if !errors.Is(err, memstore.ErrNotFound) {
			return models.WeatherAlert{}, err
		}
		slog.Warn("alert for unknown metro code", "metro_code", metro)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return models.WeatherAlert{
		MetroCode:   metro,
		Date:        date,
		WeatherType: wt,
		Severity:    sev,
		Description: strings.TrimSpace(in.Description),
		IsActive:    active,
	}, nil
}

func (s *Service) checkAlertRate(ctx context.Context, metro string, now time.Time) error {
	if s.rl == nil || s.alertLimit <= 0 {
		return nil
	}
	allowed, n, err := s.rl.AllowAlert(ctx, metro, now, s.alertLimit)
	if err != nil {
		// The limiter is a guard rail, not a dependency: keep accepting alerts.
		slog.Warn("alert rate limiter unavailable", "error", err.Error())
		return nil
	}
	if !allowed {
		s.metrics.AlertThrottled()
		slog.Warn("alert rate limit exceeded", "metro_code", metro, "count", n)
		return errors.Wrapf(ErrRateLimited, "%s: %d alerts this minute", metro, n)
	}
	return nil
}

// ToggleAlert flips an alert's active flag. Delays already applied stay in place.
func (s *Service) ToggleAlert(ctx context.Context, id string) (models.WeatherAlert, error) {
	if strings.TrimSpace(id) == "" {
		return models.WeatherAlert{}, errors.Wrap(ErrInvalidInput, "alertId is required")
	}
	a, err := s.repo.ToggleAlert(ctx, id, impact.ToggleAlertActive)
	if err != nil {
		return models.WeatherAlert{}, err
	}
	s.refreshActiveAlerts(ctx)
	s.invalidateAlertViews(ctx, id)

	state := "deactivated"
	if a.IsActive {
		state = "activated"
	}
	slog.Info("weather alert "+state, "alert_id", a.ID, "metro_code", a.MetroCode)
	return a, nil
}

// UpdateETA sets the shipment's adjusted ETA to OriginalETA + delay. With a nil
// delayHours the delay of the shipment's latest weather event is used.
func (s *Service) UpdateETA(ctx context.Context, shipmentID string, delayHours *int) (models.Shipment, error) {
	if strings.TrimSpace(shipmentID) == "" {
		return models.Shipment{}, errors.Wrap(ErrInvalidInput, "shipmentId is required")
	}
	if delayHours != nil && *delayHours < 0 {
		return models.Shipment{}, errors.Wrap(ErrInvalidInput, "delayHours must not be negative")
	}

	if _, err := s.repo.GetShipment(ctx, shipmentID); err != nil {
		return models.Shipment{}, err
	}

	hours := 0
	if delayHours != nil {
		hours = *delayHours
	} else {
		evs, err := s.repo.EventsForShipment(ctx, shipmentID)
		if err != nil {
			return models.Shipment{}, err
		}
		ev, ok := impact.LatestEventFor(evs, shipmentID)
		if !ok {
			return models.Shipment{}, errors.Wrapf(ErrInvalidInput, "shipment %q is not affected by weather", shipmentID)
		}
		hours = ev.DelayHours
	}

	sh, err := s.repo.UpdateShipment(ctx, shipmentID, func(sh models.Shipment) (models.Shipment, error) {
		if sh.Status == models.ShipmentStatusDelivered {
			return sh, errors.Wrapf(ErrInvalidInput, "shipment %q is already delivered", shipmentID)
		}
		eta := impact.ApplyETAAdjustment(sh, hours)
		sh.AdjustedETA = &eta
		return sh, nil
	})
	if err != nil {
		return models.Shipment{}, err
	}

	s.metrics.ETAAdjusted()
	s.invalidate(ctx, trackKey(sh.TrackingNumber))
	slog.Info("ETA updated", "tracking_number", sh.TrackingNumber, "delay_hours", hours, "adjusted_eta", sh.AdjustedETA)
	return sh, nil
}

func (s *Service) ListMetroCodes(ctx context.Context) ([]models.MetroCode, error) {
	return s.repo.ListMetroCodes(ctx)
}

func (s *Service) ListAlerts(ctx context.Context) ([]models.WeatherAlert, error) {
	return s.repo.ListAlerts(ctx)
}

func (s *Service) ListEvents(ctx context.Context) ([]models.WeatherEvent, error) {
	return s.repo.ListEvents(ctx)
}

// ShipmentRow is a shipment as shown in the shipment table.
type ShipmentRow struct {
	models.Shipment
	WeatherAffected bool `json:"weatherAffected"`
	DelayHours      int  `json:"delayHours"`
	CanUpdateETA    bool `json:"canUpdateETA"`
}

func (s *Service) ListShipments(ctx context.Context) ([]ShipmentRow, error) {
	shs, err := s.repo.ListShipments(ctx)
	if err != nil {
		return nil, err
	}
	evs, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	latest := impact.LatestEvents(evs)

	out := make([]ShipmentRow, 0, len(shs))
	for _, sh := range shs {
		row := ShipmentRow{Shipment: sh}
		if ev, ok := latest[sh.ID]; ok {
			row.WeatherAffected = true
			row.DelayHours = ev.DelayHours
			row.CanUpdateETA = sh.AdjustedETA == nil && sh.Status != models.ShipmentStatusDelivered
		}
		out = append(out, row)
	}
	return out, nil
}

type Stats struct {
	ActiveAlerts    int `json:"activeAlerts"`
	TotalShipments  int `json:"totalShipments"`
	WeatherAffected int `json:"weatherAffected"`
	InTransit       int `json:"inTransit"`
	Delayed         int `json:"delayed"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	alerts, err := s.repo.ListAlerts(ctx)
	if err != nil {
		return Stats{}, err
	}
	shs, err := s.repo.ListShipments(ctx)
	if err != nil {
		return Stats{}, err
	}
	evs, err := s.repo.ListEvents(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{TotalShipments: len(shs), WeatherAffected: len(evs)}
	for _, a := range alerts {
		if a.IsActive {
			st.ActiveAlerts++
		}
	}
	for _, sh := range shs {
		switch sh.Status {
		case models.ShipmentStatusInTransit:
			st.InTransit++
		case models.ShipmentStatusDelayed:
			st.Delayed++
		}
	}
	return st, nil
}

func (s *Service) refreshActiveAlerts(ctx context.Context) {
	alerts, err := s.repo.ListAlerts(ctx)
	if err != nil {
		return
	}
	n := 0
	for _, a := range alerts {
		if a.IsActive {
			n++
		}
	}
	s.metrics.SetActiveAlerts(n)
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("cache invalidation failed", "keys", len(keys), "error", err.Error())
	}
}

// invalidateAlertViews drops cached tracking views that embed alert id.
func (s *Service) invalidateAlertViews(ctx context.Context, alertID string) {
	if s.cache == nil {
		return
	}
	evs, err := s.repo.ListEvents(ctx)
	if err != nil {
		return
	}
	var alertEvs []models.WeatherEvent
	for _, ev := range evs {
		if ev.WeatherAlertID == alertID {
			alertEvs = append(alertEvs, ev)
		}
	}
	if len(alertEvs) == 0 {
		return
	}
	shs, err := s.repo.ListShipments(ctx)
	if err != nil {
		return
	}
	var keys []string
	for _, sh := range shs {
		if impact.AffectedBy(alertEvs, sh.ID) {
			keys = append(keys, trackKey(sh.TrackingNumber))
		}
	}
	s.invalidate(ctx, keys...)
}

func trackKey(trackingNumber string) string {
	return fmt.Sprintf("track:%s:view", trackingNumber)
}
