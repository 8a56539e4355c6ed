// Package memstore keeps alerts, shipments, weather events and the impact outbox
// in process memory. Collections preserve insertion order and every command
// runs under a single write lock, so one operator action is never interleaved
// with another.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type Storage struct {
	mu sync.RWMutex

	metroCodes []models.MetroCode
	alerts     []models.WeatherAlert
	shipments  []models.Shipment
	events     []models.WeatherEvent
	outbox     []*ImpactOutboxEntry // pending entries in enqueue order

	alertIdx    map[string]int
	shipmentIdx map[string]int
	trackingIdx map[string]int
	outboxIdx   map[string]*ImpactOutboxEntry
}

func New(seed Seed) (*Storage, error) {
	if err := seed.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid seed")
	}

	s := &Storage{
		metroCodes: append([]models.MetroCode(nil), seed.MetroCodes...),
		alerts:     append([]models.WeatherAlert(nil), seed.Alerts...),
		shipments:  append([]models.Shipment(nil), seed.Shipments...),
		events:     append([]models.WeatherEvent(nil), seed.Events...),
		outboxIdx:  make(map[string]*ImpactOutboxEntry),
	}
	s.reindex()
	return s, nil
}

func (s *Storage) reindex() {
	s.alertIdx = make(map[string]int, len(s.alerts))
	for i, a := range s.alerts {
		s.alertIdx[a.ID] = i
	}
	s.shipmentIdx = make(map[string]int, len(s.shipments))
	s.trackingIdx = make(map[string]int, len(s.shipments))
	for i, sh := range s.shipments {
		s.shipmentIdx[sh.ID] = i
		s.trackingIdx[sh.TrackingNumber] = i
	}
}

// Ping reports whether the store can serve requests.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Storage) ListMetroCodes(ctx context.Context) ([]models.MetroCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.MetroCode{}, s.metroCodes...), nil
}

func (s *Storage) GetMetroCode(ctx context.Context, code string) (models.MetroCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.metroCodes {
		if m.Code == code {
			return m, nil
		}
	}
	return models.MetroCode{}, errors.Wrapf(ErrNotFound, "metro code %q", code)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
