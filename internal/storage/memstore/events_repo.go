package memstore

import (
	"context"
	"time"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/pkg/errors"
)

// ImpactOutboxEntry is a weather event waiting to be published downstream.
type ImpactOutboxEntry struct {
	ID             string
	Event          models.WeatherEvent
	Alert          models.WeatherAlert
	TrackingNumber string

	FailCount     int32
	NextAttemptAt time.Time
	LastError     *string
	PublishedAt   *time.Time
}

func (s *Storage) ListEvents(ctx context.Context) ([]models.WeatherEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WeatherEvent{}, s.events...), nil
}

// EventsForShipment returns the shipment's events in creation order.
func (s *Storage) EventsForShipment(ctx context.Context, shipmentID string) ([]models.WeatherEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.WeatherEvent
	for _, ev := range s.events {
		if ev.ShipmentID == shipmentID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// ClaimPendingImpacts picks up to limit unpublished entries due at now and
// leases them until now+lease so a concurrent claim skips them.
func (s *Storage) ClaimPendingImpacts(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]ImpactOutboxEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	leaseUntil := now.UTC().Add(lease)
	var picked []ImpactOutboxEntry
	kept := s.outbox[:0]
	for _, e := range s.outbox {
		if e.PublishedAt != nil {
			continue
		}
		kept = append(kept, e)
		if len(picked) >= limit || e.NextAttemptAt.After(now) {
			continue
		}
		e.NextAttemptAt = leaseUntil
		picked = append(picked, *e)
	}
	for i := len(kept); i < len(s.outbox); i++ {
		s.outbox[i] = nil
	}
	s.outbox = kept
	return picked, nil
}

// MarkImpactPublished drops the entry from the pending index. The queue slice
// sheds it on the next claim.
func (s *Storage) MarkImpactPublished(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.outboxIdx[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "outbox entry %q", id)
	}
	t := at.UTC()
	e.PublishedAt = &t
	e.LastError = nil
	delete(s.outboxIdx, id)
	return nil
}

// ReleaseImpact records a failed publish and schedules the next attempt.
func (s *Storage) ReleaseImpact(ctx context.Context, id string, nextAttemptAt time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.outboxIdx[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "outbox entry %q", id)
	}
	e.FailCount++
	e.NextAttemptAt = nextAttemptAt.UTC()
	e.LastError = &lastErr
	return nil
}

// PendingImpacts counts entries not yet published.
func (s *Storage) PendingImpacts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outboxIdx), nil
}
