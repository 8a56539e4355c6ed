// Package relay publishes pending weather impacts from the store's outbox to Kafka.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/WeatherWatch/internal/broker/messages"
	"github.com/BearBump/WeatherWatch/internal/observability"
	"github.com/BearBump/WeatherWatch/internal/storage/memstore"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

type Repository interface {
	ClaimPendingImpacts(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]memstore.ImpactOutboxEntry, error)
	MarkImpactPublished(ctx context.Context, id string, at time.Time) error
	ReleaseImpact(ctx context.Context, id string, nextAttemptAt time.Time, lastErr string) error
	PendingImpacts(ctx context.Context) (int, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Relay struct {
	repo     Repository
	producer Producer
	topic    string

	clock   clockwork.Clock
	backoff *Backoff
	metrics *observability.Metrics

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration
	attempts     int
	retryWait    time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalPublished      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, producer Producer, topic string) *Relay {
	clock := clockwork.NewRealClock()
	return &Relay{
		repo: repo, producer: producer, topic: topic,
		clock:             clock,
		backoff:           NewBackoff(DefaultBackoffConfig()),
		pollInterval:      2 * time.Second,
		batchSize:         100,
		concurrency:       4,
		lease:             60 * time.Second,
		attempts:          5,
		retryWait:         150 * time.Millisecond,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: clock.Now().UTC().UnixNano(),
	}
}

func (r *Relay) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration) *Relay {
	if pollInterval > 0 {
		r.pollInterval = pollInterval
	}
	if batchSize > 0 {
		r.batchSize = batchSize
	}
	if concurrency > 0 {
		r.concurrency = concurrency
	}
	if lease > 0 {
		r.lease = lease
	}
	return r
}

// WithPublishRetries sets how many times one entry is sent within a cycle before
// it is released with backoff. wait grows linearly between attempts.
func (r *Relay) WithPublishRetries(attempts int, wait time.Duration) *Relay {
	if attempts > 0 {
		r.attempts = attempts
	}
	if wait >= 0 {
		r.retryWait = wait
	}
	return r
}

func (r *Relay) WithBackoff(cfg BackoffConfig) *Relay {
	r.backoff = NewBackoff(cfg)
	return r
}

func (r *Relay) WithClock(c clockwork.Clock) *Relay {
	if c != nil {
		r.clock = c
	}
	return r
}

func (r *Relay) WithMetrics(m *observability.Metrics) *Relay {
	if m != nil {
		r.metrics = m
	}
	return r
}

// Trigger forces an immediate cycle (best-effort, non-blocking).
func (r *Relay) Trigger() {
	r.lastTriggerUnixNano.Store(r.clock.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalPublished int64      `json:"totalPublished"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	Pending        int        `json:"pending"`
	LastError      string     `json:"lastError,omitempty"`
}

func (r *Relay) Stats(ctx context.Context) Stats {
	st := Stats{
		StartedAt:      time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalClaimed:   r.totalClaimed.Load(),
		TotalPublished: r.totalPublished.Load(),
		TotalErrors:    r.totalErrors.Load(),
		InFlight:       r.inFlight.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	if n, err := r.repo.PendingImpacts(ctx); err == nil {
		st.Pending = n
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Relay) Run(ctx context.Context) error {
	t := r.clock.NewTicker(r.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Chan():
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Relay) runOnce(ctx context.Context) {
	now := r.clock.Now().UTC()
	r.lastCycleUnixNano.Store(now.UnixNano())

	items, err := r.repo.ClaimPendingImpacts(ctx, now, r.batchSize, r.lease)
	if err != nil {
		slog.Error("claim pending impacts", "error", err.Error())
		r.setLastError(err)
		return
	}
	r.totalClaimed.Add(int64(len(items)))

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, e := range items {
		sem <- struct{}{}
		wg.Add(1)
		r.inFlight.Add(1)
		go func(e memstore.ImpactOutboxEntry) {
			defer func() {
				r.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := r.processOne(ctx, e); err != nil {
				r.totalErrors.Add(1)
				r.setLastError(err)
				slog.Error("publish weather impact", "event_id", e.ID, "error", err.Error())
			}
		}(e)
	}
	wg.Wait()
}

func (r *Relay) processOne(ctx context.Context, e memstore.ImpactOutboxEntry) error {
	b, err := json.Marshal(impactMessage(e))
	if err != nil {
		return errors.Wrap(err, "marshal weather impact")
	}

	key := []byte(e.Event.ShipmentID)
	var pubErr error
retry:
	for i := 0; i < r.attempts; i++ {
		if pubErr = r.producer.Publish(ctx, r.topic, key, b); pubErr == nil {
			break
		}
		if i < r.attempts-1 && r.retryWait > 0 {
			select {
			case <-ctx.Done():
				break retry
			case <-r.clock.After(time.Duration(i+1) * r.retryWait):
			}
		}
	}

	now := r.clock.Now().UTC()
	if pubErr != nil {
		r.metrics.ImpactPublishFailed()
		next := now.Add(r.backoff.Delay(e.FailCount + 1))
		if err := r.repo.ReleaseImpact(ctx, e.ID, next, pubErr.Error()); err != nil {
			return errors.Wrap(err, "release weather impact")
		}
		return pubErr
	}

	if err := r.repo.MarkImpactPublished(ctx, e.ID, now); err != nil {
		return errors.Wrap(err, "mark weather impact published")
	}
	r.totalPublished.Add(1)
	r.metrics.ImpactPublished()
	return nil
}

func impactMessage(e memstore.ImpactOutboxEntry) messages.WeatherImpact {
	return messages.WeatherImpact{
		EventID:        e.Event.ID,
		AlertID:        e.Alert.ID,
		ShipmentID:     e.Event.ShipmentID,
		TrackingNumber: e.TrackingNumber,
		MetroCode:      e.Alert.MetroCode,
		WeatherType:    string(e.Alert.WeatherType),
		Severity:       string(e.Alert.Severity),
		ImpactLevel:    string(e.Event.ImpactLevel),
		DelayHours:     e.Event.DelayHours,
		CreatedAt:      e.Event.CreatedAt,
	}
}

func (r *Relay) setLastError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}
