package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/WeatherWatch/internal/broker/messages"
	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/BearBump/WeatherWatch/internal/observability"
	"github.com/BearBump/WeatherWatch/internal/storage/memstore"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu        sync.Mutex
	err       error
	onPublish func()
	calls  int
	topic  string
	keys   []string
	values [][]byte
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.onPublish != nil {
		p.onPublish()
	}
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.keys = append(p.keys, string(key))
	p.values = append(p.values, value)
	return nil
}

var t0 = time.Date(2024, time.July, 14, 12, 0, 0, 0, time.UTC)

// storeWithImpact returns a seeded store holding one pending impact for shipment 6 (DFW).
func storeWithImpact(t *testing.T) *memstore.Storage {
	t.Helper()
	st, err := memstore.New(memstore.DefaultSeed())
	require.NoError(t, err)

	alert := models.WeatherAlert{
		ID: "a9", MetroCode: "DFW", Date: "2024-07-14",
		WeatherType: models.WeatherTypeThunderstorm, Severity: models.SeverityMedium, IsActive: true,
	}
	_, err = st.ApplyAlert(context.Background(), alert, func(shipments []models.Shipment) ([]models.Shipment, []models.WeatherEvent) {
		var evs []models.WeatherEvent
		for i, sh := range shipments {
			if sh.ID == "6" {
				shipments[i].Status = models.ShipmentStatusDelayed
				evs = append(evs, models.WeatherEvent{
					ID: "a9-6", WeatherAlertID: "a9", ShipmentID: "6",
					ImpactLevel: models.ImpactLevelModerate, DelayHours: 24, CreatedAt: t0,
				})
			}
		}
		return shipments, evs
	})
	require.NoError(t, err)
	return st
}

func TestRelay_runOnce_publishesOnce(t *testing.T) {
	st := storeWithImpact(t)
	fp := &fakeProducer{}
	clock := clockwork.NewFakeClockAt(t0)
	r := New(st, fp, "weather.impact").WithClock(clock).WithPublishRetries(1, 0).
		WithMetrics(observability.NewMetricsForTesting())

	r.runOnce(context.Background())
	require.Equal(t, 1, fp.calls)
	require.Equal(t, "weather.impact", fp.topic)
	require.Equal(t, []string{"6"}, fp.keys)

	var msg messages.WeatherImpact
	require.NoError(t, json.Unmarshal(fp.values[0], &msg))
	require.Equal(t, "a9-6", msg.EventID)
	require.Equal(t, "a9", msg.AlertID)
	require.Equal(t, "BTS001234582", msg.TrackingNumber)
	require.Equal(t, "DFW", msg.MetroCode)
	require.Equal(t, "thunderstorm", msg.WeatherType)
	require.Equal(t, "medium", msg.Severity)
	require.Equal(t, "moderate", msg.ImpactLevel)
	require.Equal(t, 24, msg.DelayHours)

	pending, err := st.PendingImpacts(context.Background())
	require.NoError(t, err)
	require.Zero(t, pending)

	clock.Advance(time.Hour)
	r.runOnce(context.Background())
	require.Equal(t, 1, fp.calls)

	stats := r.Stats(context.Background())
	require.Equal(t, int64(1), stats.TotalClaimed)
	require.Equal(t, int64(1), stats.TotalPublished)
	require.Zero(t, stats.TotalErrors)
	require.Zero(t, stats.Pending)
	require.NotNil(t, stats.LastCycleAt)
	require.Equal(t, float64(1), metricValue(t, r.metrics.ImpactsPublished))
}

func TestRelay_runOnce_failureBacksOff(t *testing.T) {
	st := storeWithImpact(t)
	fp := &fakeProducer{err: errors.New("broker down")}
	clock := clockwork.NewFakeClockAt(t0)
	r := New(st, fp, "weather.impact").WithClock(clock).WithPublishRetries(3, 0).
		WithMetrics(observability.NewMetricsForTesting())

	r.runOnce(context.Background())
	require.Equal(t, 3, fp.calls)

	stats := r.Stats(context.Background())
	require.Equal(t, int64(1), stats.TotalErrors)
	require.Equal(t, "broker down", stats.LastError)
	require.Equal(t, 1, stats.Pending)
	require.Equal(t, float64(1), metricValue(t, r.metrics.ImpactPublishErrs))

	// first backoff step is 5 minutes
	clock.Advance(4 * time.Minute)
	r.runOnce(context.Background())
	require.Equal(t, 3, fp.calls)

	fp.mu.Lock()
	fp.err = nil
	fp.mu.Unlock()
	clock.Advance(time.Minute)
	r.runOnce(context.Background())
	require.Equal(t, 4, fp.calls)

	pending, err := st.PendingImpacts(context.Background())
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestRelay_runOnce_secondFailureUsesNextStep(t *testing.T) {
	st := storeWithImpact(t)
	fp := &fakeProducer{err: errors.New("broker down")}
	clock := clockwork.NewFakeClockAt(t0)
	r := New(st, fp, "weather.impact").WithClock(clock).WithPublishRetries(1, 0).
		WithBackoff(BackoffConfig{Backoff1: time.Minute, Backoff2: 10 * time.Minute})

	r.runOnce(context.Background())
	clock.Advance(time.Minute)
	r.runOnce(context.Background())
	require.Equal(t, 2, fp.calls)

	clock.Advance(9 * time.Minute)
	r.runOnce(context.Background())
	require.Equal(t, 2, fp.calls)

	clock.Advance(time.Minute)
	r.runOnce(context.Background())
	require.Equal(t, 3, fp.calls)
}

func TestRelay_runOnce_retryWaitStopsOnCancel(t *testing.T) {
	st := storeWithImpact(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fp := &fakeProducer{err: errors.New("broker down"), onPublish: cancel}
	clock := clockwork.NewFakeClockAt(t0)
	r := New(st, fp, "weather.impact").WithClock(clock).WithPublishRetries(3, time.Second)

	done := make(chan struct{})
	go func() {
		r.runOnce(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runOnce kept waiting between retries after cancel")
	}

	fp.mu.Lock()
	require.Equal(t, 1, fp.calls)
	fp.mu.Unlock()

	stats := r.Stats(context.Background())
	require.Equal(t, int64(1), stats.TotalErrors)
	require.Equal(t, 1, stats.Pending)
}

func TestRelay_Run_StopsOnContextCancel(t *testing.T) {
	st := storeWithImpact(t)
	fp := &fakeProducer{}
	r := New(st, fp, "t").WithSettings(5*time.Millisecond, 1, 1, time.Second).WithPublishRetries(1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	fp.mu.Lock()
	defer fp.mu.Unlock()
	require.Equal(t, 1, fp.calls)
}

func TestRelay_Trigger_NonBlocking(t *testing.T) {
	r := New(nil, &fakeProducer{}, "t")
	r.Trigger()
	r.Trigger()
	require.Len(t, r.triggerCh, 1)
	require.NotZero(t, r.lastTriggerUnixNano.Load())
}

func TestRelay_WithSettings(t *testing.T) {
	r := New(nil, &fakeProducer{}, "t").WithSettings(5*time.Second, 7, 9, 11*time.Second)
	require.Equal(t, 5*time.Second, r.pollInterval)
	require.Equal(t, 7, r.batchSize)
	require.Equal(t, 9, r.concurrency)
	require.Equal(t, 11*time.Second, r.lease)

	r.WithSettings(0, 0, 0, 0)
	require.Equal(t, 5*time.Second, r.pollInterval)
	require.Equal(t, 7, r.batchSize)
}

func TestBackoff_Delay(t *testing.T) {
	b := NewBackoff(BackoffConfig{})
	require.Equal(t, 5*time.Minute, b.Delay(0))
	require.Equal(t, 5*time.Minute, b.Delay(1))
	require.Equal(t, 15*time.Minute, b.Delay(2))
	require.Equal(t, 30*time.Minute, b.Delay(3))
	require.Equal(t, 60*time.Minute, b.Delay(4))
	require.Equal(t, 60*time.Minute, b.Delay(100))

	custom := NewBackoff(BackoffConfig{Backoff2: time.Second})
	require.Equal(t, 5*time.Minute, custom.Delay(1))
	require.Equal(t, time.Second, custom.Delay(2))
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}
