package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/WeatherWatch/config"
	"github.com/BearBump/WeatherWatch/internal/broker/kafka"
	"github.com/BearBump/WeatherWatch/internal/cache/rediscache"
	"github.com/BearBump/WeatherWatch/internal/observability"
	"github.com/BearBump/WeatherWatch/internal/services/dashboard"
	"github.com/BearBump/WeatherWatch/internal/services/relay"
	"github.com/BearBump/WeatherWatch/internal/storage/memstore"
)

type weatherAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     weatherAPIOpts
	svc      *dashboard.Service
	relay    *relay.Relay
	consumer *kafka.Consumer
	closers  []func() error
}

func mustBootstrapWeatherAPI() *weatherAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config, %v", err))
	}
	s := settingsFrom(cfg)

	seed := memstore.DefaultSeed()
	if s.seedPath != "" {
		seed, err = memstore.LoadSeed(s.seedPath)
		if err != nil {
			panic(err)
		}
	}
	st, err := memstore.New(seed)
	if err != nil {
		panic(fmt.Sprintf("invalid seed data: %v", err))
	}
	slog.Info("store seeded", "metro_codes", len(seed.MetroCodes), "shipments", len(seed.Shipments), "alerts", len(seed.Alerts))

	metrics := observability.NewMetrics()

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, s.updatesTopic, s.consumerGroup)

	rel := relay.New(st, producer, s.impactTopic).
		WithSettings(s.relayPollInterval, s.relayBatchSize, s.relayConcurrency, s.relayLease).
		WithBackoff(s.relayBackoff).
		WithMetrics(metrics)

	svc := dashboard.New(st, rc, s.trackingCacheTTL).
		WithMetrics(metrics).
		WithAlertRateLimit(rl, s.alertRateLimit).
		WithImpactNotifier(rel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &weatherAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: weatherAPIOpts{
			httpAddr:      s.httpAddr,
			swaggerPath:   swaggerPath,
			topic:         s.updatesTopic,
			consumerGroup: s.consumerGroup,
			checks: map[string]func(context.Context) error{
				"store": st.Ping,
				"redis": rc.Ping,
			},
		},
		svc:      svc,
		relay:    rel,
		consumer: consumer,
		closers:  []func() error{consumer.Close, producer.Close, rc.Close, rl.Close},
	}
}

type settings struct {
	httpAddr         string
	consumerGroup    string
	updatesTopic     string
	impactTopic      string
	trackingCacheTTL time.Duration
	alertRateLimit   int
	seedPath         string

	relayPollInterval time.Duration
	relayBatchSize    int
	relayConcurrency  int
	relayLease        time.Duration
	relayBackoff      relay.BackoffConfig
}

// settingsFrom applies defaults to every zero config value.
func settingsFrom(cfg *config.Config) settings {
	ww := cfg.WeatherWatch
	s := settings{
		httpAddr:         ww.HTTPAddr,
		consumerGroup:    ww.KafkaConsumerGroup,
		updatesTopic:     cfg.Kafka.ShipmentUpdatedTopicName,
		impactTopic:      cfg.Kafka.WeatherImpactTopicName,
		trackingCacheTTL: time.Duration(ww.TrackingCacheTTLSeconds) * time.Second,
		alertRateLimit:   ww.AlertRateLimitPerMinute,
		seedPath:         ww.SeedPath,

		relayPollInterval: time.Duration(ww.RelayPollIntervalSeconds) * time.Second,
		relayBatchSize:    ww.RelayBatchSize,
		relayConcurrency:  ww.RelayConcurrency,
		relayLease:        time.Duration(ww.RelayLeaseSeconds) * time.Second,
		relayBackoff: relay.BackoffConfig{
			Backoff1: time.Duration(ww.RelayBackoff1Seconds) * time.Second,
			Backoff2: time.Duration(ww.RelayBackoff2Seconds) * time.Second,
			Backoff3: time.Duration(ww.RelayBackoff3Seconds) * time.Second,
			Backoff4: time.Duration(ww.RelayBackoff4Seconds) * time.Second,
		},
	}
	if s.httpAddr == "" {
		s.httpAddr = ":8080"
	}
	if s.consumerGroup == "" {
		s.consumerGroup = "weather-api"
	}
	if s.updatesTopic == "" {
		s.updatesTopic = "shipment.updated"
	}
	if s.impactTopic == "" {
		s.impactTopic = "weather.impact"
	}
	if s.trackingCacheTTL <= 0 {
		s.trackingCacheTTL = 5 * time.Minute
	}
	return s
}

func (a *weatherAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		_ = c()
	}
}

func (a *weatherAPIApp) Run() error {
	return runWeatherAPI(a.ctx, a.opts, a.svc, a.relay, a.consumer)
}
