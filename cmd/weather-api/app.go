package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	dashboardapi "github.com/BearBump/WeatherWatch/internal/api/dashboard_api"
	"github.com/BearBump/WeatherWatch/internal/broker/kafka"
	"github.com/BearBump/WeatherWatch/internal/broker/messages"
	"github.com/BearBump/WeatherWatch/internal/services/dashboard"
	"github.com/BearBump/WeatherWatch/internal/services/relay"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type weatherAPIOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	// readiness probes by name; /readyz fails when any of them does
	checks map[string]func(ctx context.Context) error

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	ConsumeShipmentUpdates(ctx context.Context, handler kafka.ShipmentUpdateHandler) error
}

type impactRelay interface {
	Run(ctx context.Context) error
	Trigger()
	Stats(ctx context.Context) relay.Stats
}

func runWeatherAPI(ctx context.Context, opts weatherAPIOpts, svc *dashboard.Service, rel impactRelay, consumer kafkaConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, newRouter(opts, svc, rel))
	}()

	go func() {
		slog.Info("impact relay started")
		if err := rel.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("impact relay stopped", "error", err.Error())
		}
	}()

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		err := consumer.ConsumeShipmentUpdates(ctx, shipmentUpdateHandler(svc))
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("kafka consumer stopped", "error", err.Error())
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		if err == nil {
			return ctx.Err()
		}
		return err
	}
}

// shipmentUpdateHandler applies carrier scans. Scans that can never apply are
// logged and committed so they do not block the partition.
func shipmentUpdateHandler(svc *dashboard.Service) kafka.ShipmentUpdateHandler {
	return func(ctx context.Context, m messages.ShipmentUpdated) error {
		_, err := svc.ApplyShipmentUpdate(ctx, m)
		if errors.Is(err, dashboard.ErrInvalidInput) || errors.Is(err, dashboard.ErrNotFound) {
			slog.Warn("skip shipment update", "shipment_id", m.ShipmentID, "tracking_number", m.TrackingNumber, "error", err.Error())
			return nil
		}
		return err
	}
}

func newRouter(opts weatherAPIOpts, svc *dashboard.Service, rel impactRelay) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range opts.checks {
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "failing": name, "error": err.Error()})
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/relay/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rel.Stats(r.Context()))
	})
	r.Post("/relay/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		rel.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})
	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	r.Mount("/api/v1", dashboardapi.New(svc).Routes())
	return r
}

func runHTTPServer(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
