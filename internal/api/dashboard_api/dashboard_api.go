package dashboard_api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/BearBump/WeatherWatch/internal/models"
	"github.com/BearBump/WeatherWatch/internal/services/dashboard"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type DashboardAPI struct {
	svc *dashboard.Service
}

func New(svc *dashboard.Service) *DashboardAPI {
	return &DashboardAPI{svc: svc}
}

// Routes returns the /api/v1 handlers; mount them under that prefix.
func (a *DashboardAPI) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/metro-codes", a.ListMetroCodes)
	r.Get("/alerts", a.ListAlerts)
	r.Post("/alerts", a.CreateAlert)
	r.Post("/alerts/{alertID}/toggle", a.ToggleAlert)
	r.Get("/shipments", a.ListShipments)
	r.Post("/shipments/{shipmentID}/eta", a.UpdateETA)
	r.Get("/events", a.ListEvents)
	r.Get("/stats", a.Stats)
	r.Get("/track/{trackingNumber}", a.TrackShipment)
	return r
}

func (a *DashboardAPI) ListMetroCodes(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.ListMetroCodes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metroCodes": nonNil(out)})
}

func (a *DashboardAPI) ListAlerts(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.ListAlerts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": nonNil(out)})
}

func (a *DashboardAPI) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var in models.AlertInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.Wrap(dashboard.ErrInvalidInput, "malformed JSON body"))
		return
	}
	res, err := a.svc.CreateAlert(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *DashboardAPI) ToggleAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := a.svc.ToggleAlert(r.Context(), chi.URLParam(r, "alertID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (a *DashboardAPI) ListShipments(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.ListShipments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipments": nonNil(out)})
}

type updateETARequest struct {
	DelayHours *int `json:"delayHours"`
}

func (a *DashboardAPI) UpdateETA(w http.ResponseWriter, r *http.Request) {
	var req updateETARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, errors.Wrap(dashboard.ErrInvalidInput, "malformed JSON body"))
		return
	}
	sh, err := a.svc.UpdateETA(r.Context(), chi.URLParam(r, "shipmentID"), req.DelayHours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (a *DashboardAPI) ListEvents(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": nonNil(out)})
}

func (a *DashboardAPI) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *DashboardAPI) TrackShipment(w http.ResponseWriter, r *http.Request) {
	v, err := a.svc.TrackShipment(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err.Error())
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
