package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
	"mediatracker/internal/tracker"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Service       *tracker.Service
	Logger        infra.Logger
	WebhookSecret string
}

func NewApp(service *tracker.Service, logger infra.Logger, webhookSecret string) *App {
	return &App{Service: service, Logger: logger, WebhookSecret: webhookSecret}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError maps domain errors onto HTTP statuses. Raw vendor error bodies
// stay in the job's ErrorDetail; callers only see the taxonomy.
func (a *App) jsonError(w http.ResponseWriter, err error) {
	var code int
	var msg string
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code, msg = http.StatusBadRequest, "invalid input"
	case errors.Is(err, domain.ErrQuotaExceeded):
		code, msg = http.StatusPaymentRequired, "vendor quota exceeded"
	case errors.Is(err, domain.ErrVendorUnavailable):
		code, msg = http.StatusServiceUnavailable, "vendor unavailable"
	case errors.Is(err, domain.ErrNotFound):
		code, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrUnauthorized):
		code, msg = http.StatusUnauthorized, "unauthorized"
	default:
		code, msg = http.StatusInternalServerError, "internal error"
	}
	a.json(w, code, map[string]string{"error": msg})
}
