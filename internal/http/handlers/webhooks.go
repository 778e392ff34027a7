package handlers

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediatracker/internal/domain"
)

const maxWebhookBody = 1 << 20

// VendorWebhook accepts vendor-pushed status notifications. The shared-secret
// header stands in for per-vendor signature verification, which belongs to
// the deployment's edge. The endpoint always answers 204 for payloads it
// merely cannot match, so vendors do not retry forever.
func (a *App) VendorWebhook(w http.ResponseWriter, r *http.Request) {
	if a.WebhookSecret != "" {
		token := r.Header.Get("X-Webhook-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.WebhookSecret)) != 1 {
			a.jsonError(w, domain.ErrUnauthorized)
			return
		}
	}

	vendor := domain.Vendor(chi.URLParam(r, "vendor"))
	if !vendor.Valid() {
		a.jsonError(w, domain.ErrInvalidInput)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.jsonError(w, domain.ErrInvalidInput)
		return
	}

	if err := a.Service.HandleWebhook(r.Context(), vendor, payload); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// Vendor knows a job we do not; log and acknowledge.
			a.Logger.Warn().Err(err).Str("vendor", string(vendor)).Msg("webhook for unknown job")
		case errors.Is(err, domain.ErrInvalidInput):
			a.jsonError(w, err)
			return
		default:
			a.Logger.Error().Err(err).Str("vendor", string(vendor)).Msg("webhook handling failed")
			a.jsonError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
