package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mediatracker/internal/http/handlers"
	"mediatracker/internal/infra"
	"mediatracker/internal/middleware"
)

// NewRouter assembles the caller-facing API. Job routes require the identity
// provider's bearer token; webhook routes authenticate via shared secret
// inside the handler instead.
func NewRouter(app *handlers.App, logger infra.Logger, jwtSecret string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer, middleware.Logger(logger))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Use(middleware.AuthJWT(jwtSecret))
		r.Post("/", app.SubmitJob)
		r.Get("/{id}", app.GetJob)
	})

	r.Post("/v1/webhooks/{vendor}", app.VendorWebhook)

	return r
}
