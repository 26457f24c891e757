// Package transport exposes the gateway over HTTP: identity management,
// the inference endpoints, the model catalog, health, and metrics.
//
// Endpoint classes map onto pipeline wrappers. Register and login are
// public with a per-IP rate cap; identity management requires a bearer
// token; inference and the catalog are governed by verification and quota.
package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelgate/modelgate/pkg/config"
	"github.com/modelgate/modelgate/pkg/identity"
	"github.com/modelgate/modelgate/pkg/observability"
	"github.com/modelgate/modelgate/pkg/pipeline"
	"github.com/modelgate/modelgate/pkg/provider"
	"github.com/modelgate/modelgate/pkg/storage"
)

// Handler holds the dependencies behind the HTTP surface.
type Handler struct {
	store           storage.Store
	identities      *identity.Service
	providers       *provider.Router
	pipeline        *pipeline.Orchestrator
	upstreamTimeout time.Duration
}

// NewHandler creates the HTTP handler set.
func NewHandler(store storage.Store, identities *identity.Service, providers *provider.Router, p *pipeline.Orchestrator, upstreamTimeout time.Duration) *Handler {
	if upstreamTimeout <= 0 {
		upstreamTimeout = 120 * time.Second
	}
	return &Handler{
		store:           store,
		identities:      identities,
		providers:       providers,
		pipeline:        p,
		upstreamTimeout: upstreamTimeout,
	}
}

// Routes assembles the router.
func (h *Handler) Routes(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Route("/identity", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.Server.IdentityRPM > 0 {
				r.Use(httprate.LimitByIP(cfg.Server.IdentityRPM, time.Minute))
			}
			r.Post("/register", h.pipeline.Public("/identity/register", h.handleRegister))
			r.Post("/login", h.pipeline.Public("/identity/login", h.handleLogin))
		})

		r.Get("/me", h.pipeline.Protected("/identity/me", h.handleMe))
		r.Post("/rotate-key", h.pipeline.Protected("/identity/rotate-key", h.handleRotateKey))
		r.Put("/password", h.pipeline.Protected("/identity/password", h.handleChangePassword))
		r.Post("/credentials", h.pipeline.Protected("/identity/credentials", h.handleIssueCredential))
		r.Get("/credentials", h.pipeline.Protected("/identity/credentials", h.handleListCredentials))
		r.Delete("/credentials/{id}", h.pipeline.Protected("/identity/credentials", h.handleRevokeCredential))
	})

	r.Post("/chat", h.pipeline.Governed("/chat", h.handleChat))
	r.Post("/completion", h.pipeline.Governed("/completion", h.handleCompletion))
	r.Get("/models", h.pipeline.Governed("/models", h.handleModels))

	r.Get("/healthz", h.handleHealth)
	if cfg.Observability.Metrics.Enabled {
		r.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	return r
}
