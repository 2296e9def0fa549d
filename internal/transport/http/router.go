// Package httptransport composes the middleware chain and mounts every
// module's handler on one chi router. Handlers hold no wiring of their own.
package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	"loanbroker/internal/platform/metrics"
	"loanbroker/internal/platform/middleware"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/httputil"
)

// AdminRole is the role required for /v1/admin routes.
const AdminRole = "admin"

// Registrar mounts routes on a router. Each module handler satisfies it.
type Registrar interface {
	Register(r chi.Router)
}

// AdminRegistrar mounts admin-only routes.
type AdminRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// PublicRegistrar mounts routes that need no identity on a module that also
// has authenticated routes.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// AdminModule has both authenticated and admin routes.
type AdminModule interface {
	Registrar
	AdminRegistrar
}

// FullModule also exposes routes that need no identity.
type FullModule interface {
	AdminModule
	PublicRegistrar
}

// Deps carries everything NewRouter mounts. Nil handlers are skipped.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TokenValidator middleware.TokenValidator
	RateLimiter    *middleware.RateLimiter
	RequestTimeout time.Duration
	TrustedProxies []netip.Prefix

	Auth         Registrar
	Quote        Registrar
	Leads        AdminModule
	Applications FullModule
	Dashboard    Registrar

	Health         *Health
	MetricsHandler http.Handler
}

// NewRouter wires the global middleware chain, then mounts public, rate
// limited, authenticated and admin route groups.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadataBehind(d.TrustedProxies))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(d.Metrics))
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.ServeHTTP)
	}
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	// public and rate limited per client IP
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(d.RateLimiter, d.Metrics, logger))
		if d.Quote != nil {
			d.Quote.Register(r)
		}
		if d.Auth != nil {
			d.Auth.Register(r)
		}
		if d.Leads != nil {
			d.Leads.Register(r)
		}
		if d.Applications != nil {
			d.Applications.RegisterPublic(r)
		}
	})

	if d.TokenValidator == nil {
		return r
	}
	requireAuth := middleware.RequireAuth(d.TokenValidator, logger)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		if d.Applications != nil {
			d.Applications.Register(r)
		}
		if d.Dashboard != nil {
			d.Dashboard.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(AdminRole, logger))
		if d.Leads != nil {
			d.Leads.RegisterAdmin(r)
		}
		if d.Applications != nil {
			d.Applications.RegisterAdmin(r)
		}
	})
	return r
}
