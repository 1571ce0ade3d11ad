package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authgate/internal/auth/handler"
	authMW "authgate/internal/auth/middleware"
	"authgate/internal/platform/middleware"
	rlMW "authgate/internal/ratelimit/middleware"
	"authgate/pkg/httputil"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config carries everything the router needs from main. Optional
// fields may be nil; the corresponding middleware or probe is skipped.
type Config struct {
	Auth           *handler.Handler
	Authenticator  authMW.Authenticator
	RateLimit      *rlMW.Middleware
	RequestTimeout time.Duration

	// Health probes by dependency name, reported on /healthz.
	Probes map[string]HealthChecker
}

// NewRouter wires all public endpoints with the shared middleware
// stack. Protected routes sit behind the auth middleware so handlers
// can rely on an identity being present; rate limiting runs after
// authentication so authenticated traffic is charged to the user, not
// the IP.
func NewRouter(cfg Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Logger(logger))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", healthHandler(cfg.Probes))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Login gets the dedicated credential budget on top of the
		// anonymous per-IP one.
		if cfg.RateLimit != nil {
			r.With(cfg.RateLimit.Limit, cfg.RateLimit.LimitLogin).Post("/auth/login", cfg.Auth.HandleLogin)
			r.With(cfg.RateLimit.Limit).Post("/auth/refresh", cfg.Auth.HandleRefresh)
			r.With(cfg.RateLimit.Limit).Post("/auth/logout", cfg.Auth.HandleLogout)
		} else {
			cfg.Auth.Register(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth(cfg.Authenticator, logger))
			if cfg.RateLimit != nil {
				r.Use(cfg.RateLimit.Limit)
			}
			cfg.Auth.RegisterProtected(r)
		})
	})

	return r
}

// healthHandler reports overall service health. Any failing probe
// flips the status to 503 so load balancers stop routing here, but the
// body still names each dependency so operators see which one is down.
func healthHandler(probes map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(probes))
		for name, probe := range probes {
			if err := probe.Health(ctx); err != nil {
				checks[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		body := map[string]any{
			"status": "ok",
			"checks": checks,
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		httputil.WriteJSON(w, status, body)
	}
}
