package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"authgate/internal/audit"
	"authgate/internal/auth/guard"
	"authgate/internal/auth/handler"
	"authgate/internal/auth/revocation"
	authservice "authgate/internal/auth/service"
	sessionstore "authgate/internal/auth/store/session"
	userstore "authgate/internal/auth/store/user"
	"authgate/internal/auth/tokens"
	"authgate/internal/auth/workers/cleanup"
	"authgate/internal/counterstore"
	"authgate/internal/platform/config"
	"authgate/internal/platform/database"
	"authgate/internal/platform/httpserver"
	"authgate/internal/platform/logger"
	"authgate/internal/platform/metrics"
	"authgate/internal/platform/redis"
	"authgate/internal/platform/tracer"
	rlMW "authgate/internal/ratelimit/middleware"
	rlservice "authgate/internal/ratelimit/service"
	httptransport "authgate/internal/transport/http"
	"authgate/pkg/password"
)

// main wires dependencies and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing authgate",
		"addr", cfg.Server.Addr,
		"rate_limiting", cfg.RateLimit.Enabled,
	)

	m := metrics.New()

	// Shared counter store: Redis when reachable, in-memory otherwise.
	// The in-memory fallback keeps single-instance deployments working
	// but revocations and rate limit windows are then per-process.
	var counters counterstore.Store
	probes := map[string]httptransport.HealthChecker{}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, using in-memory counters", "error", err)
		counters = counterstore.NewMemory()
	} else {
		counters = counterstore.NewRedis(redisClient)
		probes["redis"] = redisClient
		defer redisClient.Close()
	}

	// Persistent stores: Postgres when configured, in-memory otherwise.
	// Sessions also back the cleanup worker, which needs the pruning
	// method on top of the service contract.
	type sessionStore interface {
		authservice.SessionStore
		cleanup.SessionPruner
	}
	var (
		users    authservice.UserStore
		sessions sessionStore
	)
	pool, err := database.New(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		users = userstore.NewPostgres(pool.DB())
		sessions = sessionstore.NewPostgres(pool.DB())
		probes["database"] = pool
		defer pool.Close()
	} else {
		log.Warn("no database configured, using in-memory stores")
		users = userstore.New()
		sessions = sessionstore.New()
	}

	auditPublisher := audit.NewPublisher(
		audit.NewInMemoryStore(),
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditPublisher.Close()

	codec := tokens.NewCodec(
		cfg.Tokens.SigningSecret,
		cfg.Tokens.Issuer,
		cfg.Tokens.AccessTTL,
		cfg.Tokens.RefreshTTL,
	)
	revocations := revocation.NewRegistry(counters, revocation.WithLogger(log))
	accountGuard := guard.New(cfg.Lockout.Threshold, cfg.Lockout.LockWindow)

	svc := authservice.NewService(
		users,
		sessions,
		codec,
		revocations,
		password.New(cfg.BcryptCost),
		accountGuard,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithTracer(tracer.NewOTel()),
		authservice.WithAuditPublisher(auditPublisher),
		authservice.WithMaxSessionsPerUser(cfg.Sessions.MaxPerUser),
	)

	limiter := rlservice.NewLimiter(counters, cfg.RateLimit,
		rlservice.WithLogger(log),
		rlservice.WithMetrics(m),
	)
	var rateLimit *rlMW.Middleware
	if limiter.Enabled() {
		rateLimit = rlMW.New(limiter, log, rlMW.WithAuditPublisher(auditPublisher))
	}

	pruner := cleanup.New(sessions,
		cleanup.WithInterval(cfg.Sessions.CleanupInterval),
		cleanup.WithLogger(log),
	)
	pruner.Start()
	defer pruner.Stop()

	router := httptransport.NewRouter(httptransport.Config{
		Auth:           handler.New(svc, log),
		Authenticator:  svc,
		RateLimit:      rateLimit,
		RequestTimeout: cfg.Server.RequestTimeout,
		Probes:         probes,
	}, log)

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")
	if err := httpserver.Shutdown(srv, cfg.Server.ShutdownTimeout); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
