package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	applicationhandler "daycareplanner/internal/application/handler"
	applicationservice "daycareplanner/internal/application/service"
	applicationstore "daycareplanner/internal/application/store"
	"daycareplanner/internal/audit"
	auditstore "daycareplanner/internal/audit/store"
	auditworker "daycareplanner/internal/audit/worker"
	childhandler "daycareplanner/internal/child/handler"
	childservice "daycareplanner/internal/child/service"
	childstore "daycareplanner/internal/child/store"
	daycarehandler "daycareplanner/internal/daycare/handler"
	daycareservice "daycareplanner/internal/daycare/service"
	daycarestore "daycareplanner/internal/daycare/store"
	"daycareplanner/internal/jwtauth"
	placementhandler "daycareplanner/internal/placement/handler"
	placementservice "daycareplanner/internal/placement/service"
	placementstore "daycareplanner/internal/placement/store"
	"daycareplanner/internal/platform/config"
	"daycareplanner/internal/platform/httpserver"
	"daycareplanner/internal/platform/logger"
	"daycareplanner/internal/platform/metrics"
	"daycareplanner/internal/platform/middleware"
	"daycareplanner/internal/platform/postgres"
	platformredis "daycareplanner/internal/platform/redis"
	waitlistservice "daycareplanner/internal/waitlist/service"
	waitliststore "daycareplanner/internal/waitlist/store"
)

const requestTimeout = 30 * time.Second

// main wires the dependency graph and runs the HTTP server, the metrics
// server, and the audit worker until a shutdown signal arrives.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
	} else {
		log.Info("redis not configured, directory caching disabled")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	validator := jwtauth.New(cfg.JWTSigningKey)

	publisher := audit.NewPublisher(cfg.AuditBuffer, log)
	worker := auditworker.New(auditstore.NewPostgres(db), publisher.Inbox(), log)

	applications := applicationstore.NewPostgres(db)
	children := childstore.NewPostgres(db)
	daycares := daycarestore.NewPostgres(db)
	placements := placementstore.NewPostgres(db)
	candidates := waitliststore.NewPostgres(db)

	applicationSvc := applicationservice.NewService(applications, children, daycares,
		newApplicationPostgresTx(db), publisher, log)
	childSvc := childservice.NewService(children, publisher, log)
	daycareSvc := daycareservice.NewService(daycares, newDaycarePostgresTx(db), cache, publisher, log)
	placementSvc := placementservice.NewService(applications, placements, daycares,
		newPlacementPostgresTx(db), publisher, m, log)
	waitlistSvc := waitlistservice.NewService(candidates, daycares, m, log)

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Timeout(requestTimeout),
		middleware.ContentTypeJSON,
	)
	router.Get("/health", healthHandler(db, cache))

	applicationhandler.New(applicationSvc, log, validator).Register(router)
	childhandler.New(childSvc, log, validator).Register(router)
	daycarehandler.New(daycareSvc, waitlistSvc, log, validator).Register(router)
	placementhandler.New(placementSvc, log, validator).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := httpserver.New(cfg.MetricsAddr, metricsMux)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting daycare-planner", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("serving metrics", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown", "error", err)
		}
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// healthHandler reports readiness of the backing stores.
func healthHandler(db *sql.DB, cache *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","postgres":"down"}`))
			return
		}
		if cache != nil {
			if err := cache.Health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unhealthy","redis":"down"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
