package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nidahp/portal-api/internal/app"
	"github.com/nidahp/portal-api/internal/config"
	approvalHandler "github.com/nidahp/portal-api/internal/handler/approval"
	"github.com/nidahp/portal-api/internal/handler/health"
	interestHandler "github.com/nidahp/portal-api/internal/handler/interest"
	matchingHandler "github.com/nidahp/portal-api/internal/handler/matching"
	needHandler "github.com/nidahp/portal-api/internal/handler/need"
	promHandler "github.com/nidahp/portal-api/internal/handler/prometheus"
	"github.com/nidahp/portal-api/internal/middleware"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/internal/router"
	"github.com/nidahp/portal-api/pkg/auth"
	"github.com/nidahp/portal-api/pkg/logger"
	"github.com/nidahp/portal-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("NIDAH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.Log.Level, cfg.Log.Console)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(context.Background(), db); err != nil {
			log.Fatal(err, "failed to run migrations")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := app.NewServices(db, app.Options{
		IdentityCacheTTL: cfg.Identity.CacheTTL,
		Metrics:          metrics.NewMetrics(cfg.Monitoring.Namespace, "", registry),
		Logger:           log,
	})

	tokens, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		log.Fatal(err, "failed to configure token validation")
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(tokens),
		health.NewHandler(db),
		promHandler.New(cfg.Monitoring.Namespace, registry),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        cfg.RateLimit.RequestsPerSecond,
			RateBurst:        cfg.RateLimit.Burst,
			Timeout:          time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			DisableMetrics:   !cfg.Monitoring.PrometheusEnabled,
			CORSOrigins:      cfg.Server.CORSOrigins,
		},
		needHandler.NewHandler(svc.Needs),
		interestHandler.NewHandler(svc.Interests),
		approvalHandler.NewHandler(svc.Approvals),
		matchingHandler.NewHandler(svc.Matching),
	)
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr, "database", db.DriverName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
