// Command server runs the register API: the administrative publication
// surface and the public read surface, backed by Postgres when configured
// and in-memory stores otherwise.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"profreg/internal/audit"
	"profreg/internal/jwtauth"
	"profreg/internal/platform/config"
	"profreg/internal/platform/httpserver"
	"profreg/internal/platform/logger"
	"profreg/internal/platform/postgres"
	platformredis "profreg/internal/platform/redis"
	"profreg/internal/register/cache"
	registerhandler "profreg/internal/register/handler"
	registermetrics "profreg/internal/register/metrics"
	registerservice "profreg/internal/register/service"
	"profreg/internal/register/slug"
	"profreg/internal/register/store"
	entitystore "profreg/internal/register/store/entity"
	versionstore "profreg/internal/register/store/version"
	usershandler "profreg/internal/users/handler"
	usersmetrics "profreg/internal/users/metrics"
	usersservice "profreg/internal/users/service"
	usersstore "profreg/internal/users/store"
	"profreg/migrations"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when configured, in-memory otherwise.
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("failed to open postgres", "error", err.Error())
		os.Exit(1)
	}

	var (
		entities registerservice.EntityStore
		versions registerservice.VersionStore
		entityTx registerservice.EntityTx
		checker  slug.Checker
		users    usersservice.Store
		auditDst audit.Store
	)
	if db != nil {
		defer db.Close()
		if err := migrations.Apply(ctx, db); err != nil {
			log.Error("failed to apply migrations", "error", err.Error())
			os.Exit(1)
		}
		pgVersions := versionstore.NewPostgres(db)
		entities = entitystore.NewPostgres(db)
		versions = pgVersions
		checker = pgVersions
		entityTx = store.NewPostgresEntityTx(db)
		users = usersstore.NewPostgres(db)
		auditDst = audit.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		memVersions := versionstore.NewInMemory()
		entities = entitystore.NewInMemory()
		versions = memVersions
		checker = memVersions
		entityTx = store.NewMemoryEntityTx()
		users = usersstore.NewInMemory()
		auditDst = audit.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	// Audit: persisted always, relayed to Kafka when brokers are configured.
	publisherOpts := []audit.PublisherOption{}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect audit sink", "error", err.Error())
			os.Exit(1)
		}
		defer sink.Close()

		relay := make(chan audit.Event, 256)
		publisherOpts = append(publisherOpts, audit.WithRelay(relay))
		worker := audit.NewWorker(sink, relay, log)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err.Error())
			}
		}()
		log.Info("audit events relayed to kafka", "topic", cfg.Kafka.Topic)
	}
	auditPublisher := audit.NewPublisher(auditDst, publisherOpts...)

	// Live cache, optional.
	var liveCache *cache.LiveCache
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		liveCache = cache.New(redisClient.Client)
		log.Info("live version cache enabled")
	}

	registerSvc := registerservice.New(
		entities, versions, entityTx,
		slug.New(checker, slug.WithMaxAttempts(cfg.SlugMaxAttempts)),
		registerservice.WithLogger(log),
		registerservice.WithAuditPublisher(auditPublisher),
		registerservice.WithMetrics(registermetrics.New()),
		registerservice.WithLiveCache(liveCache),
	)
	usersSvc := usersservice.New(users,
		usersservice.WithLogger(log),
		usersservice.WithAuditPublisher(auditPublisher),
		usersservice.WithMetrics(usersmetrics.New()),
	)

	jwtService := jwtauth.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	validator := jwtauth.NewJWTServiceAdapter(jwtService)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	usershandler.New(usersSvc, log, validator).Register(router)
	registerhandler.New(registerSvc, log, validator,
		registerhandler.WithPublishRetries(cfg.PublishRetries)).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := httpserver.New(cfg.MetricsAddr, metricsMux)

	go func() {
		log.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err.Error())
		}
	}()
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown failed", "error", err.Error())
	}
}
