package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-adp-curriculum/api/swagger"
	"github.com/noah-isme/sma-adp-curriculum/internal/adoption"
	"github.com/noah-isme/sma-adp-curriculum/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-curriculum/internal/middleware"
	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	"github.com/noah-isme/sma-adp-curriculum/internal/repository"
	"github.com/noah-isme/sma-adp-curriculum/internal/selection"
	"github.com/noah-isme/sma-adp-curriculum/internal/service"
	"github.com/noah-isme/sma-adp-curriculum/internal/store"
	"github.com/noah-isme/sma-adp-curriculum/pkg/cache"
	"github.com/noah-isme/sma-adp-curriculum/pkg/config"
	"github.com/noah-isme/sma-adp-curriculum/pkg/executor"
	"github.com/noah-isme/sma-adp-curriculum/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-curriculum/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-curriculum/pkg/middleware/requestid"
	"github.com/noah-isme/sma-adp-curriculum/pkg/telemetry"
)

// @title SMA ADP Curriculum Gateway
// @version 0.1.0
// @description Cached curriculum hierarchy, selection and template adoption over the branch REST API
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logr.Sugar().Fatalw("failed to init telemetry", "error", err)
	}

	var redisClient *redis.Client
	if cfg.Cache.Persist {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("cache persistence disabled", "error", err)
			redisClient = nil
		}
	}

	metrics := service.NewMetricsService()

	resources := store.New(
		store.WithTTL(cfg.Cache.TTL),
		store.WithMaxEntries(cfg.Cache.MaxEntries),
		store.WithLogger(logger.Component(logr, "store")),
	)
	metrics.TrackEntries(resources.Len)

	exec := executor.NewHTTP(executor.HTTPConfig{
		BaseURL:    cfg.Upstream.BaseURL,
		RolePrefix: cfg.Upstream.RolePrefix,
		Token:      cfg.Upstream.Token,
		Timeout:    cfg.Upstream.Timeout,
		Logger:     logger.Component(logr, "executor"),
	})

	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Cache.PersistPrefix, logger.Component(logr, "cache_repository"))
	clientOpts := []querycache.Option{
		querycache.WithRecorder(metrics),
		querycache.WithLogger(logger.Component(logr, "querycache")),
	}
	if cacheRepo.Enabled() {
		clientOpts = append(clientOpts, querycache.WithPersister(cacheRepo))
	}
	queries := querycache.New(querycache.DefaultRegistry(), exec, resources, clientOpts...)

	selections := selection.NewStore(
		selection.State{},
		selection.WithPolicy(selection.Policy{AllowOrphans: cfg.Selection.AllowOrphans}),
		selection.WithLogger(logger.Component(logr, "selection")),
	)

	prefetch := service.NewPrefetchService(queries, selections, service.PrefetchConfig{
		Enabled:    cfg.Prefetch.Enabled,
		Workers:    cfg.Prefetch.Workers,
		MaxRetries: cfg.Prefetch.MaxRetries,
		RetryDelay: cfg.Prefetch.RetryDelay,
	}, logger.Component(logr, "prefetch"))
	prefetch.Start(ctx)

	curriculumSvc := service.NewCurriculumService(service.CurriculumServiceParams{
		Queries:   queries,
		Selection: selections,
		Prefetch:  prefetch,
		Validator: validator.New(),
		Logger:    logger.Component(logr, "curriculum"),
	})
	cacheSvc := service.NewCacheService(queries, cacheRepo, logger.Component(logr, "cache"))
	if restored, err := cacheSvc.Warm(ctx); err != nil {
		logr.Sugar().Warnw("cache warm start failed", "error", err)
	} else if restored > 0 {
		logr.Sugar().Infow("cache warm start", "entries", restored)
	}

	var adoptionSvc *service.AdoptionService
	if cfg.Features.Adoptions {
		machine := adoption.NewMachine(queries,
			adoption.WithRecorder(metrics),
			adoption.WithLogger(logger.Component(logr, "adoption")),
		)
		adoptionSvc = service.NewAdoptionService(machine, logger.Component(logr, "adoption_service"))
	}

	checks := map[string]handler.ReadinessCheck{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	registerRoutes(r, cfg, routeHandlers{
		selection:  handler.NewSelectionHandler(curriculumSvc),
		curriculum: handler.NewCurriculumHandler(curriculumSvc),
		material:   handler.NewMaterialHandler(curriculumSvc),
		semester:   handler.NewSemesterHandler(curriculumSvc),
		adoption:   adoptionHandler(adoptionSvc),
		cache:      handler.NewCacheHandler(cacheSvc),
		metrics:    handler.NewMetricsHandler(metrics, checks),
	})

	go evictExpired(ctx, resources, cfg.Cache.TTL, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown", "error", err)
	}
	prefetch.Stop()
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("redis close", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Sugar().Warnw("telemetry shutdown", "error", err)
	}
}

func adoptionHandler(svc *service.AdoptionService) *handler.AdoptionHandler {
	if svc == nil {
		return nil
	}
	return handler.NewAdoptionHandler(svc)
}

func evictExpired(ctx context.Context, resources *store.Store, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := resources.EvictExpired(); n > 0 {
				logr.Debug("evicted expired cache entries", zap.Int("count", n))
			}
		}
	}
}
