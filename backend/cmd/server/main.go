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

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"digital-twin/backend/internal/api"
	"digital-twin/backend/internal/graph"
	"digital-twin/backend/internal/ratelimit"
	"digital-twin/backend/pkg/config"
	apperrors "digital-twin/backend/pkg/errors"
	"digital-twin/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...",
		zap.String("store", cfg.StoreBackend),
		zap.String("rate_limit_backend", cfg.RateLimitBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	log.Info("Server exited")
}

// run serves until ctx is cancelled, then shuts down gracefully
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	policies, err := buildPolicies(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	counter, closeCounter, err := newCounter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCounter()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Options{
		Engine:       graph.NewEngine(store, store, cfg.MaxTraversalDepth),
		Limiter:      ratelimit.NewLimiter(counter, ratelimit.NewMetrics(registry)),
		Policies:     policies,
		DefaultDepth: cfg.DefaultTraversalDepth,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	if mem, ok := counter.(*ratelimit.MemoryCounter); ok {
		g.Go(func() error {
			return mem.Run(gctx, cfg.RateLimitSweepInterval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	return g.Wait()
}

// storeBackend is what the engine needs from a store
type storeBackend interface {
	graph.Store
	graph.ActionLog
}

func newStore(ctx context.Context, cfg *config.Config) (storeBackend, func(), error) {
	if cfg.StoreBackend != "neo4j" {
		return graph.NewMemoryStore(), func() {}, nil
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, nil, apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}

	// Verify Neo4j connection
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(context.Background())
		return nil, nil, apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}

	store := graph.NewNeo4jStore(driver, cfg.Neo4jDatabase)
	return store, func() { _ = store.Close() }, nil
}

func newCounter(ctx context.Context, cfg *config.Config) (ratelimit.Counter, func(), error) {
	if cfg.RateLimitBackend != "redis" {
		return ratelimit.NewMemoryCounter(), func() {}, nil
	}

	counter := ratelimit.NewRedisCounter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		ratelimit.WithPrefix(cfg.RateLimitPrefix))
	if err := counter.Ping(ctx); err != nil {
		_ = counter.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	return counter, func() { _ = counter.Close() }, nil
}

func buildPolicies(cfg *config.Config) (api.Policies, error) {
	var policies api.Policies
	var err error

	if policies.Read, err = ratelimit.ParsePolicy(cfg.RateLimitRead); err != nil {
		return api.Policies{}, fmt.Errorf("RATE_LIMIT_READ: %w", err)
	}
	if policies.Write, err = ratelimit.ParsePolicy(cfg.RateLimitWrite); err != nil {
		return api.Policies{}, fmt.Errorf("RATE_LIMIT_WRITE: %w", err)
	}
	if policies.Traverse, err = ratelimit.ParsePolicy(cfg.RateLimitTraverse); err != nil {
		return api.Policies{}, fmt.Errorf("RATE_LIMIT_TRAVERSE: %w", err)
	}
	return policies, nil
}
