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

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"example.com/intensity/internal/api"
	"example.com/intensity/internal/cache"
	"example.com/intensity/internal/config"
	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/logging"
	"example.com/intensity/internal/outbox"
	persistence "example.com/intensity/internal/persistence/postgres"
	httptransport "example.com/intensity/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logging.Setup(cfg.Logging())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := persistence.Migrate(ctx, pool); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	repo := persistence.NewRepository(pool)
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
		outbox.WithLogger(log.WithField("component", "outbox")))

	go dispatcher.Start(ctx)

	opts := []domain.Option{
		domain.WithThresholds(cfg.Thresholds()),
		domain.WithLogger(log.WithField("component", "service")),
	}
	summaryCache, closeCache, err := newSummaryCache(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up summary cache: %v", err)
	}
	defer closeCache()
	if summaryCache != nil {
		opts = append(opts, domain.WithCache(summaryCache))
	}
	service := domain.NewService(repo, opts...)

	router := mux.NewRouter()
	api.NewHandler(service, log.WithField("component", "api")).RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	serverCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress)
	serverCfg.CORSOrigin = cfg.CORSOrigin
	server := httptransport.NewServer(serverCfg, router, log.WithField("component", "http"))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("intensity api listening on %s (cache=%s)", cfg.HTTPAddress, cfg.CacheBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}

// newSummaryCache builds the configured cache. A nil cache disables memoization.
func newSummaryCache(ctx context.Context, cfg config.Config) (domain.SummaryCache, func(), error) {
	switch cfg.CacheBackend {
	case cache.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, func() {}, fmt.Errorf("redis ping %s: %w", cfg.RedisAddress, err)
		}
		return cache.NewRedisCache(client, cfg.CacheTTL), func() { _ = client.Close() }, nil
	case cache.BackendMemory:
		return cache.NewLocalCache(cfg.CacheSizeMB, cfg.CacheTTL), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
