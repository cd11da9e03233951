package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/gateway"
	healthcheck "github.com/vladislavdragonenkov/crm-console/internal/health"
	"github.com/vladislavdragonenkov/crm-console/internal/httpapi"
	"github.com/vladislavdragonenkov/crm-console/internal/metrics"
	"github.com/vladislavdragonenkov/crm-console/internal/service/activity"
	"github.com/vladislavdragonenkov/crm-console/internal/service/directory"
	"github.com/vladislavdragonenkov/crm-console/internal/service/loader"
	"github.com/vladislavdragonenkov/crm-console/internal/service/orders"
	"github.com/vladislavdragonenkov/crm-console/internal/service/outbox"
	"github.com/vladislavdragonenkov/crm-console/internal/storage/memory"
	"github.com/vladislavdragonenkov/crm-console/internal/storage/postgres"
	"github.com/vladislavdragonenkov/crm-console/internal/storage/rediscache"
	"github.com/vladislavdragonenkov/crm-console/internal/version"
)

// runtimeDependencies — всё, что нужно Run: HTTP-обработчик, health и опциональные outbox worker и cleaner.
type runtimeDependencies struct {
	handler http.Handler
	health  *healthcheck.Handler
	metrics *metrics.ConsoleMetrics

	auditRepo  domain.AuditRepository
	outboxRepo domain.OutboxRepository
	worker     *outbox.Worker
	cleaner    *outbox.Cleaner

	closers []func() error
}

// initRuntimeDependencies собирает граф зависимостей по конфигурации.
// При ошибке уже открытые ресурсы закрываются.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (deps *runtimeDependencies, err error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = StorageDriverMemory
	}

	deps = &runtimeDependencies{
		metrics: metrics.NewConsoleMetrics(),
		health:  healthcheck.NewHandler(version.GetVersion()),
	}
	defer func() {
		if err != nil {
			deps.close(logger)
			deps = nil
		}
	}()

	if err = deps.initStorage(ctx, cfg, logger); err != nil {
		return deps, err
	}
	if err = deps.initPublishing(cfg, logger); err != nil {
		return deps, err
	}

	api := gateway.NewAPI(gateway.Options{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.UpstreamTimeout,
		Observer: deps.metrics,
		Logger:   logger.WithField("upstream", "api"),
		Retry:    cfg.UpstreamRetry(),
	})
	auth := gateway.NewAuth(gateway.Options{
		BaseURL:  cfg.AuthBaseURL,
		Timeout:  cfg.UpstreamTimeout,
		Observer: deps.metrics,
		Logger:   logger.WithField("upstream", "auth"),
		Retry:    cfg.UpstreamRetry(),
	})
	deps.health.RegisterChecker("api", healthcheck.NewDegradingChecker("api", api.Ping))
	deps.health.RegisterChecker("auth", healthcheck.NewDegradingChecker("auth", auth.Ping))

	sessions, err := deps.initSessionCache(ctx, cfg, auth, logger)
	if err != nil {
		return deps, err
	}

	recorder := activity.NewRecorder(deps.auditRepo, deps.outboxRepo, deps.metrics, logger.WithField("layer", "activity"))

	deps.handler = httpapi.NewRouter(httpapi.Deps{
		Auth:           sessions,
		Loader:         loader.New(api, api, sessions, deps.metrics, logger.WithField("layer", "loader")),
		Orders:         orders.NewService(api, recorder, deps.metrics, logger.WithField("layer", "orders")),
		Directory:      directory.NewService(api, sessions, recorder, logger.WithField("layer", "directory")),
		Activity:       recorder,
		Metrics:        deps.metrics,
		Logger:         logger.WithField("layer", "http"),
		RequestTimeout: cfg.RequestTimeout,
	})

	return deps, nil
}

func (d *runtimeDependencies) initStorage(ctx context.Context, cfg Config, logger *log.Entry) error {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		d.auditRepo = memory.NewAuditRepository()
		d.health.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func(context.Context) error { return nil }))
		return nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return errors.New("postgres storage requires CRM_POSTGRES_DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		d.closers = append(d.closers, store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		d.auditRepo = postgres.NewAuditRepository(store)
		d.health.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", store.Ping))
		if cfg.KafkaEnabled() {
			d.outboxRepo = postgres.NewOutboxRepository(store)
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// initSessionCache оборачивает auth-клиент кэшем профилей; без CRM_SESSION_CACHE возвращает его как есть.
func (d *runtimeDependencies) initSessionCache(ctx context.Context, cfg Config, auth domain.AuthGateway, logger *log.Entry) (domain.AuthGateway, error) {
	cacheLogger := logger.WithField("component", "session-cache")

	var store gateway.SessionStore
	switch cfg.SessionCache {
	case SessionCacheOff:
		return auth, nil
	case SessionCacheMemory:
		store = memory.NewSessionStore()
	case SessionCacheRedis:
		rs, err := rediscache.Open(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("open session cache: %w", err)
		}
		d.closers = append(d.closers, rs.Close)
		d.health.RegisterChecker("session_cache", healthcheck.NewDegradingChecker("session_cache", rs.Ping))
		store = rs
	default:
		return nil, fmt.Errorf("unsupported session cache %q", cfg.SessionCache)
	}

	cacheLogger.WithFields(log.Fields{"mode": cfg.SessionCache, "ttl": cfg.SessionCacheTTL}).Info("session cache enabled")
	return gateway.NewCachedAuth(auth, store, cfg.SessionCacheTTL, cacheLogger), nil
}

// initPublishing включает outbox и Kafka только при настроенных брокерах.
func (d *runtimeDependencies) initPublishing(cfg Config, logger *log.Entry) error {
	if !cfg.KafkaEnabled() {
		logger.Info("kafka brokers are not configured, console events are not published")
		return nil
	}

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		return err
	}
	d.closers = append(d.closers, func() error {
		closeKafka(producer, logger)
		return nil
	})

	if d.outboxRepo == nil {
		d.outboxRepo = memory.NewOutboxRepository()
	}
	d.worker = newOutboxWorker(cfg, d.outboxRepo, producer, d.metrics, logger)
	if repo, ok := d.outboxRepo.(domain.OutboxCleaner); ok {
		d.cleaner = newOutboxCleaner(cfg, repo, d.metrics, logger)
	}
	return nil
}

// close освобождает ресурсы в обратном порядке открытия.
func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil {
		return
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to close dependency")
		}
	}
	d.closers = nil
}
