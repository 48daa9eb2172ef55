package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/app/controller"
	"github.com/2eliot/Inefablestore/app/router"
	"github.com/2eliot/Inefablestore/cache"
	"github.com/2eliot/Inefablestore/checkout"
	"github.com/2eliot/Inefablestore/config"
	"github.com/2eliot/Inefablestore/db"
	"github.com/2eliot/Inefablestore/metrics"
	"github.com/2eliot/Inefablestore/notify"
	"github.com/2eliot/Inefablestore/repository"
	"github.com/2eliot/Inefablestore/service"
	"github.com/2eliot/Inefablestore/storeapi"
)

// storeAPITimeout bounds each call to a remote store backend
const storeAPITimeout = 30 * time.Second

// App is the wired application
type App struct {
	Handler http.Handler

	notifier notify.Notifier
	redis    *redis.Client
	ownsDB   bool
}

// Initialize initializes the application
func Initialize(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}
	controllers := &router.Controllers{}

	var api storeapi.API
	if cfg.StoreAPIBaseURL == "" {
		// Initialize database connection
		if err := db.InitDB(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.ownsDB = true
		if err := db.RunMigrations(cfg.MigrationsDir); err != nil {
			a.Close()
			return nil, err
		}

		if len(cfg.KafkaBrokers) > 0 {
			a.notifier = notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaOrdersTopic, logger)
			logger.Info("publishing order events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrdersTopic))
		} else {
			a.notifier = notify.NewLogNotifier(logger)
		}

		store := service.NewStoreService(
			repository.NewItemRepository(),
			repository.NewConfigRepository(),
			repository.NewSpecialUserRepository(),
			repository.NewOrderRepository(),
			a.notifier,
		)
		controllers.Store = controller.NewStoreController(store, service.NewIconService(cfg.IconDir, cfg.IconCacheDir))
		controllers.Order = controller.NewOrderController(store)
		api = store
	} else {
		logger.Info("using remote store backend", zap.String("base_url", cfg.StoreAPIBaseURL))
		api = storeapi.NewClient(cfg.StoreAPIBaseURL, storeAPITimeout)
	}

	var backend checkout.StateBackend = checkout.NewMemoryStateBackend()
	if cfg.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		backend = cache.NewCheckoutStateCache(client, cache.DefaultStateTTL)
	}

	deps := checkout.Deps{
		API:               api,
		Discounts:         checkout.NewDiscountResolver(api, logger),
		State:             checkout.NewStateStore(backend, logger),
		SubmitTimeout:     cfg.SubmitTimeout,
		ReferenceDebounce: cfg.ReferenceDebounce,
		Logger:            logger,
		Metrics:           metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
	}
	sessions := checkout.NewSessionRegistry(cfg.SessionCacheSize, cfg.SessionTTL)
	controllers.Checkout = controller.NewCheckoutController(sessions, deps, cfg.SessionTTL, cfg.IsProduction())

	a.Handler = router.NewRouter(controllers, router.Options{
		Metrics:        metrics.NewServerMetrics(prometheus.DefaultRegisterer),
		MetricsHandler: metrics.Handler(),
	})
	return a, nil
}

// Close releases the connections opened by Initialize
func (a *App) Close() error {
	var errs []error
	if a.notifier != nil {
		errs = append(errs, a.notifier.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.ownsDB {
		errs = append(errs, db.CloseDB())
	}
	return errors.Join(errs...)
}
