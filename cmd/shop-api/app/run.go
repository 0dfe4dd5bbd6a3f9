package app

import (
	"context"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/gderossilive/devShopDemo/configs"
	"github.com/gderossilive/devShopDemo/internal/adapter/cache"
	"github.com/gderossilive/devShopDemo/internal/adapter/http"
	"github.com/gderossilive/devShopDemo/internal/adapter/http/middleware"
	"github.com/gderossilive/devShopDemo/internal/adapter/kafka"
	"github.com/gderossilive/devShopDemo/internal/adapter/notify"
	"github.com/gderossilive/devShopDemo/internal/adapter/queue"
	"github.com/gderossilive/devShopDemo/internal/adapter/repo"
	"github.com/gderossilive/devShopDemo/internal/logging"
	"github.com/gderossilive/devShopDemo/internal/observ"
	"github.com/gderossilive/devShopDemo/internal/security"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

type App struct {
	Server *nethttp.Server
}

// InitWithConfig wires every adapter. The returned cleanup drains the
// notification queue and closes connections in reverse order of creation.
func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(context.Context), error) {
	log := logging.New("bootstrap")
	var closers []func(context.Context)
	cleanup := func(ctx context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i](ctx)
		}
	}
	fail := func(err error) (*App, func(context.Context), error) {
		cleanup(context.Background())
		return nil, nil, err
	}

	// tracing
	shutdownTracing, err := observ.SetupTracing(ctx, observ.TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		URLPath:        cfg.Tracing.URLPath,
		Insecure:       cfg.Tracing.Insecure,
		AuthHeader:     cfg.Tracing.AuthHeader,
	})
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func(ctx context.Context) { _ = shutdownTracing(ctx) })

	// init database
	openCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	store, err := repo.Open(openCtx, repo.Dialect(cfg.Store.Driver), cfg.Store.DSN, repo.PoolOptions{
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	cancel()
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func(context.Context) { _ = store.DB().Close() })
	if cfg.Store.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return fail(err)
		}
	}
	log.Info("store ready", "driver", cfg.Store.Driver)

	// init redis (optional; failures degrade to no cache / no replay protection)
	var (
		catalogCache usecase.CatalogCache
		idem         usecase.IdempotencyStore
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr, "err", err)
		}
		closers = append(closers, func(context.Context) { _ = rdb.Close() })
		catalogCache = cache.NewRedisCatalogCache(rdb, cfg.Cache.TTL)
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL, cfg.Idempotency.LockTTL)
	}

	// notifications
	confirmations, err := newConfirmationSender(cfg)
	if err != nil {
		return fail(err)
	}
	var sender notify.Sender = confirmations
	if cfg.Rabbit.Enabled {
		conn, err := amqp091.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fail(fmt.Errorf("rabbitmq dial: %w", err))
		}
		closers = append(closers, func(context.Context) { _ = conn.Close() })

		pubCh, err := conn.Channel()
		if err != nil {
			return fail(fmt.Errorf("rabbitmq channel: %w", err))
		}
		producer, err := queue.NewRabbitProducer(pubCh)
		if err != nil {
			return fail(err)
		}
		sender = producer

		if cfg.Rabbit.Consume {
			if err := setupQueue(ctx, conn, cfg, confirmations, logging.New("rabbitmq")); err != nil {
				return fail(err)
			}
		}
	}
	dispatcher := notify.NewAsyncDispatcher(sender, notify.DispatcherConfig{
		Workers:     cfg.Notify.Workers,
		QueueSize:   cfg.Notify.QueueSize,
		SendTimeout: cfg.Notify.SendTimeout,
		MaxElapsed:  cfg.Notify.MaxElapsed,
	})
	closers = append(closers, func(ctx context.Context) {
		if err := dispatcher.Close(ctx); err != nil {
			log.Warn("notification queue not drained", "err", err)
		}
	})

	// use cases
	catalog := usecase.NewCatalog(repo.NewSQLCatalogRepo(store.DB()), catalogCache)
	purchase := usecase.NewPurchase(store, dispatcher, idem, usecase.PurchaseConfig{
		TxTimeout:    cfg.Store.TxTimeout,
		MaxAttempts:  cfg.Purchase.MaxAttempts,
		RetryBackoff: cfg.Purchase.RetryBackoff,
	}, usecase.WithStockListings(catalog))

	// register kafka-listener
	if cfg.Kafka.Enabled {
		grp, err := setupKafkaListener(ctx, cfg, catalog, logging.New("kafka"))
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func(context.Context) { _ = grp.Close() })
	}

	// init handlers + routers + middleware
	h := http.Handlers{
		Purchase: http.NewPurchaseHandler(purchase, cfg.HTTP.PurchaseTimeout),
		Catalog:  http.NewCatalogHandler(catalog, cfg.HTTP.QueryTimeout),
		Orders:   http.NewOrderHandler(repo.NewSQLOrderRepo(store.DB()), cfg.HTTP.QueryTimeout),
		Token:    http.NewTokenHandler(cfg, security.NewClientRegistry(cfg.Security.Clients)),
	}
	router, err := http.NewRouter(h, middleware.NewAuthz(cfg), logging.New("http"), http.RouterOptions{
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		TrustedProxies:  cfg.HTTP.TrustedProxies,
		PurchaseLimiter: middleware.NewRateLimiter(cfg.HTTP.PurchaseRPS, cfg.HTTP.PurchaseBurst),
	})
	if err != nil {
		return fail(err)
	}

	srv := &nethttp.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	return &App{Server: srv}, cleanup, nil
}

func newConfirmationSender(cfg configs.Config) (*notify.ConfirmationSender, error) {
	var mailer notify.Mailer
	switch cfg.Notify.Mode {
	case "smtp":
		m, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Notify.SMTP.Host,
			Port:     cfg.Notify.SMTP.Port,
			Username: cfg.Notify.SMTP.Username,
			Password: cfg.Notify.SMTP.Password,
			TLS:      cfg.Notify.SMTP.TLS,
			Timeout:  cfg.Notify.SendTimeout,
		})
		if err != nil {
			return nil, err
		}
		mailer = m
	default:
		m, err := notify.NewPickupDirMailer(cfg.Notify.PickupDir)
		if err != nil {
			return nil, err
		}
		mailer = m
	}
	return notify.NewConfirmationSender(cfg.Notify.From, mailer), nil
}

func setupQueue(ctx context.Context, conn *amqp091.Connection, cfg configs.Config, mailer queue.ConfirmationMailer, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq consumer channel: %w", err)
	}
	h := queue.NewOrderPlacedHandler(mailer)

	router := queue.NewRouter(ch, log, queue.WithPrefetch(cfg.Rabbit.Prefetch), queue.WithTimeout(cfg.Notify.SendTimeout))
	router.Register(queue.QueueOrderPlaced, queue.JSONHandler[usecase.OrderPlacedMsg]{HandleFunc: h.HandleOrderPlaced})

	return router.Start(ctx)
}

func setupKafkaListener(ctx context.Context, cfg configs.Config, catalog *usecase.Catalog, log *slog.Logger) (sarama.ConsumerGroup, error) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		return nil, fmt.Errorf("kafka group: %w", err)
	}

	h := kafka.NewCatalogChangedHandler(catalog)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicCatalog}, h.Handle, log)

	// Run in background until ctx is cancelled.
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error("kafka consumer stopped", "err", err)
		}
	}()
	return grp, nil
}
