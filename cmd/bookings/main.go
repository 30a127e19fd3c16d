package main

import (
	"context"
	"time"

	"pawwalk/internal/bookings/consumer"
	bookinghandler "pawwalk/internal/bookings/handler"
	bookingrepo "pawwalk/internal/bookings/repository"
	bookingservice "pawwalk/internal/bookings/service"
	bookingvalidator "pawwalk/internal/bookings/validator"
	"pawwalk/internal/health"
	sqliteMigration "pawwalk/internal/migrations/sqlite"
	"pawwalk/internal/notifications"
	"pawwalk/internal/payments/gateway"
	paymenthandler "pawwalk/internal/payments/handler"
	paymentrepo "pawwalk/internal/payments/repository"
	paymentservice "pawwalk/internal/payments/service"
	paymentvalidator "pawwalk/internal/payments/validator"
	"pawwalk/internal/reconcile"
	"pawwalk/pkg/app"
	"pawwalk/pkg/config"
	"pawwalk/pkg/kafka"
	kafka_config "pawwalk/pkg/kafka/config"
	kafka_middleware "pawwalk/pkg/kafka/middleware"
	"pawwalk/pkg/lock"
)

const ServiceName = "bookings"

type repositories struct {
	bookings bookingrepo.BookingRepository
	payments paymentrepo.PaymentRepository
}

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()
	cfg.Connect()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)
	healthHandler := health.NewHealthHandler(cfg.Client, cfg.Log)

	repos := initRepositories(cfg)
	locker := initLocker(cfg)
	notifier := initNotifier(cfg, serverApp, healthHandler)
	gw := initGateway(cfg)

	paymentService := paymentservice.NewPaymentService(
		repos.payments,
		gw,
		locker,
		paymentvalidator.NewPaymentValidator(cfg.Log, cfg.MinPaymentAmount),
		notifier,
		cfg,
	)
	bookingService := bookingservice.NewBookingService(
		repos.bookings,
		paymentService,
		locker,
		bookingvalidator.NewBookingValidator(cfg.Log, time.Now),
		paymentvalidator.NewPaymentValidator(cfg.Log, cfg.MinPaymentAmount),
		notifier,
		cfg,
	)

	worker := reconcile.NewWorker(
		repos.payments,
		repos.bookings,
		paymentService,
		bookingService,
		reconcile.Config{
			Interval:     cfg.ReconcileInterval,
			StaleAfter:   cfg.ReconcileStaleAfter,
			BatchSize:    cfg.ReconcileBatchSize,
			RefundWindow: cfg.ReconcileRefundWindow,
		},
		cfg.Log,
	)
	serverApp.AddWorker("reconciler", worker.Run)

	if cfg.WalkEventsEnabled {
		initWalkEventsConsumer(cfg, serverApp, healthHandler, bookingService)
	}

	serverApp.SetApp(
		healthHandler,
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		paymenthandler.NewPaymentHandler(paymentService, cfg.GatewayWebhookSecret, cfg.Log),
	)
	serverApp.Run()
}

func initRepositories(cfg *config.Config) repositories {
	if cfg.StorageDriver == config.StorageSQLite {
		cfg.Log.Info("Using SQLite storage", "path", cfg.SQLitePath)
		// The schema is embedded, so an SQLite deployment migrates on start.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sqliteMigration.RunMigration(ctx, cfg.Client.SQLite, cfg.Log); err != nil {
			cfg.Log.Fatal("SQLite migration failed", "error", err)
		}
		return repositories{
			bookings: bookingrepo.NewSQLiteBookingRepository(cfg.Client.SQLite),
			payments: paymentrepo.NewSQLitePaymentRepository(cfg.Client.SQLite),
		}
	}
	cfg.Log.Info("Using MongoDB storage", "database", cfg.MongoDatabaseName)
	return repositories{
		bookings: bookingrepo.NewMongoBookingRepository(cfg),
		payments: paymentrepo.NewMongoPaymentRepository(cfg),
	}
}

func initLocker(cfg *config.Config) lock.Locker {
	if cfg.LockDriver == config.LockMongo {
		cfg.Log.Info("Using MongoDB entity locks", "ttl", cfg.LockTTL)
		return lock.NewMongoLocker(cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.LockTTL, cfg.Log)
	}
	cfg.Log.Info("Using in-process entity locks")
	return lock.NewKeyedMutex()
}

func initGateway(cfg *config.Config) gateway.Gateway {
	if cfg.GatewayDriver == config.GatewayOmise {
		gw, err := gateway.NewOmise(cfg.OmisePublicKey, cfg.OmiseSecretKey)
		if err != nil {
			cfg.Log.Fatal("Failed to create Omise gateway", "error", err)
		}
		cfg.Log.Info("Using Omise payment gateway")
		return gw
	}
	cfg.Log.Warn("Using sandbox payment gateway; no real charges are made")
	return gateway.NewSandbox()
}

func initNotifier(cfg *config.Config, serverApp *app.Application, healthHandler *health.HealthHandler) notifications.Notifier {
	switch cfg.NotifierDriver {
	case config.NotifierKafka:
		kafkaCfg := loadKafkaConfig(cfg)
		producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationsTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create notifications producer", "error", err)
		}
		metrics := kafka_middleware.NewMetrics()
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		}
		producer.Use(metrics.Middleware())
		healthHandler.Track("notifications_producer", metrics)
		serverApp.OnShutdown("notifications producer", producer)
		cfg.Log.Info("Publishing notifications to Kafka", "topic", cfg.NotificationsTopic)
		return notifications.NewKafkaNotifier(producer)

	case config.NotifierRabbitMQ:
		notifier, err := notifications.NewRabbitMQNotifier(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			cfg.Log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		serverApp.OnShutdown("rabbitmq notifier", notifier)
		cfg.Log.Info("Publishing notifications to RabbitMQ", "exchange", cfg.RabbitMQExchange)
		return notifier

	default:
		return notifications.NewLogNotifier(cfg.Log)
	}
}

func initWalkEventsConsumer(cfg *config.Config, serverApp *app.Application, healthHandler *health.HealthHandler, bookingService bookingservice.BookingService) {
	kafkaCfg := loadKafkaConfig(cfg)
	handler := consumer.NewWalkEventHandler(bookingService, cfg.Log)

	walkConsumer, err := kafka.NewConsumer(kafkaCfg, kafka.ConsumerOptions{
		Topic:    cfg.WalkEventsTopic,
		GroupID:  cfg.WalkEventsGroup,
		DLQTopic: cfg.WalkEventsDLQTopic,
	}, handler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create walk events consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		walkConsumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}
	walkConsumer.Use(metrics.Middleware())
	healthHandler.Track("walk_events_consumer", metrics)

	serverApp.AddWorker("walk-events-consumer", func(ctx context.Context) {
		if err := walkConsumer.Start(ctx); err != nil && ctx.Err() == nil {
			cfg.Log.Error("Walk events consumer stopped", "error", err)
		}
	})
	serverApp.OnShutdown("walk events consumer", walkConsumer)
}

func loadKafkaConfig(cfg *config.Config) *kafka_config.Config {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	return kafkaCfg
}
