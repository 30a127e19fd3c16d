package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvDotEnv   = "DOTENV_PATH"

	EnvStorageDriver     = "STORAGE_DRIVER"
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvSQLitePath        = "SQLITE_PATH"

	EnvLockDriver = "LOCK_DRIVER"
	EnvLockTTL    = "LOCK_TTL"

	EnvGatewayDriver        = "GATEWAY_DRIVER"
	EnvOmisePublicKey       = "OMISE_PUBLIC_KEY"
	EnvOmiseSecretKey       = "OMISE_SECRET_KEY"
	EnvGatewayTimeout       = "GATEWAY_TIMEOUT"
	EnvGatewayWebhookSecret = "GATEWAY_WEBHOOK_SECRET"

	EnvDefaultCurrency     = "DEFAULT_CURRENCY"
	EnvMinPaymentAmount    = "MIN_PAYMENT_AMOUNT"
	EnvDefaultWalkDuration = "DEFAULT_WALK_DURATION_MIN"

	EnvNotifierDriver     = "NOTIFIER_DRIVER"
	EnvNotificationsTopic = "NOTIFICATIONS_TOPIC"
	EnvRabbitMQURL        = "RABBITMQ_URL"
	EnvRabbitMQExchange   = "RABBITMQ_EXCHANGE"
	EnvNotifyTimeout      = "NOTIFY_TIMEOUT"

	EnvWalkEventsEnabled  = "WALK_EVENTS_ENABLED"
	EnvWalkEventsTopic    = "WALK_EVENTS_TOPIC"
	EnvWalkEventsGroup    = "WALK_EVENTS_GROUP"
	EnvWalkEventsDLQTopic = "WALK_EVENTS_DLQ_TOPIC"

	EnvReconcileInterval     = "RECONCILE_INTERVAL"
	EnvReconcileStaleAfter   = "RECONCILE_STALE_AFTER"
	EnvReconcileBatchSize    = "RECONCILE_BATCH_SIZE"
	EnvReconcileRefundWindow = "RECONCILE_REFUND_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
