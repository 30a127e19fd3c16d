package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pawwalk/pkg/client"
	"pawwalk/pkg/logger"

	"github.com/joho/godotenv"
)

var (
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	credentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	amqpCredRegex   = regexp.MustCompile(`(amqps?://)[^:]+:[^@]+@`)
	currencyRegex   = regexp.MustCompile(`^[a-z]{3}$`)
)

type Config struct {
	Port     string
	LogLevel string

	StorageDriver     string
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	SQLitePath        string

	LockDriver string
	LockTTL    time.Duration

	GatewayDriver        string
	OmisePublicKey       string
	OmiseSecretKey       string
	GatewayTimeout       time.Duration
	GatewayWebhookSecret string

	DefaultCurrency            string
	MinPaymentAmount           int64
	DefaultWalkDurationMinutes int

	NotifierDriver     string
	NotificationsTopic string
	RabbitMQURL        string
	RabbitMQExchange   string
	NotifyTimeout      time.Duration

	WalkEventsEnabled  bool
	WalkEventsTopic    string
	WalkEventsGroup    string
	WalkEventsDLQTopic string

	ReconcileInterval     time.Duration
	ReconcileStaleAfter   time.Duration
	ReconcileBatchSize    int
	ReconcileRefundWindow time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the configuration from the environment. A .env file (or the file named by
// DOTENV_PATH) is loaded first when present; real environment variables win over it.
func Load(serviceName string) *Config {
	dotenvPath := getEnvStr(EnvDotEnv, ".env")
	dotenvErr := godotenv.Load(dotenvPath)

	cfg := &Config{
		Port:     getEnvStr(EnvPort, DefaultPort),
		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),

		StorageDriver:     strings.ToLower(getEnvStr(EnvStorageDriver, DefaultStorageDriver)),
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		SQLitePath:        getEnvStr(EnvSQLitePath, DefaultSQLitePath),

		LockDriver: strings.ToLower(getEnvStr(EnvLockDriver, DefaultLockDriver)),
		LockTTL:    getEnvDuration(EnvLockTTL, DefaultLockTTL),

		GatewayDriver:        strings.ToLower(getEnvStr(EnvGatewayDriver, DefaultGatewayDriver)),
		OmisePublicKey:       getEnvStr(EnvOmisePublicKey, ""),
		OmiseSecretKey:       getEnvStr(EnvOmiseSecretKey, ""),
		GatewayTimeout:       getEnvDuration(EnvGatewayTimeout, DefaultGatewayTimeout),
		GatewayWebhookSecret: getEnvStr(EnvGatewayWebhookSecret, ""),

		DefaultCurrency:            strings.ToLower(getEnvStr(EnvDefaultCurrency, DefaultCurrency)),
		MinPaymentAmount:           int64(getEnvNum(EnvMinPaymentAmount, DefaultMinPaymentAmount)),
		DefaultWalkDurationMinutes: getEnvNum(EnvDefaultWalkDuration, DefaultWalkDurationMinutes),

		NotifierDriver:     strings.ToLower(getEnvStr(EnvNotifierDriver, DefaultNotifierDriver)),
		NotificationsTopic: getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		RabbitMQURL:        getEnvStr(EnvRabbitMQURL, DefaultRabbitMQURL),
		RabbitMQExchange:   getEnvStr(EnvRabbitMQExchange, DefaultRabbitMQExchange),
		NotifyTimeout:      getEnvDuration(EnvNotifyTimeout, DefaultNotifyTimeout),

		WalkEventsEnabled:  getEnvBool(EnvWalkEventsEnabled, DefaultWalkEventsEnabled),
		WalkEventsTopic:    getEnvStr(EnvWalkEventsTopic, DefaultWalkEventsTopic),
		WalkEventsGroup:    getEnvStr(EnvWalkEventsGroup, DefaultWalkEventsGroup),
		WalkEventsDLQTopic: getEnvStr(EnvWalkEventsDLQTopic, DefaultWalkEventsDLQTopic),

		ReconcileInterval:     getEnvDuration(EnvReconcileInterval, DefaultReconcileInterval),
		ReconcileStaleAfter:   getEnvDuration(EnvReconcileStaleAfter, DefaultReconcileStaleAfter),
		ReconcileBatchSize:    getEnvNum(EnvReconcileBatchSize, DefaultReconcileBatchSize),
		ReconcileRefundWindow: getEnvDuration(EnvReconcileRefundWindow, DefaultReconcileRefundWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Client: client.NewClient(),
	}

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	if dotenvErr == nil {
		cfg.Log.Debug("Loaded environment file", "path", dotenvPath)
	}

	return cfg
}

func (cfg *Config) UsesMongo() bool {
	return cfg.StorageDriver == StorageMongo || cfg.LockDriver == LockMongo
}

// Connect opens the storage connections the configured drivers need.
func (cfg *Config) Connect() {
	if cfg.UsesMongo() {
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	}
	if cfg.StorageDriver == StorageSQLite {
		cfg.Client.SetSQLite(cfg.Log, cfg.SQLitePath)
	}
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageDriver {
	case StorageMongo, StorageSQLite:
	default:
		errors = append(errors, fmt.Sprintf("StorageDriver must be one of [mongo, sqlite], got: %s", cfg.StorageDriver))
	}
	switch cfg.LockDriver {
	case LockMemory, LockMongo:
	default:
		errors = append(errors, fmt.Sprintf("LockDriver must be one of [memory, mongo], got: %s", cfg.LockDriver))
	}
	switch cfg.GatewayDriver {
	case GatewaySandbox, GatewayOmise:
	default:
		errors = append(errors, fmt.Sprintf("GatewayDriver must be one of [sandbox, omise], got: %s", cfg.GatewayDriver))
	}
	switch cfg.NotifierDriver {
	case NotifierLog, NotifierKafka, NotifierRabbitMQ:
	default:
		errors = append(errors, fmt.Sprintf("NotifierDriver must be one of [log, kafka, rabbitmq], got: %s", cfg.NotifierDriver))
	}

	if cfg.UsesMongo() {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !mongoURIRegex.MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}
	if cfg.StorageDriver == StorageSQLite && cfg.SQLitePath == "" {
		errors = append(errors, "SQLitePath cannot be empty when StorageDriver is sqlite")
	}
	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	} else if minTTL := cfg.GatewayTimeout + 2*cfg.WriteTimeout; cfg.LockTTL <= minTTL {
		// A lock held across a gateway call and its surrounding writes must not expire mid-flow.
		errors = append(errors, fmt.Sprintf("LockTTL (%s) must exceed GatewayTimeout + 2*WriteTimeout (%s)", cfg.LockTTL, minTTL))
	}

	if cfg.GatewayDriver == GatewayOmise && (cfg.OmisePublicKey == "" || cfg.OmiseSecretKey == "") {
		errors = append(errors, "OmisePublicKey and OmiseSecretKey are required when GatewayDriver is omise")
	}
	if cfg.GatewayTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("GatewayTimeout must be positive, got: %s", cfg.GatewayTimeout))
	}

	if !currencyRegex.MatchString(cfg.DefaultCurrency) {
		errors = append(errors, fmt.Sprintf("DefaultCurrency must be a 3-letter ISO code, got: %s", cfg.DefaultCurrency))
	}
	if cfg.MinPaymentAmount < 0 {
		errors = append(errors, fmt.Sprintf("MinPaymentAmount cannot be negative, got: %d", cfg.MinPaymentAmount))
	}
	if cfg.DefaultWalkDurationMinutes < 15 || cfg.DefaultWalkDurationMinutes > 240 {
		errors = append(errors, fmt.Sprintf("DefaultWalkDurationMinutes must be between 15 and 240, got: %d", cfg.DefaultWalkDurationMinutes))
	}

	if cfg.NotifierDriver == NotifierKafka && cfg.NotificationsTopic == "" {
		errors = append(errors, "NotificationsTopic cannot be empty when NotifierDriver is kafka")
	}
	if cfg.NotifierDriver == NotifierRabbitMQ && (cfg.RabbitMQURL == "" || cfg.RabbitMQExchange == "") {
		errors = append(errors, "RabbitMQURL and RabbitMQExchange are required when NotifierDriver is rabbitmq")
	}
	if cfg.NotifyTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyTimeout must be positive, got: %s", cfg.NotifyTimeout))
	}
	if cfg.WalkEventsEnabled && (cfg.WalkEventsTopic == "" || cfg.WalkEventsGroup == "") {
		errors = append(errors, "WalkEventsTopic and WalkEventsGroup are required when walk events are enabled")
	}

	if cfg.ReconcileInterval <= 0 {
		errors = append(errors, fmt.Sprintf("ReconcileInterval must be positive, got: %s", cfg.ReconcileInterval))
	}
	if cfg.ReconcileStaleAfter <= cfg.GatewayTimeout {
		errors = append(errors, fmt.Sprintf("ReconcileStaleAfter (%s) must exceed GatewayTimeout (%s)", cfg.ReconcileStaleAfter, cfg.GatewayTimeout))
	}
	if cfg.ReconcileBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("ReconcileBatchSize must be positive, got: %d", cfg.ReconcileBatchSize))
	}
	if cfg.ReconcileRefundWindow < 0 {
		errors = append(errors, fmt.Sprintf("ReconcileRefundWindow cannot be negative, got: %s", cfg.ReconcileRefundWindow))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"storage_driver", cfg.StorageDriver,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"sqlite_path", cfg.SQLitePath,
		"lock_driver", cfg.LockDriver,
		"lock_ttl", cfg.LockTTL,
		"gateway_driver", cfg.GatewayDriver,
		"omise_keys_set", cfg.OmisePublicKey != "" && cfg.OmiseSecretKey != "",
		"gateway_timeout", cfg.GatewayTimeout,
		"gateway_webhook_secret_set", cfg.GatewayWebhookSecret != "",
		"default_currency", cfg.DefaultCurrency,
		"min_payment_amount", cfg.MinPaymentAmount,
		"default_walk_duration_min", cfg.DefaultWalkDurationMinutes,
		"notifier_driver", cfg.NotifierDriver,
		"notifications_topic", cfg.NotificationsTopic,
		"rabbitmq_url", amqpCredRegex.ReplaceAllString(cfg.RabbitMQURL, "${1}***:***@"),
		"rabbitmq_exchange", cfg.RabbitMQExchange,
		"notify_timeout", cfg.NotifyTimeout,
		"walk_events_enabled", cfg.WalkEventsEnabled,
		"walk_events_topic", cfg.WalkEventsTopic,
		"walk_events_group", cfg.WalkEventsGroup,
		"reconcile_interval", cfg.ReconcileInterval,
		"reconcile_stale_after", cfg.ReconcileStaleAfter,
		"reconcile_batch_size", cfg.ReconcileBatchSize,
		"reconcile_refund_window", cfg.ReconcileRefundWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
