package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"roombook/pkg/client"
	"roombook/pkg/logger"
	"roombook/pkg/model"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	StorageBackend string

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout     time.Duration
	IdempotencyTTL     time.Duration
	IdempotencyBackend string
	MaxRequestSize     int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Booking BookingConfig

	KafkaEnabled          bool
	KafkaBookingsTopic    string
	KafkaBookingsDLQTopic string
	KafkaConsumerGroup    string

	AvailabilityResyncInterval time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// BookingConfig holds the admission policy. Empty opening/closing times mean
// bookings may span the whole day.
type BookingConfig struct {
	OpeningTime      string
	ClosingTime      string
	AllowPastDates   bool
	DistributedLocks bool
	LockTTL          time.Duration
	LockRetries      int
	LockRetryDelay   time.Duration
}

// OperatingHours returns the configured bounds, or ok=false when unbounded.
func (b BookingConfig) OperatingHours() (model.Window, bool) {
	if b.OpeningTime == "" || b.ClosingTime == "" {
		return model.Window{}, false
	}
	w, err := model.NewWindow(b.OpeningTime, b.ClosingTime)
	if err != nil {
		return model.Window{}, false
	}
	return w, true
}

func Load(serviceName string) *Config {
	envErr := loadDotEnv()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		StorageBackend: getEnvStr(EnvStorageBackend, DefaultStorageBackend),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout:     getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL:     getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		IdempotencyBackend: getEnvStr(EnvIdempotencyBackend, DefaultIdempotencyBackend),
		MaxRequestSize:     getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Booking: BookingConfig{
			OpeningTime:      getEnvStr(EnvBookingOpeningTime, ""),
			ClosingTime:      getEnvStr(EnvBookingClosingTime, ""),
			AllowPastDates:   getEnvBool(EnvBookingAllowPastDates, DefaultBookingAllowPastDates),
			DistributedLocks: getEnvBool(EnvBookingDistributedLock, DefaultBookingDistributedLock),
			LockTTL:          getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
			LockRetries:      getEnvNum(EnvBookingLockRetries, DefaultBookingLockRetries),
			LockRetryDelay:   getEnvDuration(EnvBookingLockRetryDelay, DefaultBookingLockRetryDelay),
		},

		KafkaEnabled:          getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaBookingsTopic:    getEnvStr(EnvKafkaBookingsTopic, DefaultKafkaBookingsTopic),
		KafkaBookingsDLQTopic: getEnvStr(EnvKafkaBookingsDLQTopic, DefaultKafkaBookingsDLQTopic),
		KafkaConsumerGroup:    getEnvStr(EnvKafkaConsumerGroup, DefaultKafkaConsumerGroup),

		AvailabilityResyncInterval: getEnvDuration(EnvAvailabilityResyncInterval, DefaultAvailabilityResyncInterval),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envErr != nil {
		cfg.Log.Warn("Could not read .env file", "error", envErr)
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// loadDotEnv reads .env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv() error {
	path := getEnvStr("ENV_FILE", ".env")
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) UsesMongo() bool {
	return cfg.StorageBackend == StorageMongo
}

// ReplicaConsumerGroup derives the consumer group of one availability
// replica. Replicas never share a group, so each one is assigned every
// partition of the bookings topic.
func (cfg *Config) ReplicaConsumerGroup(hostname string) string {
	suffix := uuid.NewString()[:8]
	if hostname = strings.TrimSpace(hostname); hostname != "" {
		return cfg.KafkaConsumerGroup + "-" + hostname + "-" + suffix
	}
	return cfg.KafkaConsumerGroup + "-" + suffix
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageBackend {
	case StorageMongo, StorageMemory:
	default:
		errors = append(errors, fmt.Sprintf("StorageBackend must be one of [mongo, memory], got: %s", cfg.StorageBackend))
	}

	if cfg.StorageBackend == StorageMongo {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	switch cfg.IdempotencyBackend {
	case IdempotencyMemory:
	case IdempotencyRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when IdempotencyBackend is redis")
		}
	default:
		errors = append(errors, fmt.Sprintf("IdempotencyBackend must be one of [memory, redis], got: %s", cfg.IdempotencyBackend))
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

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	errors = append(errors, cfg.Booking.validate()...)
	if cfg.Booking.DistributedLocks && cfg.StorageBackend != StorageMongo {
		errors = append(errors, "BookingDistributedLocks requires the mongo storage backend")
	}
	// A lease must survive a stalled refresh plus commit even between renewals.
	if budget := cfg.ReadTimeout + cfg.WriteTimeout; cfg.Booking.LockTTL <= budget {
		errors = append(errors, fmt.Sprintf("BookingLockTTL (%s) must exceed ReadTimeout + WriteTimeout (%s)", cfg.Booking.LockTTL, budget))
	}
	if cfg.AvailabilityResyncInterval < 0 {
		errors = append(errors, fmt.Sprintf("AvailabilityResyncInterval cannot be negative, got: %s", cfg.AvailabilityResyncInterval))
	}

	if cfg.KafkaEnabled {
		if cfg.KafkaBookingsTopic == "" {
			errors = append(errors, "KafkaBookingsTopic cannot be empty when Kafka is enabled")
		}
		if cfg.KafkaConsumerGroup == "" {
			errors = append(errors, "KafkaConsumerGroup cannot be empty when Kafka is enabled")
		}
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

func (b BookingConfig) validate() []string {
	var errors []string

	if (b.OpeningTime == "") != (b.ClosingTime == "") {
		errors = append(errors, "BookingOpeningTime and BookingClosingTime must be set together")
	}
	if b.OpeningTime != "" && b.ClosingTime != "" {
		hours, err := model.NewWindow(b.OpeningTime, b.ClosingTime)
		if err != nil {
			errors = append(errors, fmt.Sprintf("Booking operating hours must be HH:MM or HH:MM:SS: %v", err))
		} else if !hours.Valid() {
			errors = append(errors, fmt.Sprintf("BookingOpeningTime (%s) must be before BookingClosingTime (%s)", b.OpeningTime, b.ClosingTime))
		}
	}

	if b.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("BookingLockTTL must be positive, got: %s", b.LockTTL))
	}
	if b.LockRetries < 0 {
		errors = append(errors, fmt.Sprintf("BookingLockRetries cannot be negative, got: %d", b.LockRetries))
	}
	if b.LockRetryDelay <= 0 {
		errors = append(errors, fmt.Sprintf("BookingLockRetryDelay must be positive, got: %s", b.LockRetryDelay))
	}

	return errors
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"storage_backend", cfg.StorageBackend,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"idempotency_backend", cfg.IdempotencyBackend,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"booking_opening_time", cfg.Booking.OpeningTime,
		"booking_closing_time", cfg.Booking.ClosingTime,
		"booking_allow_past_dates", cfg.Booking.AllowPastDates,
		"booking_distributed_locks", cfg.Booking.DistributedLocks,
		"booking_lock_ttl", cfg.Booking.LockTTL,
		"booking_lock_retries", cfg.Booking.LockRetries,
		"booking_lock_retry_delay", cfg.Booking.LockRetryDelay,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_bookings_topic", cfg.KafkaBookingsTopic,
		"kafka_consumer_group", cfg.KafkaConsumerGroup,
		"availability_resync_interval", cfg.AvailabilityResyncInterval,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
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
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
