package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roombook"
	DefaultMongoConnTimeout  = 10 * time.Second

	StorageMongo  = "mongo"
	StorageMemory = "memory"

	DefaultStorageBackend = StorageMongo

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	IdempotencyMemory = "memory"
	IdempotencyRedis  = "redis"

	DefaultRequestTimeout     = 30 * time.Second
	DefaultIdempotencyTTL     = 24 * time.Hour
	DefaultIdempotencyBackend = IdempotencyMemory
	DefaultMaxRequestSize     = 1 * 1024 * 1024 // 1MB

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBookingAllowPastDates  = true
	DefaultBookingDistributedLock = false
	DefaultBookingLockTTL         = 45 * time.Second
	DefaultBookingLockRetries     = 5
	DefaultBookingLockRetryDelay  = 50 * time.Millisecond

	DefaultKafkaEnabled          = false
	DefaultKafkaBookingsTopic    = "roombook.bookings"
	DefaultKafkaBookingsDLQTopic = "roombook.bookings.dlq"
	DefaultKafkaConsumerGroup    = "roombook-availability"

	DefaultAvailabilityResyncInterval = 5 * time.Minute

	DefaultPaginationLimit = 100
)
