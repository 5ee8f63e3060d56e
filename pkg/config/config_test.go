package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:           DefaultMongoURI,
		MongoDatabaseName:  DefaultMongoDatabaseName,
		MongoConnTimeout:   DefaultMongoConnTimeout,
		StorageBackend:     StorageMongo,
		Port:               DefaultPort,
		RateLimitRequests:  DefaultRateLimitRequests,
		RateLimitWindow:    DefaultRateLimitWindow,
		RequestTimeout:     DefaultRequestTimeout,
		IdempotencyTTL:     DefaultIdempotencyTTL,
		IdempotencyBackend: DefaultIdempotencyBackend,
		MaxRequestSize:     DefaultMaxRequestSize,
		ReadTimeout:        DefaultReadTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		IdleTimeout:        DefaultIdleTimeout,
		ShutdownTimeout:    DefaultShutdownTimeout,
		Booking: BookingConfig{
			AllowPastDates: true,
			LockTTL:        DefaultBookingLockTTL,
			LockRetries:    DefaultBookingLockRetries,
			LockRetryDelay: DefaultBookingLockRetryDelay,
		},
		AvailabilityResyncInterval: DefaultAvailabilityResyncInterval,
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "Port must be between"},
		{"unknown backend", func(c *Config) { c.StorageBackend = "postgres" }, "StorageBackend must be one of"},
		{"bad mongo uri", func(c *Config) { c.MongoURI = "localhost:27017" }, "MongoURI must start with"},
		{"redis without addr", func(c *Config) {
			c.IdempotencyBackend = IdempotencyRedis
			c.RedisAddr = ""
		}, "RedisAddr cannot be empty"},
		{"opening without closing", func(c *Config) { c.Booking.OpeningTime = "08:00" }, "must be set together"},
		{"reversed hours", func(c *Config) {
			c.Booking.OpeningTime = "18:00"
			c.Booking.ClosingTime = "08:00"
		}, "must be before BookingClosingTime"},
		{"unparseable hours", func(c *Config) {
			c.Booking.OpeningTime = "8am"
			c.Booking.ClosingTime = "6pm"
		}, "operating hours must be"},
		{"negative lock retries", func(c *Config) { c.Booking.LockRetries = -1 }, "BookingLockRetries cannot be negative"},
		{"distributed locks in memory", func(c *Config) {
			c.StorageBackend = StorageMemory
			c.Booking.DistributedLocks = true
		}, "requires the mongo storage backend"},
		{"lock ttl shorter than a commit", func(c *Config) { c.Booking.LockTTL = 10 * time.Second }, "must exceed ReadTimeout + WriteTimeout"},
		{"negative resync", func(c *Config) { c.AvailabilityResyncInterval = -time.Second }, "AvailabilityResyncInterval cannot be negative"},
		{"kafka without topic", func(c *Config) {
			c.KafkaEnabled = true
			c.KafkaConsumerGroup = "g"
		}, "KafkaBookingsTopic cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.RequestTimeout = 0
	cfg.MaxRequestSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"1. ", "2. ", "3. "} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should list every problem, missing %q in %q", want, err.Error())
		}
	}
}

func TestBookingConfig_OperatingHours(t *testing.T) {
	if _, ok := (BookingConfig{}).OperatingHours(); ok {
		t.Error("empty hours should mean unbounded")
	}

	hours, ok := BookingConfig{OpeningTime: "08:00", ClosingTime: "18:30"}.OperatingHours()
	if !ok {
		t.Fatal("expected configured hours")
	}
	if hours.String() != "08:00:00-18:30:00" {
		t.Errorf("hours = %s", hours)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("ROOMBOOK_TEST_DURATION", "90s")
	t.Setenv("ROOMBOOK_TEST_BAD_DURATION", "soon")
	t.Setenv("ROOMBOOK_TEST_BOOL", "false")
	t.Setenv("ROOMBOOK_TEST_NUM", "42")

	if got := getEnvDuration("ROOMBOOK_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("duration = %s", got)
	}
	if got := getEnvDuration("ROOMBOOK_TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Errorf("bad duration should fall back, got %s", got)
	}
	if getEnvBool("ROOMBOOK_TEST_BOOL", true) {
		t.Error("bool should read false")
	}
	if got := getEnvNum("ROOMBOOK_TEST_NUM", 1); got != 42 {
		t.Errorf("num = %d", got)
	}
	if got := getEnvStr("ROOMBOOK_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("str = %q", got)
	}
}

func TestNormalizePagination(t *testing.T) {
	if NormalizePaginationLimit(0) != 10 {
		t.Error("zero limit should default to 10")
	}
	if NormalizePaginationLimit(1000) != DefaultPaginationLimit {
		t.Error("limit should be capped")
	}
	if NormalizeOffset(-3) != 0 {
		t.Error("negative offset should clamp to 0")
	}
}

func TestReplicaConsumerGroup_UniquePerReplica(t *testing.T) {
	cfg := validConfig()
	cfg.KafkaConsumerGroup = DefaultKafkaConsumerGroup

	first := cfg.ReplicaConsumerGroup("replica-a")
	second := cfg.ReplicaConsumerGroup("replica-a")
	if first == second {
		t.Fatalf("two replicas on one host share group %q", first)
	}
	if !strings.HasPrefix(first, DefaultKafkaConsumerGroup+"-replica-a-") {
		t.Errorf("group %q should carry the base group and hostname", first)
	}
	if got := cfg.ReplicaConsumerGroup(" "); !strings.HasPrefix(got, DefaultKafkaConsumerGroup+"-") || strings.Contains(got, " ") {
		t.Errorf("blank hostname produced %q", got)
	}
}
