package kafka_config

import (
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBrokers  = "localhost:9092"
	DefaultKafkaClientID = "roombook"

	// Booking events are small and must not be lost, so every in-sync
	// replica acknowledges a write.
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerWriteTimeout = 5 * time.Second
	DefaultProducerRequireAcks  = int(kafka.RequireAll)
	DefaultProducerCompression  = "snappy"

	// A replica without committed offsets hydrates from Mongo first, so it
	// only needs events published after it joined.
	DefaultConsumerStartOffset       = kafka.LastOffset
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 1 * 1024 * 1024 // 1MB
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerCommitInterval    = 0 // synchronous commits
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 30 * time.Second
	DefaultConsumerMaxRetries        = 3
)

var (
	validCompressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}
	validRequireAcks  = []int{int(kafka.RequireAll), int(kafka.RequireNone), int(kafka.RequireOne)}
)
