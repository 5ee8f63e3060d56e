package main

import (
	"context"
	"errors"
	"os"
	"time"

	availabilityHandler "roombook/internal/availability/handler"
	"roombook/internal/availability/index"
	"roombook/internal/availability/projector"
	availabilityService "roombook/internal/availability/service"
	bookingRepository "roombook/internal/bookings/repository"
	roomRepository "roombook/internal/rooms/repository"
	"roombook/pkg/app"
	"roombook/pkg/config"
	"roombook/pkg/kafka"
	kafka_config "roombook/pkg/kafka/config"
	kafka_middleware "roombook/pkg/kafka/middleware"
)

const (
	ServiceName      = "availability"
	hydrationTimeout = 60 * time.Second
)

// The availability replica serves room searches from its own index, kept
// current by booking events and a periodic resync against Mongo.
func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Availability replica")

	if !cfg.UsesMongo() {
		cfg.Log.Fatal("Availability replica requires the mongo storage backend")
	}
	if !cfg.KafkaEnabled {
		cfg.Log.Fatal("Availability replica requires KAFKA_ENABLED=true")
	}
	cfg.SetMongo()
	if cfg.IdempotencyBackend == config.IdempotencyRedis {
		cfg.SetRedis()
	}

	serverApp := app.NewApplication()
	rooms := roomRepository.NewMongoRoomRepository(cfg)
	bookings := bookingRepository.NewMongoBookingRepository(cfg)

	idx := index.NewIndex()
	proj := projector.New(idx, cfg.Log)

	hydrateCtx, cancel := context.WithTimeout(context.Background(), hydrationTimeout)
	if err := proj.Hydrate(hydrateCtx, bookings); err != nil {
		cancel()
		cfg.Log.Fatal("Failed to hydrate availability index", "error", err)
	}
	cancel()

	startConsumer(cfg, serverApp, proj)
	serverApp.Go("availability-resync", func(ctx context.Context) {
		proj.RunResync(ctx, bookings, cfg.AvailabilityResyncInterval)
	})

	availability := availabilityService.NewAvailabilityService(rooms, idx, cfg)
	serverApp.SetApp(cfg, availabilityHandler.NewAvailabilityHandler(availability, cfg.Log))
	serverApp.Run()
}

func startConsumer(cfg *config.Config, serverApp *app.Application, proj *projector.Projector) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	hostname, _ := os.Hostname()
	groupID := cfg.ReplicaConsumerGroup(hostname)
	cfg.Log.Info("Joining booking events as replica", "group_id", groupID)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.KafkaBookingsTopic,
		groupID,
		cfg.KafkaBookingsDLQTopic,
		proj.HandleMessage,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(metrics.ConsumerMiddleware())

	serverApp.Go("booking-events-consumer", func(ctx context.Context) {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Booking events consumer stopped", "error", err)
		}
	})
	serverApp.OnShutdown("kafka-consumer", func() error {
		metrics.LogMetrics(cfg.Log)
		return consumer.Close()
	})
}
