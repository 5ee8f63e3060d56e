package main

import (
	"context"
	"time"

	availabilityHandler "roombook/internal/availability/handler"
	"roombook/internal/availability/index"
	"roombook/internal/availability/projector"
	availabilityService "roombook/internal/availability/service"
	"roombook/internal/bookings/events"
	bookingHandler "roombook/internal/bookings/handler"
	bookingRepository "roombook/internal/bookings/repository"
	bookingService "roombook/internal/bookings/service"
	bookingValidator "roombook/internal/bookings/validator"
	roomHandler "roombook/internal/rooms/handler"
	roomRepository "roombook/internal/rooms/repository"
	roomService "roombook/internal/rooms/service"
	roomValidator "roombook/internal/rooms/validator"
	"roombook/pkg/app"
	"roombook/pkg/config"
	"roombook/pkg/kafka"
	kafka_config "roombook/pkg/kafka/config"
	kafka_middleware "roombook/pkg/kafka/middleware"
)

const (
	ServiceName      = "bookings"
	hydrationTimeout = 60 * time.Second
)

type repositories struct {
	rooms    roomRepository.RoomRepository
	bookings bookingRepository.BookingRepository
	locks    bookingRepository.BookingLockRepository
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Bookings service", "storage_backend", cfg.StorageBackend)

	if cfg.UsesMongo() {
		cfg.SetMongo()
	}
	if cfg.IdempotencyBackend == config.IdempotencyRedis {
		cfg.SetRedis()
	}

	serverApp := app.NewApplication()
	repos := initRepositories(cfg)

	idx := index.NewIndex()
	hydrateCtx, cancel := context.WithTimeout(context.Background(), hydrationTimeout)
	if err := projector.New(idx, cfg.Log).Hydrate(hydrateCtx, repos.bookings); err != nil {
		cancel()
		cfg.Log.Fatal("Failed to hydrate availability index", "error", err)
	}
	cancel()

	publisher := initPublisher(cfg, serverApp)

	bookings := bookingService.NewBookingService(
		repos.bookings,
		repos.locks,
		repos.rooms,
		idx,
		publisher,
		bookingValidator.NewBookingValidator(cfg.Log),
		cfg,
	)
	rooms := roomService.NewRoomService(
		repos.rooms,
		bookings,
		roomValidator.NewRoomValidator(cfg.Log),
		cfg,
	)
	availability := availabilityService.NewAvailabilityService(repos.rooms, idx, cfg)

	serverApp.SetApp(cfg,
		availabilityHandler.NewAvailabilityHandler(availability, cfg.Log),
		roomHandler.NewRoomHandler(rooms, availability, cfg.Log),
		bookingHandler.NewBookingHandler(bookings, cfg.Log),
	)
	serverApp.Run()
}

func initRepositories(cfg *config.Config) repositories {
	if !cfg.UsesMongo() {
		cfg.Log.Warn("Using in-memory storage, data is lost on restart")
		return repositories{
			rooms:    roomRepository.NewMemoryRoomRepository(),
			bookings: bookingRepository.NewMemoryBookingRepository(),
		}
	}

	repos := repositories{
		rooms:    roomRepository.NewMongoRoomRepository(cfg),
		bookings: bookingRepository.NewMongoBookingRepository(cfg),
	}
	if cfg.Booking.DistributedLocks {
		repos.locks = bookingRepository.NewBookingLockRepository(cfg)
	}
	cfg.Log.Info("Mongo repositories initialized",
		"database", cfg.MongoDatabaseName,
		"distributed_locks", cfg.Booking.DistributedLocks,
	)
	return repos
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events are not published")
		return events.NewNoopPublisher()
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaBookingsTopic, cfg.KafkaBookingsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(metrics.ProducerMiddleware())

	serverApp.OnShutdown("kafka-producer", func() error {
		metrics.LogMetrics(cfg.Log)
		return producer.Close()
	})
	return events.NewKafkaPublisher(producer)
}
