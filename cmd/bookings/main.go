package main

import (
	"slotly/internal/auth"
	"slotly/internal/bookings/handler"
	"slotly/internal/bookings/repository"
	"slotly/internal/bookings/service"
	"slotly/internal/bookings/validator"
	"slotly/internal/calendar"
	userrepository "slotly/internal/users/repository"
	"slotly/pkg/app"
	"slotly/pkg/config"
	"slotly/pkg/contracts"
	"slotly/pkg/kafka"
	kafka_config "slotly/pkg/kafka/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	userRepo := userrepository.NewMongoUserRepository(cfg)
	producer := initProducer(cfg)
	if producer != nil {
		defer func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}()
	}

	bookingService := initBookingService(cfg, userRepo, producer)

	handlers := []contracts.Handler{
		handler.NewBookingHandler(bookingService, cfg),
	}
	if cfg.GoogleClientID != "" {
		authService := auth.NewAuthService(userRepo, cfg)
		handlers = append(handlers, auth.NewAuthHandler(authService, cfg.FrontendURL, cfg.Log))
		cfg.Log.Info("Google login enabled")
	} else {
		cfg.Log.Warn("Google login not configured; auth endpoints disabled")
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handlers...)
	serverApp.Run()
}

func initBookingService(cfg *config.Config, userRepo userrepository.UserRepository, producer *kafka.Producer) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	lockRepo := repository.NewBookingLockRepository(cfg)
	checker := calendar.NewGoogleChecker(cfg.Log)

	// A typed nil producer must not become a non-nil publisher interface.
	var events service.EventPublisher
	if producer != nil {
		events = producer
	}

	bookingService := service.NewBookingService(
		bookingRepo,
		lockRepo,
		bookingValidator,
		userRepo,
		checker,
		events,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

func initProducer(cfg *config.Config) *kafka.Producer {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled; booking events will not be published")
		return nil
	}

	producer, err := kafka.NewProducer(kafka_config.Load(), cfg.KafkaBookingTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka producer initialized", "topic", cfg.KafkaBookingTopic)
	return producer
}
