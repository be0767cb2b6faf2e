package main

import (
	"context"

	appointmenthandler "carebook/internal/appointments/handler"
	appointmentrepo "carebook/internal/appointments/repository"
	appointmentservice "carebook/internal/appointments/service"
	availabilityhandler "carebook/internal/availability/handler"
	availabilityrepo "carebook/internal/availability/repository"
	availabilityservice "carebook/internal/availability/service"
	directoryhandler "carebook/internal/directory/handler"
	directoryservice "carebook/internal/directory/service"
	"carebook/internal/locks"
	"carebook/internal/notify"
	waitlisthandler "carebook/internal/waitlist/handler"
	waitlistrepo "carebook/internal/waitlist/repository"
	waitlistservice "carebook/internal/waitlist/service"
	"carebook/pkg/app"
	"carebook/pkg/config"

	"go.mongodb.org/mongo-driver/mongo"
)

const ServiceName = "scheduling"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Scheduling service")

	var db *mongo.Database
	if cfg.MongoEnabled() {
		cfg.SetMongo()
		db = cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	}

	dispatcher := initDispatcher(cfg)
	directory := directoryservice.NewSampleDirectoryService()

	availability := availabilityservice.NewAvailabilityService(
		availabilityrepo.NewMemorySlotRepository(),
		cfg,
	)
	seedCatalog(cfg, directory, availability)
	availability.StartSweeper()

	waitlist := waitlistservice.NewWaitlistService(
		waitlistRepository(cfg, db),
		directory,
		dispatcher,
		cfg.Log,
	)

	appointments := appointmentservice.NewAppointmentService(
		appointmentRepository(cfg, db),
		availability,
		directory,
		waitlist,
		lockManager(cfg, db),
		dispatcher,
		cfg,
	)

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(availability.Stop)
	serverApp.OnShutdown(func() {
		if err := dispatcher.Close(); err != nil {
			cfg.Log.Error("Failed to close event dispatcher", "error", err)
		}
	})
	serverApp.SetApp(
		availabilityhandler.NewAvailabilityHandler(availability, cfg.Log),
		directoryhandler.NewProviderHandler(directory, cfg.Log),
		waitlisthandler.NewWaitlistHandler(waitlist, cfg.Log),
		appointmenthandler.NewAppointmentHandler(appointments, cfg.Log),
	)
	serverApp.Run()
}

func initDispatcher(cfg *config.Config) notify.Dispatcher {
	if !cfg.KafkaEnabled() {
		cfg.Log.Info("No Kafka brokers configured, notifications go to the log")
		return notify.NewLogDispatcher(cfg.Log)
	}

	dispatcher, err := notify.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.KafkaEventTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka dispatcher", "error", err)
	}
	cfg.Log.Info("Kafka dispatcher initialized",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaEventTopic,
	)
	return dispatcher
}

func seedCatalog(cfg *config.Config, directory directoryservice.DirectoryService, availability availabilityservice.AvailabilityService) {
	seeder := availabilityservice.NewCatalogSeeder(directory, availability, cfg)
	if _, err := seeder.Seed(context.Background()); err != nil {
		cfg.Log.Fatal("Failed to seed slot catalogue", "error", err)
	}
}

func waitlistRepository(cfg *config.Config, db *mongo.Database) waitlistrepo.WaitlistRepository {
	if db != nil {
		cfg.Log.Info("Using MongoDB waitlist repository")
		return waitlistrepo.NewMongoWaitlistRepository(db)
	}
	return waitlistrepo.NewMemoryWaitlistRepository()
}

func appointmentRepository(cfg *config.Config, db *mongo.Database) appointmentrepo.AppointmentRepository {
	if db != nil {
		cfg.Log.Info("Using MongoDB appointment repository")
		return appointmentrepo.NewMongoAppointmentRepository(db)
	}
	return appointmentrepo.NewMemoryAppointmentRepository()
}

func lockManager(cfg *config.Config, db *mongo.Database) locks.Manager {
	if db != nil {
		cfg.Log.Info("Using MongoDB slot lock manager")
		return locks.NewMongoManager(cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
	}
	return locks.NewMemoryManager()
}
