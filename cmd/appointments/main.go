package main

import (
	"clinicops/internal/appointments/handler"
	"clinicops/internal/appointments/repository"
	"clinicops/internal/appointments/service"
	"clinicops/internal/appointments/validator"
	"clinicops/pkg/app"
	"clinicops/pkg/config"
	"clinicops/pkg/kafka"
	kafka_config "clinicops/pkg/kafka/config"
	"clinicops/pkg/slot"
)

const ServiceName = "appointments"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Appointments service")

	appointmentService, producer := initServices(cfg)
	if producer != nil {
		defer producer.Close()
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewAppointmentHandler(appointmentService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.AppointmentService, *kafka.Producer) {
	clock, err := slot.NewClock(
		cfg.ClinicTimeZone,
		cfg.ClinicOpenStart,
		cfg.ClinicOpenEnd,
		cfg.SlotDuration(),
	)
	if err != nil {
		cfg.Log.Fatal("Invalid clinic slot configuration", "error", err)
	}

	producer := initProducer(cfg)

	appointmentValidator := validator.NewAppointmentValidator(cfg.Log)
	appointmentRepo := repository.NewMongoAppointmentRepository(cfg)
	slotLedger := repository.NewMongoSlotLedgerRepository(cfg)

	var publisher service.EventPublisher
	if producer != nil {
		publisher = producer
	}

	appointmentService := service.NewAppointmentService(
		cfg,
		appointmentRepo,
		slotLedger,
		appointmentValidator,
		clock,
		publisher,
	)

	cfg.Log.Info("Appointment service initialized",
		"database", cfg.MongoDatabaseName,
		"clinic_time_zone", cfg.ClinicTimeZone,
		"slot_max_capacity", cfg.SlotMaxCapacity,
	)
	return appointmentService, producer
}

// initProducer builds the Kafka event producer. Event publishing is best
// effort; a misconfigured broker keeps the service booking appointments and
// only loses the event stream.
func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Warn("Kafka configuration invalid, events disabled", "error", err)
		return nil
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.AppointmentEventsTopic, cfg.AppointmentEventsDLQTopic)
	if err != nil {
		cfg.Log.Warn("Failed to initialize Kafka producer, events disabled", "error", err)
		return nil
	}

	cfg.Log.Info("Kafka producer initialized",
		"topic", cfg.AppointmentEventsTopic,
		"dlq_topic", cfg.AppointmentEventsDLQTopic,
	)
	return producer
}
