package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "clinicops"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultClinicTimeZone  = "Asia/Jerusalem"
	DefaultClinicOpenStart = "08:00"
	DefaultClinicOpenEnd   = "11:30"
	DefaultSlotDurationMin = 15
	DefaultSlotMaxCapacity = 4

	DefaultAppointmentEventsTopic    = "clinicops.appointments.events"
	DefaultAppointmentEventsDLQTopic = "clinicops.appointments.events.dlq"

	DefaultPaginationLimit = 100
)
