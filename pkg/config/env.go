package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvClinicTimeZone  = "CLINIC_TIME_ZONE"
	EnvClinicOpenStart = "CLINIC_OPEN_START"
	EnvClinicOpenEnd   = "CLINIC_OPEN_END"
	EnvSlotDurationMin = "SLOT_DURATION_MIN"
	EnvSlotMaxCapacity = "SLOT_MAX_CAPACITY"

	EnvAppointmentEventsTopic    = "APPOINTMENT_EVENTS_TOPIC"
	EnvAppointmentEventsDLQTopic = "APPOINTMENT_EVENTS_DLQ_TOPIC"
)
