package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvKafkaBrokers    = "KAFKA_BROKERS"
	EnvKafkaEventTopic = "KAFKA_EVENT_TOPIC"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSlotLockTTL         = "SLOT_LOCK_TTL"
	EnvDefaultHoldDuration = "DEFAULT_HOLD_DURATION"
	EnvMaxHoldDuration     = "MAX_HOLD_DURATION"
	EnvHoldSweepInterval   = "HOLD_SWEEP_INTERVAL"
	EnvBookingHorizonDays  = "BOOKING_HORIZON_DAYS"
	EnvDefaultSlotMinutes  = "DEFAULT_SLOT_MINUTES"
)
