package config

import "time"

const (
	DefaultMongoURI          = ""
	DefaultMongoDatabaseName = "carebook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultKafkaEventTopic = "carebook.events"

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultSlotLockTTL bounds how long an abandoned booking transaction can
	// keep a slot locked before the next acquirer reclaims it.
	DefaultSlotLockTTL = 30 * time.Second

	DefaultDefaultHoldDuration = 10 * time.Minute
	DefaultMaxHoldDuration     = 1 * time.Hour
	DefaultHoldSweepInterval   = 1 * time.Minute

	DefaultBookingHorizonDays = 14
	DefaultDefaultSlotMinutes = 30

	DefaultSearchLimit     = 20
	MaxSearchLimit         = 100
	DefaultPaginationLimit = 50
	MaxPaginationLimit     = 200
)
