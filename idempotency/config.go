package idempotency

import (
	"time"

	"pointsmall-backend/utils"
)

// Config carries the tunables of the idempotency layer. It is passed into
// NewService explicitly (never a package global) so tests can inject short
// timeouts and tiny snapshot ceilings.
type Config struct {
	// TTL is how long a terminal record stays available for replay before
	// the sweeper may delete it.
	TTL time.Duration `validate:"gt=0"`

	// ProcessingTimeout is how long a record may sit in processing before
	// the sweeper presumes the handler abandoned it and force-fails it.
	ProcessingTimeout time.Duration `validate:"gt=0"`

	// RetryAfter is the delay hinted to callers that collide with an
	// in-flight request.
	RetryAfter time.Duration `validate:"gt=0"`

	// Snapshot size ceilings in bytes. Between soft and hard a warning is
	// logged; above hard the payload is truncated to an envelope.
	SoftSnapshotLimit int `validate:"gt=0"`
	HardSnapshotLimit int `validate:"gtefield=SoftSnapshotLimit"`
}

// DefaultConfig returns the production defaults: 7 day TTL, 60 s
// processing timeout, 32/64 KiB snapshot ceilings.
func DefaultConfig() Config {
	return Config{
		TTL:               7 * 24 * time.Hour,
		ProcessingTimeout: 60 * time.Second,
		RetryAfter:        2 * time.Second,
		SoftSnapshotLimit: 32 * 1024,
		HardSnapshotLimit: 64 * 1024,
	}
}

// ConfigFromEnv builds a Config from environment overrides on top of the
// defaults. Malformed values fall back silently, matching how the rest of
// the service reads its env.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.TTL = utils.EnvDuration("IDEMPOTENCY_TTL", cfg.TTL)
	cfg.ProcessingTimeout = utils.EnvDuration("IDEMPOTENCY_PROCESSING_TIMEOUT", cfg.ProcessingTimeout)
	cfg.RetryAfter = utils.EnvDuration("IDEMPOTENCY_RETRY_AFTER", cfg.RetryAfter)
	cfg.SoftSnapshotLimit = utils.EnvInt("IDEMPOTENCY_SOFT_SNAPSHOT_BYTES", cfg.SoftSnapshotLimit)
	cfg.HardSnapshotLimit = utils.EnvInt("IDEMPOTENCY_HARD_SNAPSHOT_BYTES", cfg.HardSnapshotLimit)
	return cfg
}
