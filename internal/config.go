package internal

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,required=true" validate:"gt=0,lte=65535"`
	DebugPort int    `env:"DEBUG_PORT,default=8081"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true" validate:"required"`

	S3Bucket string `env:"S3_BUCKET,required=true" validate:"required"`
	S3Region string `env:"S3_REGION,default=us-east-1"`
	S3Prefix string `env:"S3_PREFIX"`
	// S3PartSizeMb is the chunk size of the upload loop; the cancellation
	// predicate is polled once per part.
	S3PartSizeMb int64 `env:"S3_PART_SIZE_MB,default=8" validate:"gte=5"`

	// ProgressInterval is the minimum wall-clock gap between two progress
	// notifications on the same status handle.
	ProgressInterval time.Duration `env:"PROGRESS_INTERVAL,default=2s"`
	SpoolDir         string        `env:"SPOOL_DIR,default=/tmp/courier-spool"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES,default=2147483648"`

	ArchiveRetention  time.Duration `env:"ARCHIVE_RETENTION,default=720h"`
	JanitorInterval   time.Duration `env:"JANITOR_INTERVAL,default=1h"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	// PermanentAdmins is a comma-separated allow-list that cannot be removed
	// at runtime, on top of the dynamic store.
	PermanentAdmins string `env:"PERMANENT_ADMINS"`
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// PermanentAdminHandles splits and trims the configured permanent admins.
func (c Config) PermanentAdminHandles() []string {
	if c.PermanentAdmins == "" {
		return nil
	}
	handles := strings.Split(c.PermanentAdmins, ",")
	return lo.FilterMap(handles, func(h string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(h)
		return trimmed, trimmed != ""
	})
}
