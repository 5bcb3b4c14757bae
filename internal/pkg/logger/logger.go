// internal/pkg/logger/logger.go
package logger

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"

	"github.com/your-org/storefront-backend/internal/config"
)

// New builds the process-wide logrus logger from configuration
func New(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	// Set log format based on config
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// ForService returns an entry tagged with the owning service name
func ForService(logger logrus.FieldLogger, name string) *logrus.Entry {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithField("service", name)
}

// Discard returns a logger that drops everything, used by tests and defaults
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// Gorm adapts logrus to gorm's logger interface
func Gorm(logger *logrus.Logger, cfg *config.Config) gormlogger.Interface {
	level := gormlogger.Warn
	if cfg.App.Debug && cfg.IsDevelopment() {
		level = gormlogger.Info
	}

	return gormlogger.New(logger.WithField("component", "gorm"), gormlogger.Config{
		SlowThreshold:             cfg.Database.SlowQuery,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
