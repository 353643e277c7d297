package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func init() {
	logger = logrus.New()
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG", "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "WARN", "warn":
		logger.SetLevel(logrus.WarnLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	return logger
}
