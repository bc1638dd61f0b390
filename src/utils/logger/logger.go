package logger

import (
	"github.com/warp-contracts/marketplace/src/utils/config"

	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Created at declaration, package level sub-loggers are built from it during initialization
var logger = logrus.New()

func Init(config *config.Config) (err error) {
	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		return
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)

	// Text for humans, JSON for log collectors
	if config.IsDevelopment() {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	return nil
}

func NewSublogger(tag string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{"module": "market." + tag})
}
