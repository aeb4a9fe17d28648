// Package log provides the logging functionality for cusweep.
package log

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger *SweepLogger
)

func init() {
	Logger = CreateLogger(DefaultLoggerConfig())
}

func DefaultLoggerConfig() *zap.Config {
	c := zap.NewProductionConfig()
	c.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	c.OutputPaths = []string{"stderr"}
	return &c
}

func CreateLogger(config *zap.Config) *SweepLogger {
	if config == nil {
		config = DefaultLoggerConfig()
	}

	l, err := config.Build()
	if err != nil {
		panic(err)
	}

	return &SweepLogger{
		l.Sugar(),
	}
}

type SweepLogger struct {
	*zap.SugaredLogger
}
