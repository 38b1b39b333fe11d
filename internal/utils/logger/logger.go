// Package logger provides a global logger for the application
package logger

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"go.uber.org/zap"
)

var sugared atomic.Pointer[zap.SugaredLogger]

// ResolveLevel picks the log level from ENVIRONMENT, then lets an explicit
// level ("trace", "debug", "info", "warn", "error") override it.
func ResolveLevel(environment, override string) zerolog.Level {
	environment = strings.ToLower(environment)
	if environment == "" {
		environment = "prod"
	}

	var logLevel zerolog.Level
	switch environment {
	case "dev", "test":
		logLevel = zerolog.TraceLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	if override != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(override)); err == nil && lvl != zerolog.NoLevel {
			logLevel = lvl
		}
	}
	return logLevel
}

// Init sets up the zerolog console logger and the zap sugared logger.
// Call it once from main:
//
//	logger.Init(*logLevel)
//
// An empty level keeps the ENVIRONMENT default (dev/test → trace, prod → info).
func Init(level string) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()

	environment := os.Getenv("ENVIRONMENT")
	logLevel := ResolveLevel(environment, level)
	zerolog.SetGlobalLevel(logLevel)

	var (
		z   *zap.Logger
		err error
	)
	if logLevel <= zerolog.DebugLevel {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to build zap logger, key/value logs disabled")
		z = zap.NewNop()
	}
	sugared.Store(z.Sugar())

	log.Info().Str("environment", environment).Str("level", logLevel.String()).Msg("logging initialised")
}

// Sugar returns a sugared logger for key/value logging. Before Init it is a
// no-op logger.
func Sugar() *zap.SugaredLogger {
	if s := sugared.Load(); s != nil {
		return s
	}
	return zap.NewNop().Sugar()
}

// Sync flushes buffered zap entries.
func Sync() {
	if s := sugared.Load(); s != nil {
		_ = s.Sync()
	}
}
