// Package ezyvote is the root of the EzyVote ledger. It hosts the global
// logger and the list of Prometheus collectors registered by the components.
//
// The logger level can be set with the LLVL environment variable, one of
// trace, debug, info, warn, error, fatal. It defaults to info.
package ezyvote

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.InfoLevel

func init() {
	lvl := os.Getenv(EnvLogLevel)

	var level zerolog.Level

	switch lvl {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	case "fatal":
		level = zerolog.FatalLevel
	case "":
		level = defaultLevel
	default:
		level = zerolog.TraceLevel
	}

	Logger = Logger.Level(level)
}

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).With().Timestamp().Logger().
	With().Caller().Logger()

// PromCollectors exposes Prometheus collectors created in the packages. The
// proxy controller registers them when the metrics handler is started.
var PromCollectors []prometheus.Collector
