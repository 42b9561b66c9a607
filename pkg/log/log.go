package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide root logger. It defaults to JSON on stdout at
// info level so packages constructed before Init still log sensibly; Init
// replaces it with the configured logger before any component starts.
var Logger = zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Init configures the root logger from the CLI flags. level is a zerolog
// level name ("debug", "info", "warn", "error"); anything unparseable falls
// back to info. JSON output is one line per event for log shippers, console
// output is for a human watching the control plane locally.
func Init(level string, json bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if !json {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// WithComponent derives a child logger carrying a component field. Each
// long-lived component (api, provisioner, storage, ...) holds one for its
// lifetime.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithStoreID derives a child logger carrying a store_id field. Lifecycle
// workflows create one per store so every line of a workflow is attributable
// without restating the id.
func WithStoreID(storeID string) zerolog.Logger {
	return Logger.With().Str("store_id", storeID).Logger()
}
