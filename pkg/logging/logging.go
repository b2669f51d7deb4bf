// Package logging provides the named sub-loggers used throughout this
// module, mirroring pkg/logging.New from the damocles manager.
package logging

import logging "github.com/ipfs/go-log/v2"

// Logger re-exports the go-log/v2 logger type so callers need not import
// go-log directly.
type Logger = logging.ZapEventLogger

// New returns a named sub-logger for the given subsystem.
func New(subsystem string) *Logger {
	return logging.Logger(subsystem)
}

// SetLevel adjusts the log level for a single subsystem, e.g. for CLI
// --log-level flags.
func SetLevel(subsystem, level string) error {
	return logging.SetLogLevel(subsystem, level)
}
