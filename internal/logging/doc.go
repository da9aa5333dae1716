// Package logging constructs the slog loggers used throughout librarian.
//
// Two formats are supported: a compact console layout for interactive use and
// JSON for ingestion elsewhere. Output can fan out to stdout/stderr and a log
// file under the configured log directory.
package logging
