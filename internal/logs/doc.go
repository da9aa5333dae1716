// Package logs reads the daemon log file for the CLI: last-N lines and a
// polling follow mode.
package logs
