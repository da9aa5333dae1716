// Package config loads, normalizes, and validates librarian's TOML
// configuration.
//
// Load resolves the config file (explicit path, ~/.config/librarian, or a
// project-local librarian.toml), layers it over Default(), expands ~ in every
// path field, and validates the result. EnsureDirectories bootstraps the
// directory tree the daemon needs.
package config
