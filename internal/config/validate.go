package config

import (
	"errors"
	"fmt"
)

var cacheBackends = map[string]struct{}{
	"noop":                  {},
	"in-memory":             {},
	"scored-in-memory":      {},
	"size-scored-in-memory": {},
	"memcached":             {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSpool(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SpoolDir == "" {
		return errors.New("paths.spooldir must be set")
	}
	if c.Paths.ContentDir == "" {
		return errors.New("paths.contentdir must be set")
	}
	if c.Paths.SpoolDir == c.Paths.ContentDir {
		return errors.New("paths.spooldir and paths.contentdir must differ")
	}
	return nil
}

func (c *Config) validateSpool() error {
	if c.Spool.MaxAgeDays < 0 {
		return errors.New("spool.max_age_days must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	if _, ok := cacheBackends[c.Cache.Backend]; !ok {
		return fmt.Errorf("cache.backend: unsupported value %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "memcached" && len(c.Cache.Servers) == 0 {
		return errors.New("cache.servers must be set when cache.backend is memcached")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
