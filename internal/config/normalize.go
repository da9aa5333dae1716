package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSpool()
	c.normalizeThumbs()
	c.normalizeCache()
	c.normalizeTuner()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SpoolDir, err = expandPath(c.Paths.SpoolDir); err != nil {
		return fmt.Errorf("paths.spooldir: %w", err)
	}
	if c.Paths.ContentDir, err = expandPath(c.Paths.ContentDir); err != nil {
		return fmt.Errorf("paths.contentdir: %w", err)
	}
	if c.Paths.CoversDir, err = expandPath(c.Paths.CoversDir); err != nil {
		return fmt.Errorf("paths.covers: %w", err)
	}
	if strings.TrimSpace(c.Paths.AppDir) != "" {
		if c.Paths.AppDir, err = expandPath(c.Paths.AppDir); err != nil {
			return fmt.Errorf("paths.appdir: %w", err)
		}
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	if c.Databases.Dir, err = expandPath(c.Databases.Dir); err != nil {
		return fmt.Errorf("databases.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSpool() {
	c.Spool.Extension = strings.TrimSpace(c.Spool.Extension)
	if c.Spool.Extension == "" {
		c.Spool.Extension = defaultSpoolExtension
	}
	if !strings.HasPrefix(c.Spool.Extension, ".") {
		c.Spool.Extension = "." + c.Spool.Extension
	}
	if c.Spool.PollSeconds <= 0 {
		c.Spool.PollSeconds = defaultSpoolPoll
	}
}

func (c *Config) normalizeThumbs() {
	c.Thumbs.FFmpegBinary = strings.TrimSpace(c.Thumbs.FFmpegBinary)
	if c.Thumbs.FFmpegBinary == "" {
		c.Thumbs.FFmpegBinary = "ffmpeg"
	}
	c.Thumbs.FFprobeBinary = strings.TrimSpace(c.Thumbs.FFprobeBinary)
	if c.Thumbs.FFprobeBinary == "" {
		c.Thumbs.FFprobeBinary = "ffprobe"
	}
	if c.Thumbs.Width <= 0 {
		c.Thumbs.Width = defaultThumbWidth
	}
	if c.Thumbs.Height <= 0 {
		c.Thumbs.Height = defaultThumbHeight
	}
	if c.Thumbs.Quality <= 0 || c.Thumbs.Quality > 100 {
		c.Thumbs.Quality = defaultThumbQuality
	}
	if c.Thumbs.TimeoutSeconds <= 0 {
		c.Thumbs.TimeoutSeconds = defaultThumbTimeout
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if c.Cache.DefaultTTL < 0 {
		c.Cache.DefaultTTL = defaultCacheTTL
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaultCacheEntries
	}
}

func (c *Config) normalizeTuner() {
	c.Tuner.Socket = strings.TrimSpace(c.Tuner.Socket)
	if c.Tuner.Socket == "" {
		c.Tuner.Socket = defaultTunerSocket
	}
	if c.Tuner.PollSeconds <= 0 {
		c.Tuner.PollSeconds = defaultTunerPoll
	}
	if c.Tuner.TimeoutSeconds <= 0 {
		c.Tuner.TimeoutSeconds = defaultTunerTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
