package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the content pipeline.
type Paths struct {
	SpoolDir   string `toml:"spooldir"`
	ContentDir string `toml:"contentdir"`
	CoversDir  string `toml:"covers"`
	AppDir     string `toml:"appdir"`
	LogDir     string `toml:"log_dir"`
	Socket     string `toml:"socket"`
}

// Databases names the SQLite files backing the catalog and facet stores.
type Databases struct {
	Dir string `toml:"dir"`
}

// Spool contains configuration for download intake.
type Spool struct {
	MaxAgeDays   int    `toml:"max_age_days"`
	Extension    string `toml:"extension"`
	PollSeconds  int    `toml:"poll_seconds"`
	WatchEnabled bool   `toml:"watch_enabled"`
}

// Scan contains configuration for facet tree scanning.
type Scan struct {
	DelaySeconds int `toml:"delay_seconds"`
	MaxDepth     int `toml:"max_depth"`
}

// Thumbs contains configuration for thumbnail generation.
type Thumbs struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	Quality        int    `toml:"quality"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Cache contains configuration for the read-path cache.
type Cache struct {
	Backend    string   `toml:"backend"`
	DefaultTTL int      `toml:"default_ttl"`
	MaxEntries int      `toml:"max_entries"`
	MaxBytes   int64    `toml:"max_bytes"`
	Servers    []string `toml:"servers"`
}

// Tuner contains configuration for the satellite tuner IPC collaborator.
type Tuner struct {
	Enabled        bool   `toml:"enabled"`
	Socket         string `toml:"socket"`
	PollSeconds    int    `toml:"poll_seconds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Ingest         bool   `toml:"ingest"`
	Rejected       bool   `toml:"rejected"`
	TunerAlerts    bool   `toml:"tuner_alerts"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for librarian.
//
// Configuration sections by subsystem:
//   - Paths: spool, content, covers, apps, logs, control socket
//   - Databases: SQLite file locations
//   - Spool: download intake aging and polling
//   - Scan: facet scan pacing and depth
//   - Thumbs: external thumbnail transcoder settings
//   - Cache: read-path cache backend selection
//   - Tuner: satellite tuner polling
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Databases     Databases     `toml:"databases"`
	Spool         Spool         `toml:"spool"`
	Scan          Scan          `toml:"scan"`
	Thumbs        Thumbs        `toml:"thumbs"`
	Cache         Cache         `toml:"cache"`
	Tuner         Tuner         `toml:"tuner"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/librarian/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("librarian.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.SpoolDir,
		c.Paths.ContentDir,
		c.Paths.CoversDir,
		c.Paths.LogDir,
		c.Databases.Dir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.AppDir) != "" {
		// Side-loaded apps are optional; missing storage must not block startup.
		_ = os.MkdirAll(c.Paths.AppDir, 0o755)
	}
	return nil
}

// CatalogDBPath returns the catalog SQLite file location.
func (c *Config) CatalogDBPath() string {
	return filepath.Join(c.Databases.Dir, "librarian.db")
}

// FacetsDBPath returns the facet archive SQLite file location.
func (c *Config) FacetsDBPath() string {
	return filepath.Join(c.Databases.Dir, "facets.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
