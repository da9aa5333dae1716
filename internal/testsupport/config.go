package testsupport

import (
	"path/filepath"
	"testing"

	"librarian/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SpoolDir = filepath.Join(base, "spool")
	cfgVal.Paths.ContentDir = filepath.Join(base, "content")
	cfgVal.Paths.CoversDir = filepath.Join(base, "covers")
	cfgVal.Paths.AppDir = ""
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.Socket = filepath.Join(base, "librariand.sock")
	cfgVal.Databases.Dir = filepath.Join(base, "databases")
	cfgVal.Scan.DelaySeconds = 0
	cfgVal.Tuner.Enabled = false
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCacheBackend selects the cache backend on the test config.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// WithScanDelay sets the inter-directory scan delay in seconds.
func WithScanDelay(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.DelaySeconds = seconds
	}
}

// WithSpoolMaxAge sets the spool aging limit in days.
func WithSpoolMaxAge(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Spool.MaxAgeDays = days
	}
}
