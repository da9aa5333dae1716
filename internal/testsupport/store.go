package testsupport

import (
	"testing"

	"librarian/internal/catalog"
	"librarian/internal/config"
	"librarian/internal/facets/archive"
	"librarian/internal/facets/processors"
	"librarian/internal/fsal"
	"librarian/internal/logging"
	"librarian/internal/scheduler"
)

// MustOpenFacets opens a facet archive store for tests and registers cleanup.
// The scheduler may be nil; deferred work is then dropped.
func MustOpenFacets(t testing.TB, cfg *config.Config, sched *scheduler.Scheduler) *archive.Store {
	t.Helper()

	registry := processors.NewRegistry(processors.Config{}, logging.NewNop())
	fs := fsal.NewLocal(cfg.Paths.ContentDir)
	store, err := archive.Open(cfg, fs, registry, sched, logging.NewNop())
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCatalog opens a content catalog store for tests and registers
// cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
