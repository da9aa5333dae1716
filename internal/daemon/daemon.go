// Package daemon assembles the appliance services and supervises their
// lifecycle: stores, scheduler, spool watcher, event bus, and the ingest
// pipeline. A flock under the log directory enforces single-instance
// execution.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"librarian/internal/cache"
	"librarian/internal/catalog"
	"librarian/internal/config"
	"librarian/internal/events"
	"librarian/internal/facets/archive"
	"librarian/internal/facets/processors"
	"librarian/internal/fsal"
	"librarian/internal/ingest"
	"librarian/internal/logging"
	"librarian/internal/notifications"
	"librarian/internal/scheduler"
	"librarian/internal/spool"
	"librarian/internal/tuner"
)

// Daemon owns every long-lived component and coordinates startup and
// shutdown ordering.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	catalog  *catalog.Store
	facets   *archive.Store
	bus      *events.Bus
	sched    *scheduler.Scheduler
	cache    cache.Backend
	notifier notifications.Service
	service  *ingest.Service
	watcher  *spool.Watcher

	lockPath string
	lock     *flock.Flock

	started time.Time
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status is the daemon runtime snapshot served to the control socket.
type Status struct {
	Running       bool      `json:"running"`
	Since         time.Time `json:"since"`
	CatalogDBPath string    `json:"catalog_db_path"`
	FacetsDBPath  string    `json:"facets_db_path"`
	LockFilePath  string    `json:"lock_file_path"`
	ContentCount  int       `json:"content_count"`
}

// New opens the stores and wires the service graph. The daemon is not
// running until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	backend, err := cache.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build cache: %w", err)
	}

	cat, err := catalog.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	sched := scheduler.New(logger)
	registry := processors.NewRegistry(processors.Config{
		FFmpegBinary:  cfg.Thumbs.FFmpegBinary,
		FFprobeBinary: cfg.Thumbs.FFprobeBinary,
		ThumbTimeout:  time.Duration(cfg.Thumbs.TimeoutSeconds) * time.Second,
	}, logger)
	fac, err := archive.Open(cfg, fsal.NewLocal(cfg.Paths.ContentDir), registry, sched, logger)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("open facet archive: %w", err)
	}

	bus := events.New()
	notifier := notifications.NewService(cfg)

	var tunerClient *tuner.Client
	if cfg.Tuner.Enabled {
		tunerClient = tuner.New(cfg.Tuner.Socket, time.Duration(cfg.Tuner.TimeoutSeconds)*time.Second)
	}

	service := ingest.New(ingest.Deps{
		Config:   cfg,
		Catalog:  cat,
		Facets:   fac,
		Bus:      bus,
		Sched:    sched,
		Cache:    backend,
		Notifier: notifier,
		Tuner:    tunerClient,
		Logger:   logger,
	})

	lockPath := filepath.Join(cfg.Paths.LogDir, "librariand.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		catalog:  cat,
		facets:   fac,
		bus:      bus,
		sched:    sched,
		cache:    backend,
		notifier: notifier,
		service:  service,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Service exposes the ingest facade for the control surface.
func (d *Daemon) Service() *ingest.Service { return d.service }

// Bus exposes the event bus for additional listeners.
func (d *Daemon) Bus() *events.Bus { return d.bus }

// Start acquires the instance lock and launches the scheduler, the periodic
// pipeline tasks, and the spool watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another librarian daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.sched.Start(runCtx)
	d.service.Start()
	d.startWatcher(runCtx)

	d.started = time.Now()
	d.running.Store(true)
	d.logger.Info("librarian daemon started", logging.String("lock", d.lockPath))
	return nil
}

// startWatcher runs the fsnotify arrival watcher when enabled. Watcher
// failures are not fatal: the periodic sweep still covers the spool.
func (d *Daemon) startWatcher(ctx context.Context) {
	if !d.cfg.Spool.WatchEnabled {
		return
	}
	watcher, err := spool.NewWatcher(d.cfg.Paths.SpoolDir, d.cfg.Spool.Extension, d.logger)
	if err != nil {
		d.logger.Warn("spool watcher unavailable, relying on polling", logging.Error(err))
		return
	}
	d.watcher = watcher

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		watcher.Run(ctx)
	}()
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-watcher.Events():
				// One-shot sweep on the scheduler so watcher-triggered and
				// periodic sweeps never run concurrently.
				d.sched.Schedule("spool-sweep-now", d.service.Sweep)
			}
		}
	}()
}

// Stop shuts down background work and releases the instance lock. Store
// handles stay open so the control surface can finish in-flight requests;
// Close releases them.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.bus != nil {
		_ = d.bus.Publish(events.Shutdown, nil, "")
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sched.Shutdown()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("librarian daemon stopped")
}

// Close stops the daemon and closes the database handles.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.facets != nil {
		if err := d.facets.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close facet archive: %w", err))
		}
	}
	if d.catalog != nil {
		if err := d.catalog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close catalog: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Status reports the daemon runtime snapshot.
func (d *Daemon) Status(ctx context.Context) Status {
	count, err := d.catalog.GetCount(ctx, catalog.Filter{})
	if err != nil {
		count = -1
	}
	return Status{
		Running:       d.running.Load(),
		Since:         d.started,
		CatalogDBPath: d.cfg.CatalogDBPath(),
		FacetsDBPath:  d.cfg.FacetsDBPath(),
		LockFilePath:  d.lockPath,
		ContentCount:  count,
	}
}
