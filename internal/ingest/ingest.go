// Package ingest wires the content pipeline together: spool intake,
// validation, catalog registration, facet indexing, and the event hooks the
// rest of the appliance reacts to.
//
// It is also the surface the HTTP layer consumes; handlers call the Service
// methods and never touch the stores directly.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"librarian/internal/cache"
	"librarian/internal/catalog"
	"librarian/internal/config"
	"librarian/internal/contentid"
	"librarian/internal/events"
	"librarian/internal/facets/archive"
	"librarian/internal/logging"
	"librarian/internal/notifications"
	"librarian/internal/scheduler"
	"librarian/internal/spool"
	"librarian/internal/tuner"
	"librarian/internal/zipball"
)

// cachePrefix namespaces every catalog read in the cache, so one Invalidate
// call flushes them all after a write.
const cachePrefix = "catalog"

// Deps are the collaborators a Service needs. Tuner may be nil when the
// receiver is disabled.
type Deps struct {
	Config   *config.Config
	Catalog  *catalog.Store
	Facets   *archive.Store
	Bus      *events.Bus
	Sched    *scheduler.Scheduler
	Cache    cache.Backend
	Notifier notifications.Service
	Tuner    *tuner.Client
	Logger   *slog.Logger
}

// Service orchestrates ingest and fronts the read paths.
type Service struct {
	cfg      *config.Config
	catalog  *catalog.Store
	facets   *archive.Store
	bus      *events.Bus
	sched    *scheduler.Scheduler
	cache    cache.Backend
	notifier notifications.Service
	tuner    *tuner.Client
	logger   *slog.Logger
}

// New assembles a Service and registers its bus listeners.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NoOp{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(deps.Config)
	}
	s := &Service{
		cfg:      deps.Config,
		catalog:  deps.Catalog,
		facets:   deps.Facets,
		bus:      deps.Bus,
		sched:    deps.Sched,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		tuner:    deps.Tuner,
		logger:   logger.With(logging.String(logging.FieldComponent, "ingest")),
	}
	s.subscribe()
	return s
}

func (s *Service) subscribe() {
	if s.bus == nil {
		return
	}
	s.bus.Subscribe(events.ContentAdded, "ingest.notify", func(_ string, payload any) error {
		if added, ok := payload.(AddedContent); ok {
			_ = s.notifier.NotifyContentAdded(context.Background(), added.Title, added.MD5)
		}
		return nil
	}, nil)
	s.bus.Subscribe(events.SpoolRejected, "ingest.notify", func(_ string, payload any) error {
		if rejected, ok := payload.(RejectedContent); ok {
			_ = s.notifier.NotifyContentRejected(context.Background(), rejected.Path, rejected.Reason)
		}
		return nil
	}, nil)
	s.bus.Subscribe(events.TunerAlert, "ingest.notify", func(_ string, payload any) error {
		if detail, ok := payload.(string); ok {
			_ = s.notifier.NotifyTunerAlert(context.Background(), detail)
		}
		return nil
	}, nil)
}

// AddedContent is the ContentAdded event payload.
type AddedContent struct {
	MD5   string
	Title string
}

// RejectedContent is the SpoolRejected event payload.
type RejectedContent struct {
	Path   string
	Reason string
}

// Start registers the periodic pipeline tasks on the scheduler.
func (s *Service) Start() {
	if s.sched == nil {
		return
	}
	poll := time.Duration(s.cfg.Spool.PollSeconds) * time.Second
	s.sched.Schedule("spool-sweep", func(ctx context.Context) error {
		return s.Sweep(ctx)
	}, scheduler.Periodic(scheduler.EveryInterval(poll)))

	if s.tuner != nil && s.cfg.Tuner.Enabled {
		tunerPoll := time.Duration(s.cfg.Tuner.PollSeconds) * time.Second
		s.sched.Schedule("tuner-poll", func(ctx context.Context) error {
			s.pollTuner(ctx)
			return nil
		}, scheduler.Periodic(scheduler.EveryInterval(tunerPoll)))
	}
}

// Sweep drains the spool: expired downloads go away, the rest are validated
// oldest-first and ingested. A rejected zipball is removed and reported; it
// never blocks the remainder of the batch.
func (s *Service) Sweep(ctx context.Context) error {
	dir := s.cfg.Paths.SpoolDir
	ext := s.cfg.Spool.Extension

	files, err := spool.FindSigned(dir, ext)
	if err != nil {
		return err
	}
	files = spool.Cleanup(files, s.cfg.Spool.MaxAgeDays)

	var ingested int
	for _, download := range spool.OrderDownloads(files) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.ingestOne(ctx, download.Path); err != nil {
			s.logger.Warn("ingest failed",
				logging.String(logging.FieldPath, download.Path), logging.Error(err))
			continue
		}
		ingested++
	}
	if ingested > 0 {
		s.cache.Invalidate(cachePrefix)
	}
	return nil
}

func (s *Service) ingestOne(ctx context.Context, zipPath string) error {
	meta, err := zipball.Validate(zipPath)
	if err != nil {
		var verr *zipball.ValidationError
		reason := err.Error()
		if errors.As(err, &verr) {
			reason = verr.Reason
		}
		spool.SafeRemove(zipPath)
		if s.bus != nil {
			_ = s.bus.Publish(events.SpoolRejected, RejectedContent{Path: zipPath, Reason: reason}, "")
		}
		return err
	}

	id := zipball.ContentID(zipPath)
	if _, err := s.catalog.Process(ctx, map[string]string{id: zipPath}, false); err != nil {
		return err
	}

	s.scheduleFacetScan(id)
	if s.bus != nil {
		if err := s.bus.Publish(events.ContentAdded, AddedContent{MD5: id, Title: meta.Title}, ""); err != nil {
			return err
		}
	}
	s.logger.Info("content ingested",
		logging.String(logging.FieldContentID, id),
		logging.String("title", meta.Title))
	return nil
}

// scheduleFacetScan kicks off facet indexing of a freshly extracted tree and
// renders its cover once the index is in place.
func (s *Service) scheduleFacetScan(id string) {
	if s.facets == nil {
		return
	}
	rel, ok := contentid.ToPath(id)
	if !ok {
		return
	}
	index := func(ctx context.Context) error {
		if err := s.facets.Scan(ctx, rel); err != nil {
			return err
		}
		s.facets.Cover(ctx, rel, id)
		return nil
	}
	if s.sched != nil {
		s.sched.Schedule("facets-scan", index)
		return
	}
	_ = index(context.Background())
}

func (s *Service) pollTuner(ctx context.Context) {
	status, err := s.tuner.GetStatus(ctx)
	if err != nil {
		s.alert("tuner unreachable: " + err.Error())
		return
	}
	if !status.HasLock() {
		s.alert("tuner has no signal lock")
	}
}

func (s *Service) alert(detail string) {
	s.logger.Warn("tuner alert", logging.String("detail", detail))
	if s.bus != nil {
		_ = s.bus.Publish(events.TunerAlert, detail, "")
	}
}
