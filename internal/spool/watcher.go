package spool

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"librarian/internal/logging"
)

// Watcher signals zipball arrival in the spool directory so the daemon can
// ingest without waiting for the next poll tick. Polling remains the
// fallback when inotify misses events.
type Watcher struct {
	dir     string
	ext     string
	watcher *fsnotify.Watcher
	notify  chan struct{}
	logger  *slog.Logger
}

// NewWatcher watches dir for files with the extension.
func NewWatcher(dir, ext string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:     dir,
		ext:     ext,
		watcher: fsw,
		notify:  make(chan struct{}, 1),
		logger:  logger.With(logging.String(logging.FieldComponent, "spool-watcher")),
	}, nil
}

// Events delivers a signal per batch of arrivals. The channel is never
// closed while Run is active; coalesced signals may cover several files.
func (w *Watcher) Events() <-chan struct{} {
	return w.notify
}

// Run consumes fsnotify events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), w.ext) {
				continue
			}
			w.logger.Debug("spool arrival", logging.String(logging.FieldPath, event.Name))
			select {
			case w.notify <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("spool watch error", logging.Error(err))
		}
	}
}
