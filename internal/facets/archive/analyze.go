package archive

import (
	"context"
	"path"
	"time"

	"librarian/internal/facets"
	"librarian/internal/logging"
	"librarian/internal/scheduler"
)

// Analyze runs every applicable processor over each path and persists the
// merged records.
//
// In partial mode the returned records carry only path and bitmask; full
// analysis of the same paths is deferred to the scheduler and its result, if
// a callback is given, is delivered to it. In full mode the records are
// complete and the callback fires before Analyze returns.
func (s *Store) Analyze(ctx context.Context, paths []string, partial bool, callback func(map[string]facets.Record)) (map[string]facets.Record, error) {
	if partial {
		records := make(map[string]facets.Record, len(paths))
		for _, p := range paths {
			record := s.registry.ProcessFile(p, true)
			record.Path = p
			records[p] = record
		}
		s.deferTask("facets-analyze", 0, func(ctx context.Context) error {
			_, err := s.Analyze(ctx, paths, false, callback)
			return err
		})
		return records, nil
	}

	records := make(map[string]facets.Record, len(paths))
	for _, p := range paths {
		record := s.registry.ProcessFile(s.abs(p), false)
		record.Path = p
		if err := s.Save(ctx, record); err != nil {
			return nil, err
		}
		records[p] = record
	}
	if callback != nil {
		callback(records)
	}
	return records, nil
}

// Scan walks the tree under root and analyzes every file. MaxDepth and the
// inter-directory delay come from configuration; a zero delay (or a missing
// scheduler) recurses eagerly, otherwise each subdirectory becomes its own
// scheduled task so a deep tree cannot monopolize the worker.
func (s *Store) Scan(ctx context.Context, root string) error {
	return s.scanTree(ctx, root, 0, true)
}

func (s *Store) scanTree(ctx context.Context, dir string, depth int, allowDefer bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dirs, files, err := s.fs.ListDir(dir)
	if err != nil {
		s.logger.Warn("scan list failed", logging.String(logging.FieldPath, dir), logging.Error(err))
		return nil
	}

	mask := 0
	var main string
	for _, file := range files {
		record, err := s.Analyze(ctx, []string{file.Path}, false, nil)
		if err != nil {
			return err
		}
		merged := record[file.Path]
		mask |= merged.FacetTypes
		if merged.HasType(facets.TypeHTML) {
			main = s.electMain(facets.BitHTML, path.Base(file.Path), main)
		}
	}
	if err := s.SaveParent(ctx, cleanFolder(dir), mask, main); err != nil {
		return err
	}

	if s.maxDepth > 0 && depth+1 >= s.maxDepth {
		return nil
	}
	for _, sub := range dirs {
		sub := sub
		if allowDefer && s.scanDelay > 0 && s.sched != nil {
			s.deferTask("facets-scan", s.scanDelay, func(ctx context.Context) error {
				return s.scanTree(ctx, sub.Path, depth+1, true)
			})
			continue
		}
		if err := s.scanTree(ctx, sub.Path, depth+1, allowDefer); err != nil {
			return err
		}
	}
	return nil
}

// deferTask hands work to the scheduler when one is wired, dropping it
// otherwise. Analysis deferral is best effort; the poll-driven scan catches
// anything dropped.
func (s *Store) deferTask(name string, delay time.Duration, fn scheduler.Func) {
	if s.sched == nil {
		return
	}
	if !s.sched.Schedule(name, fn, scheduler.WithDelay(delay)) {
		s.logger.Debug("scheduler rejected task", logging.String("task", name))
	}
}

func cleanFolder(dir string) string {
	if dir == "" {
		return "."
	}
	return path.Clean(dir)
}
