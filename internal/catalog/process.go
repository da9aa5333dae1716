package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"librarian/internal/contentid"
	"librarian/internal/errkind"
	"librarian/internal/logging"
	"librarian/internal/metadata"
	"librarian/internal/zipball"
)

// Process ingests a batch of content. Keys are content ids, values are the
// source zipballs (spool files) or already-extracted trees. Metadata rows for
// the whole batch commit in one transaction together with the deletion of any
// rows the batch declares replaced.
//
// Unless noFileOps is set, replaced content trees are removed from the
// content directory and each source zipball is extracted into it afterwards.
// Returns the number of rows written plus rows deleted.
func (s *Store) Process(ctx context.Context, content map[string]string, noFileOps bool) (int64, error) {
	type incoming struct {
		md5    string
		source string
		meta   metadata.Meta
		size   int64
	}

	var (
		batch    []incoming
		replaced []string
	)
	for md5, source := range content {
		meta, size, err := readSource(md5, source)
		if err != nil {
			return 0, err
		}
		batch = append(batch, incoming{md5: md5, source: source, meta: meta, size: size})
		if meta.Replaces != "" {
			replaced = append(replaced, meta.Replaces)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin process tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var affected int64
	for _, in := range batch {
		if err := upsertItem(ctx, tx, in.md5, in.meta, in.size, now); err != nil {
			return 0, errkind.Wrap(errkind.ErrIO, "catalog", "process", in.md5, err)
		}
		affected++
	}
	for _, chunk := range batches(replaced, maxVariableNumber) {
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM zipballs WHERE md5 IN (%s)", makePlaceholders(len(chunk))), args...)
		if err != nil {
			return 0, fmt.Errorf("delete replaced: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit process: %w", err)
	}

	if noFileOps {
		return affected, nil
	}

	for _, id := range replaced {
		if tree, ok := contentid.ToPath(id, s.cfg.Paths.ContentDir); ok {
			if err := os.RemoveAll(tree); err != nil {
				s.logger.Warn("replaced tree removal failed",
					logging.String(logging.FieldContentID, id), logging.Error(err))
			}
		}
	}
	for _, in := range batch {
		if info, err := os.Stat(in.source); err == nil && info.IsDir() {
			continue
		}
		if _, err := zipball.Extract(in.source, s.cfg.Paths.ContentDir); err != nil {
			return affected, errkind.Wrap(errkind.ErrIO, "catalog", "extract", in.md5, err)
		}
		if err := os.Remove(in.source); err != nil {
			s.logger.Warn("spool file removal failed",
				logging.String(logging.FieldPath, in.source), logging.Error(err))
		}
	}
	return affected, nil
}

// readSource loads normalized metadata and payload size from either a
// zipball or an extracted content tree.
func readSource(md5, source string) (metadata.Meta, int64, error) {
	info, err := os.Stat(source)
	if err != nil {
		return metadata.Meta{}, 0, errkind.Wrap(errkind.ErrNotFound, "catalog", "process", source, err)
	}
	if !info.IsDir() {
		meta, err := zipball.Validate(source)
		if err != nil {
			return metadata.Meta{}, 0, errkind.Wrap(errkind.ErrValidation, "catalog", "process", md5, err)
		}
		return meta, info.Size(), nil
	}

	data, err := os.ReadFile(filepath.Join(source, zipball.InfoFile))
	if err != nil {
		return metadata.Meta{}, 0, errkind.Wrap(errkind.ErrValidation, "catalog", "process", md5, err)
	}
	meta, err := metadata.Parse(data)
	if err != nil {
		return metadata.Meta{}, 0, errkind.Wrap(errkind.ErrValidation, "catalog", "process", md5, err)
	}
	return meta, treeSize(source), nil
}

func treeSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// AddToArchive ingests spool files by content id.
func (s *Store) AddToArchive(ctx context.Context, ids []string) (int64, error) {
	content := make(map[string]string, len(ids))
	for _, id := range ids {
		if !contentid.IsValid(id) {
			return 0, errkind.Wrap(errkind.ErrValidation, "catalog", "add", "invalid content id "+id, nil)
		}
		content[id] = filepath.Join(s.cfg.Paths.SpoolDir, id+s.cfg.Spool.Extension)
	}
	return s.Process(ctx, content, false)
}

// RemoveFromArchive drops content by id: the on-disk tree first, then the
// catalog and tagging rows in one transaction. Returns the ids whose tree
// removal failed; their rows are still deleted.
func (s *Store) RemoveFromArchive(ctx context.Context, ids []string) ([]string, error) {
	var failed []string
	for _, id := range ids {
		tree, ok := contentid.ToPath(id, s.cfg.Paths.ContentDir)
		if !ok {
			failed = append(failed, id)
			continue
		}
		if _, err := os.Stat(tree); err == nil {
			if err := os.RemoveAll(tree); err != nil {
				failed = append(failed, id)
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failed, fmt.Errorf("begin remove tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, chunk := range batches(ids, maxVariableNumber) {
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := makePlaceholders(len(chunk))
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM zipballs WHERE md5 IN (%s)", placeholders), args...); err != nil {
			return failed, fmt.Errorf("delete zipballs: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM taggings WHERE md5 IN (%s)", placeholders), args...); err != nil {
			return failed, fmt.Errorf("delete taggings: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return failed, fmt.Errorf("commit remove: %w", err)
	}
	return failed, nil
}

// ReloadData walks the content directory and re-registers every extracted
// tree without touching files.
func (s *Store) ReloadData(ctx context.Context) (int64, error) {
	dirs := contentid.FindContentDirs(s.cfg.Paths.ContentDir)

	var total int64
	for _, dir := range dirs {
		id := contentid.ToMD5(dir)
		if id == "" {
			continue
		}
		n, err := s.Process(ctx, map[string]string{id: dir}, true)
		if err != nil {
			s.logger.Warn("reload skipped tree",
				logging.String(logging.FieldPath, dir), logging.Error(err))
			continue
		}
		total += n
	}
	return total, nil
}

// ClearAndReload wipes the catalog tables and rebuilds them from disk.
func (s *Store) ClearAndReload(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, table := range []string{"zipballs", "taggings", "tags"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clear: %w", err)
	}
	return s.ReloadData(ctx)
}

// tagJSON renders the {name: id} mirror stored on the zipballs row.
func tagJSON(tags map[string]int64) string {
	if len(tags) == 0 {
		return "{}"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "{}"
	}
	return string(data)
}
