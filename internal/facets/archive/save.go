package archive

import (
	"context"
	"database/sql"
	"fmt"
	"path"

	"librarian/internal/facets"
	"librarian/internal/logging"
)

// Save persists a record and folds its bitmask into the parent folder. The
// folder upsert and the facet upsert commit together.
func (s *Store) Save(ctx context.Context, record facets.Record) error {
	record = record.Sanitize()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	folderID, err := upsertFolder(ctx, tx, record.Parent(), record.FacetTypes)
	if err != nil {
		return err
	}
	if err := upsertFacet(ctx, tx, record, folderID); err != nil {
		return err
	}
	if err := s.electFolderMain(ctx, tx, folderID, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// electFolderMain runs the entry-point election for a freshly saved record, so
// the folder's main tracks every analyze, not just full rescans.
func (s *Store) electFolderMain(ctx context.Context, tx *sql.Tx, folderID int64, record facets.Record) error {
	if !record.HasType(facets.TypeHTML) {
		return nil
	}
	var incumbent string
	if err := tx.QueryRowContext(ctx, "SELECT main FROM folders WHERE id = ?", folderID).Scan(&incumbent); err != nil {
		return fmt.Errorf("read folder main: %w", err)
	}
	elected := s.electMain(facets.BitHTML, path.Base(record.Path), incumbent)
	if elected == incumbent {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "UPDATE folders SET main = ? WHERE id = ?", elected, folderID); err != nil {
		return fmt.Errorf("update folder main: %w", err)
	}
	return nil
}

// SaveParent creates or updates a folder row. The incoming bitmask OR-merges
// into the stored one. A main candidate replaces the incumbent only when the
// owning processor ranks it higher; a folder without a main accepts any
// candidate.
func (s *Store) SaveParent(ctx context.Context, folderPath string, facetTypes int, main string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin folder tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id        int64
		stored    int
		incumbent string
	)
	row := tx.QueryRowContext(ctx, "SELECT id, facet_types, main FROM folders WHERE path = ?", folderPath)
	switch err := row.Scan(&id, &stored, &incumbent); {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO folders (path, facet_types, main) VALUES (?, ?, ?)",
			folderPath, facetTypes|facets.BitGeneric, main,
		); err != nil {
			return fmt.Errorf("insert folder: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read folder: %w", err)
	default:
		elected := s.electMain(facetTypes, main, incumbent)
		if _, err := tx.ExecContext(ctx,
			"UPDATE folders SET facet_types = facet_types | ?, main = ? WHERE id = ?",
			facetTypes, elected, id,
		); err != nil {
			return fmt.Errorf("update folder: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit folder: %w", err)
	}
	return nil
}

// electMain picks between a candidate main and the incumbent. Every processor
// present in the bitmask that handles the candidate gets a vote; the first one
// ranking the candidate above the incumbent wins it the slot. Works with
// folder-aggregate masks, so a rescan can displace a stale incumbent.
func (s *Store) electMain(facetTypes int, candidate, incumbent string) string {
	if candidate == "" {
		return incumbent
	}
	if incumbent == "" {
		return candidate
	}
	for _, name := range facets.FromBitmask(facetTypes) {
		proc, ok := s.registry.ForType(name)
		if !ok || !proc.CanProcess(candidate) {
			continue
		}
		if proc.IsEntryPoint(candidate, incumbent) {
			return candidate
		}
	}
	return incumbent
}

// Remove runs the deprocess hooks for each path, deletes the facet rows in
// batched IN queries, and re-aggregates every touched folder so its bitmask
// and main stay the OR and election over the surviving children.
func (s *Store) Remove(ctx context.Context, paths []string) error {
	for _, p := range paths {
		s.registry.DeprocessFile(s.abs(p))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	touched := make(map[int64]bool)
	for _, batch := range batches(paths, maxVariableNumber) {
		args := make([]any, len(batch))
		for i, p := range batch {
			args[i] = p
		}
		placeholders := makePlaceholders(len(batch))
		if err := collectFolderRefs(ctx, tx, placeholders, args, touched); err != nil {
			return err
		}
		query := fmt.Sprintf("DELETE FROM facets WHERE path IN (%s)", placeholders)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete facets: %w", err)
		}
	}
	for folderID := range touched {
		if err := s.reaggregateFolder(ctx, tx, folderID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove: %w", err)
	}
	return nil
}

func collectFolderRefs(ctx context.Context, tx *sql.Tx, placeholders string, args []any, touched map[int64]bool) error {
	query := fmt.Sprintf("SELECT DISTINCT folder_ref FROM facets WHERE folder_ref IS NOT NULL AND path IN (%s)", placeholders)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("find affected folders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan folder ref: %w", err)
		}
		touched[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read folder refs: %w", err)
	}
	return nil
}

// reaggregateFolder recomputes a folder's bitmask from its surviving children
// and re-elects main when the incumbent file no longer exists.
func (s *Store) reaggregateFolder(ctx context.Context, tx *sql.Tx, folderID int64) error {
	var incumbent string
	switch err := tx.QueryRowContext(ctx, "SELECT main FROM folders WHERE id = ?", folderID).Scan(&incumbent); {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return fmt.Errorf("read folder main: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT path, facet_types FROM facets WHERE folder_ref = ?", folderID)
	if err != nil {
		return fmt.Errorf("read folder children: %w", err)
	}
	defer rows.Close()

	mask := facets.BitGeneric
	mainAlive := false
	var htmlChildren []string
	for rows.Next() {
		var childPath string
		var childTypes int
		if err := rows.Scan(&childPath, &childTypes); err != nil {
			return fmt.Errorf("scan folder child: %w", err)
		}
		mask |= childTypes
		base := path.Base(childPath)
		if base == incumbent {
			mainAlive = true
		}
		if childTypes&facets.BitHTML != 0 {
			htmlChildren = append(htmlChildren, base)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read folder children: %w", err)
	}

	main := incumbent
	if !mainAlive {
		main = ""
		for _, base := range htmlChildren {
			main = s.electMain(facets.BitHTML, base, main)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE folders SET facet_types = ?, main = ? WHERE id = ?",
		mask, main, folderID,
	); err != nil {
		return fmt.Errorf("update folder aggregate: %w", err)
	}
	return nil
}

// ClearAndReload wipes the facet and folder tables, then rescans the content
// root synchronously.
func (s *Store) ClearAndReload(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "DELETE FROM facets"); err != nil {
		return fmt.Errorf("clear facets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM folders"); err != nil {
		return fmt.Errorf("clear folders: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}

	s.logger.Info("facet archive cleared, rescanning", logging.String(logging.FieldPath, s.root))
	return s.scanTree(ctx, ".", 0, false)
}

func upsertFolder(ctx context.Context, tx *sql.Tx, folderPath string, facetTypes int) (int64, error) {
	if folderPath == "" {
		folderPath = "."
	}
	folderPath = path.Clean(folderPath)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO folders (path, facet_types, main) VALUES (?, ?, '')
         ON CONFLICT(path) DO UPDATE SET facet_types = folders.facet_types | excluded.facet_types`,
		folderPath, facetTypes|facets.BitGeneric,
	); err != nil {
		return 0, fmt.Errorf("upsert folder: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM folders WHERE path = ?", folderPath).Scan(&id); err != nil {
		return 0, fmt.Errorf("read folder id: %w", err)
	}
	return id, nil
}

func upsertFacet(ctx context.Context, tx *sql.Tx, record facets.Record, folderID int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO facets (`+facetColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             folder_ref = excluded.folder_ref,
             facet_types = facets.facet_types | excluded.facet_types,
             author = excluded.author,
             title = excluded.title,
             album = excluded.album,
             genre = excluded.genre,
             description = excluded.description,
             keywords = excluded.keywords,
             language = excluded.language,
             copyright = excluded.copyright,
             outernet_formatting = excluded.outernet_formatting,
             width = excluded.width,
             height = excluded.height,
             duration = excluded.duration`,
		record.Path, folderID, record.FacetTypes,
		nullableString(record.Author), nullableString(record.Title),
		nullableString(record.Album), nullableString(record.Genre),
		nullableString(record.Description), nullableString(record.Keywords),
		nullableString(record.Language), nullableString(record.Copyright),
		boolToInt(record.OuternetFormatting), record.Width, record.Height, record.Duration,
	)
	if err != nil {
		return fmt.Errorf("upsert facet: %w", err)
	}
	return nil
}
