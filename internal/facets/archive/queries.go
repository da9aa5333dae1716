package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"librarian/internal/facets"
)

// Get returns the stored records for paths, keyed by path. When facetType is
// given, paths the owning processor cannot handle are skipped. Paths with no
// stored row come back as partial records while full analysis is scheduled.
func (s *Store) Get(ctx context.Context, paths []string, facetType string) (map[string]facets.Record, error) {
	if facetType != "" {
		proc, ok := s.registry.ForType(facetType)
		if !ok {
			return nil, fmt.Errorf("unknown facet type %q", facetType)
		}
		filtered := paths[:0:0]
		for _, p := range paths {
			if proc.CanProcess(p) {
				filtered = append(filtered, p)
			}
		}
		paths = filtered
	}

	records := make(map[string]facets.Record, len(paths))
	for _, batch := range batches(paths, maxVariableNumber) {
		args := make([]any, len(batch))
		for i, p := range batch {
			args[i] = p
		}
		query := fmt.Sprintf("SELECT %s FROM facets WHERE path IN (%s)", facetColumns, makePlaceholders(len(batch)))
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("select facets: %w", err)
		}
		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan facet: %w", err)
			}
			records[record.Path] = record
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate facets: %w", err)
		}
		rows.Close()
	}

	var misses []string
	for _, p := range paths {
		if _, ok := records[p]; !ok {
			misses = append(misses, p)
		}
	}
	if len(misses) > 0 {
		partials, err := s.Analyze(ctx, misses, true, nil)
		if err != nil {
			return nil, err
		}
		for p, record := range partials {
			records[p] = record
		}
	}
	return records, nil
}

// ForParent returns the facet rows directly under folderPath. When facetType
// is given only rows whose bitmask covers it qualify; the filter runs in the
// query.
func (s *Store) ForParent(ctx context.Context, folderPath, facetType string) ([]facets.Record, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM facets
         WHERE folder_ref = (SELECT id FROM folders WHERE path = ?)`, facetColumns)
	args := []any{cleanFolder(folderPath)}
	if facetType != "" {
		bit := facets.Bit(facetType)
		if bit == 0 {
			return nil, fmt.Errorf("unknown facet type %q", facetType)
		}
		query += " AND (facet_types & ?) = ?"
		args = append(args, bit, bit)
	}
	query += " ORDER BY path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select children: %w", err)
	}
	defer rows.Close()

	var records []facets.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Parent returns the folder row for path. A missing folder is created as a
// generic placeholder and a scan of it is scheduled; the placeholder is
// returned meanwhile.
func (s *Store) Parent(ctx context.Context, folderPath string) (facets.Folder, error) {
	folderPath = cleanFolder(folderPath)
	folder := facets.Folder{Path: folderPath}
	row := s.db.QueryRowContext(ctx, "SELECT path, facet_types, main FROM folders WHERE path = ?", folderPath)
	err := row.Scan(&folder.Path, &folder.FacetTypes, &folder.Main)
	if err == nil {
		return folder, nil
	}
	if err != sql.ErrNoRows {
		return facets.Folder{}, fmt.Errorf("read folder: %w", err)
	}

	folder.FacetTypes = facets.BitGeneric
	if err := s.SaveParent(ctx, folderPath, facets.BitGeneric, ""); err != nil {
		return facets.Folder{}, err
	}
	s.deferTask("facets-scan", 0, func(ctx context.Context) error {
		return s.scanTree(ctx, folderPath, 0, true)
	})
	return folder, nil
}

// Search matches terms as a case-insensitive substring across the search
// keys of facetType, or of every type when facetType is empty.
func (s *Store) Search(ctx context.Context, terms, facetType string) ([]facets.Record, error) {
	keys := facets.SearchKeys(facetType)
	if len(keys) == 0 {
		return nil, fmt.Errorf("facet type %q is not searchable", facetType)
	}

	clauses := make([]string, len(keys))
	args := make([]any, 0, len(keys)+2)
	pattern := "%" + strings.ToLower(terms) + "%"
	for i, key := range keys {
		clauses[i] = fmt.Sprintf("lower(%s) LIKE ?", key)
		args = append(args, pattern)
	}
	query := fmt.Sprintf("SELECT %s FROM facets WHERE (%s)", facetColumns, strings.Join(clauses, " OR "))
	if facetType != "" {
		bit := facets.Bit(facetType)
		if bit == 0 {
			return nil, fmt.Errorf("unknown facet type %q", facetType)
		}
		query += " AND (facet_types & ?) = ?"
		args = append(args, bit, bit)
	}
	query += " ORDER BY path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search facets: %w", err)
	}
	defer rows.Close()

	var records []facets.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
