package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"librarian/internal/errkind"
)

// filterClauses renders the WHERE fragments and JOIN for a Filter.
func filterClauses(f Filter) (join string, clauses []string, args []any) {
	if f.Tag != "" {
		join = " NATURAL JOIN taggings"
		clauses = append(clauses, "taggings.tag_id = (SELECT tag_id FROM tags WHERE name = ?)")
		args = append(args, f.Tag)
	}
	if f.Lang != "" {
		clauses = append(clauses, "language = ?")
		args = append(args, f.Lang)
	}
	if f.Multipage != nil {
		clauses = append(clauses, "multipage = ?")
		args = append(args, boolToInt(*f.Multipage))
	}
	return join, clauses, args
}

func whereSQL(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// GetCount returns how many items match the filter.
func (s *Store) GetCount(ctx context.Context, f Filter) (int, error) {
	join, clauses, args := filterClauses(f)
	query := "SELECT COUNT(*) FROM zipballs" + join + whereSQL(clauses)
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count zipballs: %w", err)
	}
	return count, nil
}

// GetSearchCount returns how many items match the search terms and filter.
func (s *Store) GetSearchCount(ctx context.Context, terms string, f Filter) (int, error) {
	join, clauses, args := filterClauses(f)
	clauses = append(clauses, "lower(title) LIKE ?")
	args = append(args, "%"+strings.ToLower(terms)+"%")
	query := "SELECT COUNT(*) FROM zipballs" + join + whereSQL(clauses)
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count search: %w", err)
	}
	return count, nil
}

// GetContent lists catalog items, newest updates first, ties broken by view
// count. Limit <= 0 means unlimited.
func (s *Store) GetContent(ctx context.Context, offset, limit int, f Filter) ([]Item, error) {
	join, clauses, args := filterClauses(f)
	query := "SELECT " + zipballColumns + " FROM zipballs" + join + whereSQL(clauses) +
		" ORDER BY updated DESC, views DESC"
	query, args = applyPage(query, args, offset, limit)
	return s.queryItems(ctx, query, args...)
}

// SearchContent lists items whose title contains terms, case-insensitively.
func (s *Store) SearchContent(ctx context.Context, terms string, offset, limit int, f Filter) ([]Item, error) {
	join, clauses, args := filterClauses(f)
	clauses = append(clauses, "lower(title) LIKE ?")
	args = append(args, "%"+strings.ToLower(terms)+"%")
	query := "SELECT " + zipballColumns + " FROM zipballs" + join + whereSQL(clauses) +
		" ORDER BY updated DESC, views DESC"
	query, args = applyPage(query, args, offset, limit)
	return s.queryItems(ctx, query, args...)
}

func applyPage(query string, args []any, offset, limit int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select zipballs: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zipball: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetSingle returns the item with the given content id.
func (s *Store) GetSingle(ctx context.Context, md5 string) (Item, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+zipballColumns+" FROM zipballs WHERE md5 = ?", md5)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return Item{}, errkind.Wrap(errkind.ErrNotFound, "catalog", "get-single", md5, nil)
	}
	if err != nil {
		return Item{}, fmt.Errorf("select zipball %s: %w", md5, err)
	}
	return item, nil
}

// GetTitles bulk-resolves content ids to titles. Unknown ids are absent from
// the result.
func (s *Store) GetTitles(ctx context.Context, ids []string) (map[string]string, error) {
	titles := make(map[string]string, len(ids))
	for _, batch := range batches(ids, maxVariableNumber) {
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		query := fmt.Sprintf("SELECT md5, title FROM zipballs WHERE md5 IN (%s)", makePlaceholders(len(batch)))
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("select titles: %w", err)
		}
		for rows.Next() {
			var md5, title string
			if err := rows.Scan(&md5, &title); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan title: %w", err)
			}
			titles[md5] = title
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate titles: %w", err)
		}
		rows.Close()
	}
	return titles, nil
}

// GetReplacements fills ReplacesTitle on every item whose metadata names a
// predecessor still present in the catalog. Unresolved predecessors stay
// blank.
func (s *Store) GetReplacements(ctx context.Context, items []Item) ([]Item, error) {
	var ids []string
	for _, item := range items {
		if item.Meta.Replaces != "" {
			ids = append(ids, item.Meta.Replaces)
		}
	}
	if len(ids) == 0 {
		return items, nil
	}
	titles, err := s.GetTitles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Meta.Replaces != "" {
			items[i].ReplacesTitle = titles[items[i].Meta.Replaces]
		}
	}
	return items, nil
}

// AddView bumps the view counter. Exactly one row must be affected; anything
// else means the catalog and the caller disagree about what exists.
func (s *Store) AddView(ctx context.Context, md5 string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE zipballs SET views = views + 1 WHERE md5 = ?", md5)
	if err != nil {
		return fmt.Errorf("add view %s: %w", md5, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add view rows affected: %w", err)
	}
	if affected != 1 {
		return errkind.Wrap(errkind.ErrConflict, "catalog", "add-view",
			fmt.Sprintf("%s affected %d rows", md5, affected), nil)
	}
	return nil
}

// NeedsFormatting reports whether the reader should inject its own styling
// into the content's pages.
func (s *Store) NeedsFormatting(ctx context.Context, md5 string) (bool, error) {
	var keep int
	err := s.db.QueryRowContext(ctx, "SELECT keep_formatting FROM zipballs WHERE md5 = ?", md5).Scan(&keep)
	if err == sql.ErrNoRows {
		return false, errkind.Wrap(errkind.ErrNotFound, "catalog", "needs-formatting", md5, nil)
	}
	if err != nil {
		return false, fmt.Errorf("read keep_formatting %s: %w", md5, err)
	}
	return keep == 0, nil
}
