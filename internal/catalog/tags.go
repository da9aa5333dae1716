package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// TagCount is one tag-cloud entry.
type TagCount struct {
	Name  string
	TagID int64
	Count int
}

// AddTags assigns tags to a content item, creating unknown tag names as it
// goes, and refreshes the {name: id} mirror on the zipballs row. The whole
// edit commits atomically.
func (s *Store) AddTags(ctx context.Context, md5 string, names []string) error {
	return s.editTags(ctx, md5, names, true)
}

// RemoveTags withdraws tags from a content item and refreshes the mirror.
// Unassigned names are ignored.
func (s *Store) RemoveTags(ctx context.Context, md5 string, names []string) error {
	return s.editTags(ctx, md5, names, false)
}

func (s *Store) editTags(ctx context.Context, md5 string, names []string, add bool) error {
	if len(names) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tags tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range names {
		if add {
			id, err := ensureTag(ctx, tx, name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO taggings (md5, tag_id) VALUES (?, ?)", md5, id); err != nil {
				return fmt.Errorf("insert tagging %q: %w", name, err)
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM taggings WHERE md5 = ? AND tag_id = (SELECT tag_id FROM tags WHERE name = ?)",
				md5, name); err != nil {
				return fmt.Errorf("delete tagging %q: %w", name, err)
			}
		}
	}
	if err := refreshTagMirror(ctx, tx, md5); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tags: %w", err)
	}
	return nil
}

func ensureTag(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO tags (name) VALUES (?)", name); err != nil {
		return 0, fmt.Errorf("insert tag %q: %w", name, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT tag_id FROM tags WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("read tag %q: %w", name, err)
	}
	return id, nil
}

// refreshTagMirror rewrites zipballs.tags from the taggings rows.
func refreshTagMirror(ctx context.Context, tx *sql.Tx, md5 string) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT tags.name, tags.tag_id FROM tags NATURAL JOIN taggings WHERE taggings.md5 = ?", md5)
	if err != nil {
		return fmt.Errorf("read taggings: %w", err)
	}
	assigned := map[string]int64{}
	for rows.Next() {
		var (
			name string
			id   int64
		)
		if err := rows.Scan(&name, &id); err != nil {
			rows.Close()
			return fmt.Errorf("scan tagging: %w", err)
		}
		assigned[name] = id
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate taggings: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx,
		"UPDATE zipballs SET tags = ? WHERE md5 = ?", tagJSON(assigned), md5); err != nil {
		return fmt.Errorf("update tag mirror: %w", err)
	}
	return nil
}

// TagCloud returns every assigned tag with its usage count, most used first,
// name breaking ties.
func (s *Store) TagCloud(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, tags.tag_id, COUNT(taggings.tag_id) AS count
         FROM tags NATURAL JOIN taggings
         GROUP BY tags.tag_id
         ORDER BY count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("select tag cloud: %w", err)
	}
	defer rows.Close()

	var cloud []TagCount
	for rows.Next() {
		var entry TagCount
		if err := rows.Scan(&entry.Name, &entry.TagID, &entry.Count); err != nil {
			return nil, fmt.Errorf("scan tag cloud: %w", err)
		}
		cloud = append(cloud, entry)
	}
	return cloud, rows.Err()
}
