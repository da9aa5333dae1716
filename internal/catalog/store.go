package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"librarian/internal/config"
	"librarian/internal/logging"
	"librarian/internal/metadata"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// maxVariableNumber caps the bind parameters per statement, dictated by the
// SQLite driver.
const maxVariableNumber = 999

// Item is one catalog row: the normalized metadata plus catalog-owned state.
type Item struct {
	MD5  string
	Meta metadata.Meta

	Views   int
	Tags    map[string]int64
	Size    int64
	Updated time.Time

	// ReplacesTitle is resolved by GetReplacements and not stored.
	ReplacesTitle string
}

// Filter narrows catalog listings. Zero values mean no constraint.
type Filter struct {
	Tag       string
	Lang      string
	Multipage *bool
}

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	cfg    *config.Config
	logger *slog.Logger
}

// Open connects to the catalog database and prepares the schema.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	db, err := sql.Open("sqlite", cfg.CatalogDBPath())
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "catalog")),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create catalog schema: %w", err)
	}
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("catalog database has schema version %d, expected %d", version, schemaVersion)
	}
	return nil
}

const zipballColumns = "md5, url, title, timestamp, broadcast, license, language, publisher, keywords, images, keep_formatting, is_partner, is_sponsored, archive, multipage, entry_point, replaces, size, updated, views, tags"

func scanItem(scanner interface{ Scan(dest ...any) error }) (Item, error) {
	var (
		item                             Item
		timestampRaw, updatedRaw, tagRaw string
		replaces                         sql.NullString
		keepFmt, partner, sponsored, mp  int
	)
	err := scanner.Scan(
		&item.MD5, &item.Meta.URL, &item.Meta.Title, &timestampRaw,
		&item.Meta.Broadcast, &item.Meta.License, &item.Meta.Language,
		&item.Meta.Publisher, &item.Meta.Keywords, &item.Meta.Images,
		&keepFmt, &partner, &sponsored, &item.Meta.Archive, &mp,
		&item.Meta.EntryPoint, &replaces, &item.Size, &updatedRaw,
		&item.Views, &tagRaw,
	)
	if err != nil {
		return Item{}, err
	}
	item.Meta.KeepFormatting = keepFmt != 0
	item.Meta.IsPartner = partner != 0
	item.Meta.IsSponsored = sponsored != 0
	item.Meta.Multipage = mp != 0
	item.Meta.Replaces = replaces.String
	if t, err := time.Parse(time.RFC3339Nano, timestampRaw); err == nil {
		item.Meta.Timestamp = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		item.Updated = t
	}
	item.Tags = map[string]int64{}
	if tagRaw != "" {
		_ = json.Unmarshal([]byte(tagRaw), &item.Tags)
	}
	return item, nil
}

// upsertItem writes the metadata columns. Views and the tag mirror survive a
// re-process so reloads do not reset catalog-owned state.
func upsertItem(ctx context.Context, tx *sql.Tx, md5 string, meta metadata.Meta, size int64, updated time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO zipballs (`+zipballColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '{}')
         ON CONFLICT(md5) DO UPDATE SET
             url = excluded.url,
             title = excluded.title,
             timestamp = excluded.timestamp,
             broadcast = excluded.broadcast,
             license = excluded.license,
             language = excluded.language,
             publisher = excluded.publisher,
             keywords = excluded.keywords,
             images = excluded.images,
             keep_formatting = excluded.keep_formatting,
             is_partner = excluded.is_partner,
             is_sponsored = excluded.is_sponsored,
             archive = excluded.archive,
             multipage = excluded.multipage,
             entry_point = excluded.entry_point,
             replaces = excluded.replaces,
             size = excluded.size,
             updated = excluded.updated`,
		md5, meta.URL, meta.Title, meta.Timestamp.UTC().Format(time.RFC3339Nano),
		meta.Broadcast, meta.License, meta.Language, meta.Publisher, meta.Keywords,
		meta.Images, boolToInt(meta.KeepFormatting), boolToInt(meta.IsPartner),
		boolToInt(meta.IsSponsored), meta.Archive, boolToInt(meta.Multipage),
		meta.EntryPoint, nullableString(meta.Replaces), size,
		updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert zipball %s: %w", md5, err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func batches(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
