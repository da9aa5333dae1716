package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"librarian/internal/config"
	"librarian/internal/facets"
	"librarian/internal/facets/processors"
	"librarian/internal/fsal"
	"librarian/internal/logging"
	"librarian/internal/scheduler"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// maxVariableNumber caps the bind parameters per statement, dictated by the
// SQLite driver.
const maxVariableNumber = 999

// Store persists facet records and folder aggregates.
type Store struct {
	db       *sql.DB
	fs       fsal.FS
	registry *processors.Registry
	sched    *scheduler.Scheduler
	logger   *slog.Logger

	root      string
	maxDepth  int
	scanDelay time.Duration

	coversDir    string
	thumbWidth   int
	thumbHeight  int
	thumbQuality int
}

// Open connects to the facet database and prepares the schema. The scheduler
// may be nil, in which case deferred analysis and scans are skipped.
func Open(cfg *config.Config, fs fsal.FS, registry *processors.Registry, sched *scheduler.Scheduler, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	db, err := sql.Open("sqlite", cfg.FacetsDBPath())
	if err != nil {
		return nil, fmt.Errorf("open facets db: %w", err)
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
		db:        db,
		fs:        fs,
		registry:  registry,
		sched:     sched,
		logger:    logger.With(logging.String(logging.FieldComponent, "facets")),
		root:      cfg.Paths.ContentDir,
		maxDepth:  cfg.Scan.MaxDepth,
		scanDelay: time.Duration(cfg.Scan.DelaySeconds) * time.Second,

		coversDir:    cfg.Paths.CoversDir,
		thumbWidth:   cfg.Thumbs.Width,
		thumbHeight:  cfg.Thumbs.Height,
		thumbQuality: cfg.Thumbs.Quality,
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
		return fmt.Errorf("create facets schema: %w", err)
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
		return fmt.Errorf("facets database has schema version %d, expected %d", version, schemaVersion)
	}
	return nil
}

// abs maps a store-relative path onto the content root.
func (s *Store) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

const facetColumns = "path, folder_ref, facet_types, author, title, album, genre, description, keywords, language, copyright, outernet_formatting, width, height, duration"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (facets.Record, error) {
	var (
		record                                  facets.Record
		folderRef                               sql.NullInt64
		author, title, album, genre             sql.NullString
		description, keywords, language, cright sql.NullString
		formatting                              int
	)
	err := scanner.Scan(
		&record.Path, &folderRef, &record.FacetTypes,
		&author, &title, &album, &genre,
		&description, &keywords, &language, &cright,
		&formatting, &record.Width, &record.Height, &record.Duration,
	)
	if err != nil {
		return facets.Record{}, err
	}
	record.Author = author.String
	record.Title = title.String
	record.Album = album.String
	record.Genre = genre.String
	record.Description = description.String
	record.Keywords = keywords.String
	record.Language = language.String
	record.Copyright = cright.String
	record.OuternetFormatting = formatting != 0
	return record, nil
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
