package ingest

import (
	"context"
	"encoding/json"
	"time"

	"librarian/internal/cache"
	"librarian/internal/catalog"
	"librarian/internal/events"
	"librarian/internal/facets"
)

// readTTL bounds staleness of cached list reads. Writes invalidate the whole
// catalog prefix anyway, so the TTL only matters for out-of-band DB edits.
const readTTL = 5 * time.Minute

// ContentPage is a paged slice of catalog items plus the unpaged total.
type ContentPage struct {
	Items []catalog.Item `json:"items"`
	Total int            `json:"total"`
}

// GetContent returns one page of the catalog, newest first, after filters.
func (s *Service) GetContent(ctx context.Context, offset, limit int, f catalog.Filter) (ContentPage, error) {
	key := cache.Key(cachePrefix, "get_content", offset, limit, f.Tag, f.Lang, multipageArg(f))
	var page ContentPage
	if s.cacheGet(key, &page) {
		return page, nil
	}
	items, err := s.catalog.GetContent(ctx, offset, limit, f)
	if err != nil {
		return ContentPage{}, err
	}
	total, err := s.catalog.GetCount(ctx, f)
	if err != nil {
		return ContentPage{}, err
	}
	page = ContentPage{Items: items, Total: total}
	s.cacheSet(key, page)
	return page, nil
}

// SearchContent returns one page of title matches plus the match total.
func (s *Service) SearchContent(ctx context.Context, terms string, offset, limit int, f catalog.Filter) (ContentPage, error) {
	key := cache.Key(cachePrefix, "search_content", terms, offset, limit, f.Tag, f.Lang, multipageArg(f))
	var page ContentPage
	if s.cacheGet(key, &page) {
		return page, nil
	}
	items, err := s.catalog.SearchContent(ctx, terms, offset, limit, f)
	if err != nil {
		return ContentPage{}, err
	}
	total, err := s.catalog.GetSearchCount(ctx, terms, f)
	if err != nil {
		return ContentPage{}, err
	}
	page = ContentPage{Items: items, Total: total}
	s.cacheSet(key, page)
	return page, nil
}

// GetSingle returns one catalog item by content id.
func (s *Service) GetSingle(ctx context.Context, md5 string) (catalog.Item, error) {
	return s.catalog.GetSingle(ctx, md5)
}

// NeedsFormatting reports whether reader styling should be applied.
func (s *Service) NeedsFormatting(ctx context.Context, md5 string) (bool, error) {
	return s.catalog.NeedsFormatting(ctx, md5)
}

// AddView bumps the view counter. Counters feed the popularity sort, so the
// cached pages are flushed.
func (s *Service) AddView(ctx context.Context, md5 string) error {
	if err := s.catalog.AddView(ctx, md5); err != nil {
		return err
	}
	s.cache.Invalidate(cachePrefix)
	return nil
}

// AddTags attaches tags to an item.
func (s *Service) AddTags(ctx context.Context, md5 string, names []string) error {
	if err := s.catalog.AddTags(ctx, md5, names); err != nil {
		return err
	}
	s.cache.Invalidate(cachePrefix)
	return nil
}

// RemoveTags detaches tags from an item.
func (s *Service) RemoveTags(ctx context.Context, md5 string, names []string) error {
	if err := s.catalog.RemoveTags(ctx, md5, names); err != nil {
		return err
	}
	s.cache.Invalidate(cachePrefix)
	return nil
}

// TagCloud returns every tag with its usage count.
func (s *Service) TagCloud(ctx context.Context) ([]catalog.TagCount, error) {
	key := cache.Key(cachePrefix, "tag_cloud")
	var cloud []catalog.TagCount
	if s.cacheGet(key, &cloud) {
		return cloud, nil
	}
	cloud, err := s.catalog.TagCloud(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(key, cloud)
	return cloud, nil
}

// RemoveFromArchive deletes items and their extracted trees, then announces
// the removals on the bus.
func (s *Service) RemoveFromArchive(ctx context.Context, ids []string) ([]string, error) {
	failed, err := s.catalog.RemoveFromArchive(ctx, ids)
	if err != nil {
		return failed, err
	}
	s.cache.Invalidate(cachePrefix)
	skipped := make(map[string]bool, len(failed))
	for _, id := range failed {
		skipped[id] = true
	}
	for _, id := range ids {
		if skipped[id] {
			continue
		}
		if s.facets != nil {
			s.facets.RemoveCover(id)
		}
		if s.bus != nil {
			_ = s.bus.Publish(events.ContentRemoved, id, "")
		}
	}
	return failed, nil
}

// AddToArchive ingests spooled zipballs by content id, outside the periodic
// sweep.
func (s *Service) AddToArchive(ctx context.Context, ids []string) (int64, error) {
	affected, err := s.catalog.AddToArchive(ctx, ids)
	if err != nil {
		return affected, err
	}
	s.cache.Invalidate(cachePrefix)
	for _, id := range ids {
		s.scheduleFacetScan(id)
	}
	return affected, nil
}

// Reload rebuilds the catalog from the extracted content trees. When clear is
// set the tables are emptied first.
func (s *Service) Reload(ctx context.Context, clear bool) (int64, error) {
	var affected int64
	var err error
	if clear {
		affected, err = s.catalog.ClearAndReload(ctx)
	} else {
		affected, err = s.catalog.ReloadData(ctx)
	}
	if err != nil {
		return affected, err
	}
	s.cache.Invalidate(cachePrefix)
	return affected, nil
}

// FacetsFor returns facet records for the given content-relative paths.
func (s *Service) FacetsFor(ctx context.Context, paths []string, facetType string) (map[string]facets.Record, error) {
	return s.facets.Get(ctx, paths, facetType)
}

// FacetsForParent lists a folder's facet records filtered by type.
func (s *Service) FacetsForParent(ctx context.Context, folderPath, facetType string) ([]facets.Record, error) {
	return s.facets.ForParent(ctx, folderPath, facetType)
}

// FacetSearch finds facet records whose searchable fields match terms.
func (s *Service) FacetSearch(ctx context.Context, terms, facetType string) ([]facets.Record, error) {
	return s.facets.Search(ctx, terms, facetType)
}

// FacetScan reindexes a content-relative directory synchronously.
func (s *Service) FacetScan(ctx context.Context, path string) error {
	if path == "" {
		path = "."
	}
	return s.facets.Scan(ctx, path)
}

// TestNotification sends a test push through the configured notifier.
func (s *Service) TestNotification(ctx context.Context) error {
	return s.notifier.TestNotification(ctx)
}

func (s *Service) cacheGet(key string, dest any) bool {
	data, ok := s.cache.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.cache.Delete(key)
		return false
	}
	return true
}

func (s *Service) cacheSet(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.cache.Set(key, data, readTTL)
}

func multipageArg(f catalog.Filter) string {
	if f.Multipage == nil {
		return ""
	}
	if *f.Multipage {
		return "1"
	}
	return "0"
}
