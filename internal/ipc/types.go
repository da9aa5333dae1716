package ipc

import (
	"time"

	"librarian/internal/catalog"
	"librarian/internal/facets"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the daemon runtime snapshot.
type StatusResponse struct {
	Running       bool      `json:"running"`
	Since         time.Time `json:"since"`
	CatalogDBPath string    `json:"catalog_db_path"`
	FacetsDBPath  string    `json:"facets_db_path"`
	LockPath      string    `json:"lock_path"`
	ContentCount  int       `json:"content_count"`
	PID           int       `json:"pid"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse acknowledges a shutdown request.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}

// SweepRequest triggers an immediate spool sweep.
type SweepRequest struct{}

// SweepResponse reports sweep completion.
type SweepResponse struct {
	Message string `json:"message"`
}

// ListRequest pages through the catalog with optional filters.
type ListRequest struct {
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
	Tag       string `json:"tag"`
	Lang      string `json:"lang"`
	Terms     string `json:"terms"`
	Multipage *bool  `json:"multipage"`
}

// ListResponse contains one catalog page and the unpaged total.
type ListResponse struct {
	Items []catalog.Item `json:"items"`
	Total int            `json:"total"`
}

// ShowRequest fetches a single catalog item by content id.
type ShowRequest struct {
	MD5 string `json:"md5"`
}

// ShowResponse contains a single catalog item.
type ShowResponse struct {
	Item catalog.Item `json:"item"`
}

// AddRequest ingests spooled zipballs by content id.
type AddRequest struct {
	IDs []string `json:"ids"`
}

// AddResponse reports the number of affected catalog rows.
type AddResponse struct {
	Affected int64 `json:"affected"`
}

// RemoveRequest deletes catalog items and their content trees.
type RemoveRequest struct {
	IDs []string `json:"ids"`
}

// RemoveResponse lists content trees that could not be removed.
type RemoveResponse struct {
	Failed []string `json:"failed"`
}

// ReloadRequest rebuilds the catalog from the extracted content trees.
type ReloadRequest struct {
	Clear bool `json:"clear"`
}

// ReloadResponse reports the number of affected catalog rows.
type ReloadResponse struct {
	Affected int64 `json:"affected"`
}

// TagsEditRequest adds or removes tags on one item.
type TagsEditRequest struct {
	MD5  string   `json:"md5"`
	Tags []string `json:"tags"`
}

// TagsEditResponse acknowledges a tag edit.
type TagsEditResponse struct{}

// TagCloudRequest fetches tag usage counts.
type TagCloudRequest struct{}

// TagCloudResponse lists tags with usage counts, most used first.
type TagCloudResponse struct {
	Tags []catalog.TagCount `json:"tags"`
}

// FacetSearchRequest searches the facet archive.
type FacetSearchRequest struct {
	Terms     string `json:"terms"`
	FacetType string `json:"facet_type"`
}

// FacetSearchResponse lists matching facet records.
type FacetSearchResponse struct {
	Records []facets.Record `json:"records"`
}

// FacetScanRequest reindexes a content-relative directory.
type FacetScanRequest struct {
	Path string `json:"path"`
}

// FacetScanResponse acknowledges a scan.
type FacetScanResponse struct{}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
