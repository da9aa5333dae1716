// Package catalog is the content archive's system of record.
//
// Every ingested zipball becomes one row keyed by its MD5 content id,
// carrying the normalized metadata, a view counter, and a mirror of its tag
// assignments. The read side serves browse and search pages; the write side
// ingests spool files, replaces superseded content, and keeps the on-disk
// trees consistent with the rows.
package catalog
