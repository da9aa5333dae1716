// Package archive persists facet records and folder aggregates in SQLite.
//
// The store is the write side of the facet index: analysis merges processor
// output into records, saves OR folder bitmasks upward, and search and
// browse queries filter on the stored bitmask in SQL. Deferred work (full
// analysis after a partial answer, subtree scans) runs on the shared task
// scheduler.
package archive
