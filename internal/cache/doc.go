// Package cache provides the pluggable TTL key-value cache used by the read
// paths.
//
// Keys follow the form "<prefix>:<rest>"; Invalidate(prefix) removes every
// key under a prefix in one call. In-memory backends delete eagerly; the
// memcached backend instead rotates a per-prefix generation token so stale
// keys become unreachable without enumeration.
package cache
