// Package notifications delivers appliance events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-event toggles in the config decide which milestones reach the operator,
// so the ingest pipeline can emit unconditionally.
//
// Extend this package if you need alternative transports; callers depend only
// on the Service interface.
package notifications
