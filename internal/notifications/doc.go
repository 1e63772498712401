// Package notifications delivers merge lifecycle events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The Service interface covers the merge milestones (started,
// completed, failed, cancelled) so callers emit consistent, user-friendly
// messages without duplicating HTTP glue.
//
// Extend this package if you need alternative transports; pipeline and CLI
// code depend only on the Service interface.
package notifications
