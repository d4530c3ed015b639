// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Three events are published: a stage failed, the credential pool
// ran dry, and a project reached completion. Each can be switched off in the
// [notifications] section.
//
// Pipeline code depends only on the Service interface.
package notifications
