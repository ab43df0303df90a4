// Package notifications delivers dispatch events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Each
// event kind can be switched off in the [notifications] section so the
// dispatch loop can publish unconditionally.
//
// All dispatch code depends only on the Service interface.
package notifications
