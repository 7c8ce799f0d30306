// Package notifications delivers run events to ntfy and Discord.
//
// Callers publish an Event with a loosely typed Payload; each configured
// notifier decides how to render it. ntfy receives a short plain-text
// message with title, tags and priority headers. Discord receives an embed,
// and the daily report is split into embed fields by its "## " sections.
// With neither transport configured NewService returns a no-op.
package notifications
