// Package notifications tells operators what a run produced.
//
// Two optional channels exist: an ntfy push (notifications.ntfy_topic) and an
// SMTP email summary (notifications.smtp_host plus recipient). NewService
// returns a no-op when neither is configured and fans out to both when both
// are. Callers treat delivery failures as log-only.
package notifications
