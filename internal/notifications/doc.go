// Package notifications delivers the end-of-run download report.
//
// [NewService] picks the channels from configuration: an ntfy topic, an SMTP mailbox, both (fanned out) or
// neither, in which case a noop service is returned. Callers only send a report when at least one episode was
// downloaded.
package notifications
