// Package tasks implements subscription management and feed reconciliation with real-time progress reporting.
//
// # Core Operations
//
//  1. [Reconciler.Reconcile] : Merge one freshly parsed feed into the episode ledger
//     - Normalizes entry order to oldest-first
//     - Computes the entries whose identifiers the podcast has not seen
//     - Persists every unseen identifier, then returns the ones eligible for download
//
//  2. [SubscriptionManager] : Add, remove and configure subscriptions
//     - Add validates the feed, registers the podcast and runs an initial reconciliation
//     - Remove deletes a podcast and its ledger in one transaction
//     - Option setters validate input before touching the store
//
//  3. [RefreshEngine.Refresh] : Reconcile every subscription and download what is new
//     - Podcasts are processed one at a time in subscription order
//     - Downloads for a podcast run in a bounded, rate-limited worker pool
//     - A report is sent to the notifier when at least one episode was downloaded
//
// # Download Policy
//
// On a podcast's first reconciliation (no identifiers recorded yet) the global new_only option decides whether the
// back catalog is offered. With new_only set, the whole feed is recorded and nothing is downloaded; afterwards only
// entries that appear later are offered. Every later reconciliation offers all unseen entries.
//
// # Progress Reporting
//
// Operations accept a send-only [ProgressUpdate] channel. Updates use select with default so a slow or absent
// reader never blocks a run.
package tasks
