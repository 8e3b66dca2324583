// Package repositories implements SQLite persistence for podcast subscriptions.
//
// Key Implementations:
//   - [Store] : opens the database, applies migrations, seeds settings and scopes transactions
//   - [PodcastRepository] : subscriptions keyed by unique feed URL
//   - [EpisodeRepository] : the episode ledger, recording which feed identifiers a podcast has already seen
//   - [SettingsRepository] : the singleton options row
//
// Uniqueness is enforced by the schema, never by in-memory pre-checks. Constraint failures surface as the sentinel
// errors in the shared package ([shared.ErrDuplicateSubscription], [shared.ErrDuplicateEpisode],
// [shared.ErrUnknownPodcast]).
package repositories
