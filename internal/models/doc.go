// Package models defines the domain entities shared by the podd store, the reconciliation engine and the CLI.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: rows owned by the store
//   - [Podcast] : a subscription with its feed URL and download directory
//   - [Episode] : a feed-supplied identifier recorded for one podcast
//   - [Settings] : the singleton global options row
//
// 2. Transient values: produced and consumed within a single refresh run
//   - [Feed] and [Entry] : a parsed remote feed
//   - [DownloadIntent] : an episode selected for download
//   - [EpisodeSet] : identifier set used for the delta computation
package models
