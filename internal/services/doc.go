// Package services implements the I/O collaborators of a refresh run: fetching feeds, downloading episodes and
// tagging downloaded files.
//
// # Feeds
//
// [FeedService] fetches a feed over HTTP and parses it with gofeed, which handles RSS, Atom and JSON Feed.
// Each item is mapped to a [models.Entry] whose identifier is the item GUID, falling back to the first enclosure
// URL and then the item link.
//
// # Downloads
//
// [DownloadService] streams an enclosure into the podcast directory as "<YYYY-MM-DD> <title><ext>". Data is written
// to a ".part" file first and renamed once complete, so an interrupted download never looks finished. Each directory
// keeps a hidden manifest of which entry owns which file. An existing file is reused only by its owning entry; when
// another entry (or an unrecorded file) holds the name, the download gets a short entry digest appended to its stem.
//
// # Tagging
//
// [TagService] writes ID3v2 frames (title, artist, album, genre, year) into MP3 files and ilst items into MP4
// containers (.m4a, .m4b, .mp4, .m4v, .mov). The MP4 file is rewritten box by box into a temporary sibling, and chunk
// offsets that point past a grown moov box are shifted. Other containers are skipped.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrFeedUnreachable] : transport failure or non-2xx status
//   - [shared.ErrFeedUnparseable] : body is not a recognizable feed
//   - [shared.ErrDownloadFailed] : enclosure could not be fetched or written
//   - [shared.ErrTagFailed] : tag could not be written
package services
