// package models defines the data model for podcast subscriptions
package models

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Option keys accepted by the settings store.
const (
	OptionNewOnly           = "new_only"
	OptionDownloadDirectory = "download_directory"
)

// Catalog modes accepted by the catalog option.
const (
	CatalogAll = "all"
	CatalogNew = "new"
)

// Podcast is a subscription to a remote feed.
type Podcast struct {
	ID        int64
	Name      string
	URL       string
	Directory string
	LastSync  *time.Time
	CreatedAt time.Time
}

// Validate checks the fields the store requires.
func (p *Podcast) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("podcast name is required")
	case strings.TrimSpace(p.URL) == "":
		return fmt.Errorf("podcast url is required")
	case !filepath.IsAbs(p.Directory):
		return fmt.Errorf("podcast directory must be absolute: %q", p.Directory)
	}
	return nil
}

// Settings is the singleton options row.
type Settings struct {
	NewOnly           bool
	DownloadDirectory string
}

// CatalogMode renders NewOnly as the user-facing catalog mode.
func (s Settings) CatalogMode() string {
	if s.NewOnly {
		return CatalogNew
	}
	return CatalogAll
}

// Feed is a parsed remote feed.
type Feed struct {
	Title   string
	Link    string
	Image   string
	Entries []Entry
}

// Entry is a single feed item.
//
// ID is the feed's stable identifier for the item. Published is zero when the feed carries no usable date.
type Entry struct {
	ID            string
	Title         string
	Published     time.Time
	EnclosureURL  string
	EnclosureType string
	Description   string
	Link          string
}

// DownloadIntent is an episode the reconciler selected for download.
type DownloadIntent struct {
	PodcastID     int64
	PodcastName   string
	Directory     string
	EntryID       string
	Title         string
	Published     time.Time
	EnclosureURL  string
	EnclosureType string
}

// EpisodeSet is a set of episode identifiers compared by exact string equality.
type EpisodeSet struct {
	ids map[string]struct{}
}

// NewEpisodeSet builds a set from ids. Duplicates collapse.
func NewEpisodeSet(ids ...string) *EpisodeSet {
	s := &EpisodeSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s *EpisodeSet) Add(id string) bool {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports membership.
func (s *EpisodeSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers.
func (s *EpisodeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Slice returns the identifiers in sorted order.
func (s *EpisodeSet) Slice() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
