package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
)

// FeedService fetches feeds over HTTP and parses them with [gofeed.Parser].
type FeedService struct {
	httpClient *http.Client
	userAgent  string
}

// NewFeedService creates a FeedService. A nil client falls back to [http.DefaultClient].
func NewFeedService(client *http.Client, userAgent string) *FeedService {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &FeedService{httpClient: client, userAgent: userAgent}
}

// Fetch downloads and parses the feed at url.
func (s *FeedService) Fetch(ctx context.Context, url string) (*models.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrFeedUnreachable, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFeedUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrFeedUnreachable, url, resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFeedUnparseable, err)
	}

	return ConvertFeed(parsed), nil
}

// ConvertFeed maps a parsed [gofeed.Feed] to a [models.Feed], keeping item order.
func ConvertFeed(f *gofeed.Feed) *models.Feed {
	feed := &models.Feed{
		Title:   strings.TrimSpace(f.Title),
		Link:    f.Link,
		Entries: make([]models.Entry, 0, len(f.Items)),
	}
	if f.Image != nil {
		feed.Image = f.Image.URL
	}

	for _, item := range f.Items {
		if item == nil {
			continue
		}
		feed.Entries = append(feed.Entries, convertItem(item))
	}
	return feed
}

func convertItem(item *gofeed.Item) models.Entry {
	entry := models.Entry{
		Title:       strings.TrimSpace(item.Title),
		Description: item.Description,
		Link:        item.Link,
	}

	switch {
	case item.PublishedParsed != nil:
		entry.Published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		entry.Published = item.UpdatedParsed.UTC()
	}

	if enc := pickEnclosure(item.Enclosures); enc != nil {
		entry.EnclosureURL = enc.URL
		entry.EnclosureType = enc.Type
	}

	entry.ID = strings.TrimSpace(item.GUID)
	if entry.ID == "" {
		entry.ID = entry.EnclosureURL
	}
	if entry.ID == "" {
		entry.ID = item.Link
	}
	return entry
}

// pickEnclosure prefers the first audio or video enclosure and otherwise takes the first one with a URL.
func pickEnclosure(encs []*gofeed.Enclosure) *gofeed.Enclosure {
	var fallback *gofeed.Enclosure
	for _, enc := range encs {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") || strings.HasPrefix(enc.Type, "video/") {
			return enc
		}
		if fallback == nil {
			fallback = enc
		}
	}
	return fallback
}
