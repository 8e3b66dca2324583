// package services defines the collaborators that talk to the network and the filesystem
package services

import (
	"context"
	"net/http"
	"time"

	"github.com/desertthunder/podd/internal/models"
)

// Fetcher retrieves and parses a remote feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.Feed, error)
}

// Downloader saves the enclosure of an intent to disk.
type Downloader interface {
	Download(ctx context.Context, intent models.DownloadIntent) (*DownloadResult, error)
}

// Tagger writes metadata into a downloaded file.
type Tagger interface {
	Tag(path string, intent models.DownloadIntent) (bool, error)
}

// DownloadResult describes a finished download.
type DownloadResult struct {
	Path   string
	Bytes  int64
	Reused bool // target already existed; nothing was fetched
}

// DefaultUserAgent identifies podd to feed hosts.
const DefaultUserAgent = "podd/1.0"

// NewHTTPClient returns a client with the given overall timeout. A zero timeout means no limit.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
