package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/desertthunder/podd/internal/shared"
	tu "github.com/desertthunder/podd/internal/testing"
)

func TestFeedService(t *testing.T) {
	published := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	t.Run("New", func(t *testing.T) {
		srv := NewFeedService(nil, "")
		if srv.httpClient != http.DefaultClient {
			t.Error("expected http.DefaultClient to be used")
		}
		if srv.userAgent != DefaultUserAgent {
			t.Errorf("expected default user agent, got %s", srv.userAgent)
		}
	})

	t.Run("Fetch", func(t *testing.T) {
		body := tu.RSS("My Show",
			tu.Item{GUID: "guid-1", Title: "One", Published: published, Enclosure: "https://cdn.example.com/one.mp3"},
			tu.Item{Title: "Two", Enclosure: "https://cdn.example.com/two.m4a", Type: "audio/mp4"},
			tu.Item{Title: "Three", Link: "https://example.com/three"},
		)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("User-Agent"); got != "podd-test" {
				t.Errorf("expected user agent podd-test, got %s", got)
			}
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(body))
		}))
		defer server.Close()

		feed, err := NewFeedService(server.Client(), "podd-test").Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}

		if feed.Title != "My Show" {
			t.Errorf("expected title My Show, got %s", feed.Title)
		}
		if len(feed.Entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(feed.Entries))
		}

		tc := []struct {
			name string
			idx  int
			id   string
		}{
			{name: "guid", idx: 0, id: "guid-1"},
			{name: "enclosure fallback", idx: 1, id: "https://cdn.example.com/two.m4a"},
			{name: "link fallback", idx: 2, id: "https://example.com/three"},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := feed.Entries[tt.idx].ID; got != tt.id {
					t.Errorf("expected id %s, got %s", tt.id, got)
				}
			})
		}

		if !feed.Entries[0].Published.Equal(published) {
			t.Errorf("expected published %v, got %v", published, feed.Entries[0].Published)
		}
		if !feed.Entries[1].Published.IsZero() {
			t.Errorf("expected zero published time, got %v", feed.Entries[1].Published)
		}
		if feed.Entries[1].EnclosureType != "audio/mp4" {
			t.Errorf("expected enclosure type audio/mp4, got %s", feed.Entries[1].EnclosureType)
		}
	})

	t.Run("Fetch Non-2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewFeedService(server.Client(), "").Fetch(context.Background(), server.URL)
		if !errors.Is(err, shared.ErrFeedUnreachable) {
			t.Errorf("expected ErrFeedUnreachable, got %v", err)
		}
	})

	t.Run("Fetch Transport Error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

		_, err := NewFeedService(client, "").Fetch(context.Background(), "http://example.invalid/feed")
		if !errors.Is(err, shared.ErrFeedUnreachable) {
			t.Errorf("expected ErrFeedUnreachable, got %v", err)
		}
	})

	t.Run("Fetch Unparseable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("this is not a feed"))
		}))
		defer server.Close()

		_, err := NewFeedService(server.Client(), "").Fetch(context.Background(), server.URL)
		if !errors.Is(err, shared.ErrFeedUnparseable) {
			t.Errorf("expected ErrFeedUnparseable, got %v", err)
		}
	})
}

func TestPickEnclosure(t *testing.T) {
	tc := []struct {
		name string
		encs []*gofeed.Enclosure
		want string
	}{
		{name: "none", encs: nil, want: ""},
		{name: "prefers audio", encs: []*gofeed.Enclosure{
			{URL: "https://x/cover.jpg", Type: "image/jpeg"},
			{URL: "https://x/ep.mp3", Type: "audio/mpeg"},
		}, want: "https://x/ep.mp3"},
		{name: "falls back to first", encs: []*gofeed.Enclosure{
			{URL: ""},
			{URL: "https://x/ep.bin", Type: "application/octet-stream"},
		}, want: "https://x/ep.bin"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := pickEnclosure(tt.encs)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("expected nil, got %s", got.URL)
			case tt.want != "" && (got == nil || got.URL != tt.want):
				t.Errorf("expected %s, got %v", tt.want, got)
			}
		})
	}
}
