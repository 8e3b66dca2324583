package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
	tu "github.com/desertthunder/podd/internal/testing"
)

func TestExtension(t *testing.T) {
	tc := []struct {
		url       string
		mediaType string
		want      string
	}{
		{url: "https://cdn.example.com/ep.mp3", want: ".mp3"},
		{url: "https://cdn.example.com/ep.M4A?token=abc", want: ".m4a"},
		{url: "https://cdn.example.com/video.mov", want: ".mov"},
		{url: "https://cdn.example.com/stream", mediaType: "audio/ogg", want: ".ogg"},
		{url: "https://cdn.example.com/stream", mediaType: "video/mp4; codecs=avc1", want: ".mp4"},
		{url: "https://cdn.example.com/page.html", mediaType: "text/html", want: ".mp3"},
		{url: "", want: ".mp3"},
	}

	for _, tt := range tc {
		t.Run(tt.url+tt.mediaType, func(t *testing.T) {
			if got := Extension(tt.url, tt.mediaType); got != tt.want {
				t.Errorf("Extension() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	published := time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC)

	tc := []struct {
		name   string
		intent models.DownloadIntent
		want   string
	}{
		{
			name:   "dated",
			intent: models.DownloadIntent{Title: "Episode 1: Start", Published: published, EnclosureURL: "https://x/a.m4a"},
			want:   "2023-12-24 Episode 1_ Start.m4a",
		},
		{
			name:   "undated",
			intent: models.DownloadIntent{Title: "Bonus", EnclosureURL: "https://x/a"},
			want:   "Bonus.mp3",
		},
		{
			name:   "untitled uses entry id",
			intent: models.DownloadIntent{EntryID: "abc-123", EnclosureURL: "https://x/a.mp3"},
			want:   "abc-123.mp3",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileName(tt.intent); got != tt.want {
				t.Errorf("FileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDownloadService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ep.mp3":
			w.Write([]byte("audio-bytes"))
		case "/other.mp3":
			w.Write([]byte("other-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("Download", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "Show")
		intent := models.DownloadIntent{Directory: dir, Title: "Ep", EnclosureURL: server.URL + "/ep.mp3"}

		res, err := NewDownloadService(server.Client(), "").Download(context.Background(), intent)
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}

		if res.Reused || res.Bytes != int64(len("audio-bytes")) {
			t.Errorf("unexpected result %+v", res)
		}
		if got := tu.MustReadFile(t, res.Path); got != "audio-bytes" {
			t.Errorf("unexpected file content %q", got)
		}
		if _, err := os.Stat(res.Path + ".part"); !os.IsNotExist(err) {
			t.Error("partial file should be gone after success")
		}
	})

	t.Run("Reuses Own Download", func(t *testing.T) {
		dir := t.TempDir()
		svc := NewDownloadService(server.Client(), "")
		intent := models.DownloadIntent{Directory: dir, EntryID: "ep-1", Title: "Ep", EnclosureURL: server.URL + "/ep.mp3"}

		first, err := svc.Download(context.Background(), intent)
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}

		intent.EnclosureURL = server.URL + "/missing.mp3"
		second, err := NewDownloadService(server.Client(), "").Download(context.Background(), intent)
		if err != nil {
			t.Fatalf("second Download() error = %v", err)
		}
		if !second.Reused || second.Path != first.Path {
			t.Errorf("expected reuse of %s, got %+v", first.Path, second)
		}
	})

	t.Run("Name Collisions", func(t *testing.T) {
		published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		bonus := func(dir, id, path string) models.DownloadIntent {
			return models.DownloadIntent{
				Directory: dir, EntryID: id, Title: "Bonus", Published: published, EnclosureURL: server.URL + path,
			}
		}

		tc := []struct {
			name  string
			seed  bool
			first string
		}{
			{name: "unrecorded file on disk", seed: true},
			{name: "earlier entry owns the name", first: "bonus-a"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				dir := t.TempDir()
				svc := NewDownloadService(server.Client(), "")
				plain := filepath.Join(dir, "2024-03-01 Bonus.mp3")
				if tt.seed {
					if err := os.WriteFile(plain, []byte("someone else's"), 0o644); err != nil {
						t.Fatalf("failed to seed file: %v", err)
					}
				}
				if tt.first != "" {
					res, err := svc.Download(context.Background(), bonus(dir, tt.first, "/ep.mp3"))
					if err != nil || res.Path != plain {
						t.Fatalf("first Download() = %+v, %v", res, err)
					}
				}

				res, err := svc.Download(context.Background(), bonus(dir, "bonus-b", "/other.mp3"))
				if err != nil {
					t.Fatalf("Download() error = %v", err)
				}
				if res.Reused {
					t.Error("a different entry must not reuse another entry's file")
				}
				if res.Path == plain || filepath.Base(res.Path) != UniqueFileName(bonus(dir, "bonus-b", "/other.mp3")) {
					t.Errorf("unexpected path %s", res.Path)
				}
				if got := tu.MustReadFile(t, res.Path); got != "other-bytes" {
					t.Errorf("unexpected content %q", got)
				}
				if got := tu.MustReadFile(t, plain); got == "other-bytes" {
					t.Error("existing file was overwritten")
				}
			})
		}
	})

	t.Run("Concurrent Same Name", func(t *testing.T) {
		dir := t.TempDir()
		svc := NewDownloadService(server.Client(), "")
		ids := []string{"bonus-a", "bonus-b"}
		paths := make([]string, len(ids))

		var wg sync.WaitGroup
		for i, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				intent := models.DownloadIntent{Directory: dir, EntryID: id, Title: "Bonus", EnclosureURL: server.URL + "/ep.mp3"}
				if res, err := svc.Download(context.Background(), intent); err == nil {
					paths[i] = res.Path
				}
			}()
		}
		wg.Wait()

		if paths[0] == "" || paths[1] == "" || paths[0] == paths[1] {
			t.Errorf("expected two distinct files, got %q", paths)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tc := []struct {
			name   string
			client *http.Client
			url    string
		}{
			{name: "no enclosure", client: server.Client(), url: ""},
			{name: "not found", client: server.Client(), url: server.URL + "/missing.mp3"},
			{name: "transport", client: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("reset"))}, url: "http://x/ep.mp3"},
			{name: "body read", client: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{StatusCode: 200, Body: &tu.FCloser{}}, nil)}, url: "http://x/ep.mp3"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				dir := t.TempDir()
				intent := models.DownloadIntent{Directory: dir, Title: "Ep", EnclosureURL: tt.url}

				_, err := NewDownloadService(tt.client, "").Download(context.Background(), intent)
				if !errors.Is(err, shared.ErrDownloadFailed) {
					t.Errorf("expected ErrDownloadFailed, got %v", err)
				}

				entries, _ := os.ReadDir(dir)
				if len(entries) != 0 {
					t.Errorf("failed download must leave no files, found %d", len(entries))
				}
			})
		}
	})
}
