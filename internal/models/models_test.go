package models

import (
	"slices"
	"testing"
)

func TestEpisodeSet(t *testing.T) {
	t.Run("membership is exact", func(t *testing.T) {
		s := NewEpisodeSet("ep-1", "EP-2", "ep-1")

		if s.Len() != 2 {
			t.Errorf("expected 2 ids, got %d", s.Len())
		}
		if !s.Has("ep-1") || s.Has("EP-1") || s.Has("ep-2") {
			t.Error("membership must use exact string equality")
		}
	})

	t.Run("Add reports novelty", func(t *testing.T) {
		var s EpisodeSet
		if !s.Add("a") {
			t.Error("first add should report new")
		}
		if s.Add("a") {
			t.Error("second add should report existing")
		}
	})

	t.Run("Slice is sorted", func(t *testing.T) {
		got := NewEpisodeSet("c", "a", "b").Slice()
		if !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Errorf("unexpected slice %v", got)
		}
	})

	t.Run("nil set", func(t *testing.T) {
		var s *EpisodeSet
		if s.Has("a") || s.Len() != 0 || s.Slice() != nil {
			t.Error("nil set should behave as empty")
		}
	})
}

func TestPodcastValidate(t *testing.T) {
	tc := []struct {
		name    string
		podcast Podcast
		wantErr bool
	}{
		{name: "valid", podcast: Podcast{Name: "Show", URL: "http://x/feed", Directory: "/tmp/show"}},
		{name: "missing name", podcast: Podcast{URL: "http://x/feed", Directory: "/tmp/show"}, wantErr: true},
		{name: "missing url", podcast: Podcast{Name: "Show", Directory: "/tmp/show"}, wantErr: true},
		{name: "relative directory", podcast: Podcast{Name: "Show", URL: "http://x/feed", Directory: "show"}, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.podcast.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsCatalogMode(t *testing.T) {
	if got := (Settings{NewOnly: true}).CatalogMode(); got != CatalogNew {
		t.Errorf("expected %s, got %s", CatalogNew, got)
	}
	if got := (Settings{}).CatalogMode(); got != CatalogAll {
		t.Errorf("expected %s, got %s", CatalogAll, got)
	}
}
