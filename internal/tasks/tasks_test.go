package tasks

import (
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/podd/internal/models"
)

func TestNormalizeOrder(t *testing.T) {
	d := func(day int) time.Time { return baseDate.AddDate(0, 0, day) }

	tc := []struct {
		name  string
		input []models.Entry
		want  []string
	}{
		{name: "empty", input: nil, want: []string{}},
		{name: "single", input: []models.Entry{{ID: "a", Published: d(0)}}, want: []string{"a"}},
		{name: "oldest first kept", input: []models.Entry{{ID: "a", Published: d(0)}, {ID: "b", Published: d(1)}, {ID: "c", Published: d(2)}}, want: []string{"a", "b", "c"}},
		{name: "newest first reversed", input: []models.Entry{{ID: "c", Published: d(2)}, {ID: "b", Published: d(1)}, {ID: "a", Published: d(0)}}, want: []string{"a", "b", "c"}},
		{name: "undated kept", input: []models.Entry{{ID: "x"}, {ID: "y"}}, want: []string{"x", "y"}},
		{name: "missing last date kept", input: []models.Entry{{ID: "b", Published: d(1)}, {ID: "a"}}, want: []string{"b", "a"}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeOrder(tt.input)
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			if !slices.Equal(ids, tt.want) {
				t.Errorf("NormalizeOrder() = %v, want %v", ids, tt.want)
			}
		})
	}

	t.Run("does not mutate input", func(t *testing.T) {
		in := []models.Entry{{ID: "b", Published: d(1)}, {ID: "a", Published: d(0)}}
		NormalizeOrder(in)
		if in[0].ID != "b" {
			t.Error("input slice was reordered")
		}
	})
}

func TestReconciler(t *testing.T) {
	t.Run("Initial Sync New Only", func(t *testing.T) {
		store := setupTestStore(t, true)
		p := createPodcast(t, store, "show")

		res, err := NewReconciler(store).Reconcile(p, feedOf("show", entries("1", "2", "3")), ReconcileOpts{})
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if !res.Initial || res.Persisted != 3 || len(res.Intents) != 0 {
			t.Errorf("expected initial sync to record 3 and offer 0, got %+v", res)
		}
		if n, _ := store.Episodes.Count(p.ID); n != 3 {
			t.Errorf("expected 3 recorded episodes, got %d", n)
		}
	})

	t.Run("Initial Sync Catalog", func(t *testing.T) {
		store := setupTestStore(t, false)
		p := createPodcast(t, store, "show")

		res, err := NewReconciler(store).Reconcile(p, feedOf("show", entries("1", "2", "3")), ReconcileOpts{})
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if got := intentIDs(res.Intents); !slices.Equal(got, []string{"1", "2", "3"}) {
			t.Errorf("expected every entry offered oldest-first, got %v", got)
		}
		in := res.Intents[0]
		if in.PodcastID != p.ID || in.Directory != p.Directory || in.EnclosureURL == "" {
			t.Errorf("intent not populated from podcast and entry: %+v", in)
		}
	})

	t.Run("Subsequent Sync Ignores New Only", func(t *testing.T) {
		for _, newOnly := range []bool{true, false} {
			store := setupTestStore(t, newOnly)
			p := createPodcast(t, store, "show")
			if _, _, err := store.Episodes.AddMany(p.ID, []string{"1", "2"}); err != nil {
				t.Fatalf("failed to seed ledger: %v", err)
			}

			res, err := NewReconciler(store).Reconcile(p, feedOf("show", entries("1", "2", "3", "4")), ReconcileOpts{})
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if res.Initial {
				t.Error("sync with recorded episodes is not initial")
			}
			if got := intentIDs(res.Intents); !slices.Equal(got, []string{"3", "4"}) {
				t.Errorf("new_only=%v: expected [3 4], got %v", newOnly, got)
			}
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		store := setupTestStore(t, false)
		p := createPodcast(t, store, "show")
		r := NewReconciler(store)
		feed := feedOf("show", entries("1", "2"))

		if _, err := r.Reconcile(p, feed, ReconcileOpts{}); err != nil {
			t.Fatalf("first Reconcile() error = %v", err)
		}
		res, err := r.Reconcile(p, feed, ReconcileOpts{})
		if err != nil {
			t.Fatalf("second Reconcile() error = %v", err)
		}
		if res.Persisted != 0 || len(res.Intents) != 0 {
			t.Errorf("reconciling the same feed twice must be a no-op, got %+v", res)
		}
		if n, _ := store.Episodes.Count(p.ID); n != 2 {
			t.Errorf("expected 2 recorded episodes, got %d", n)
		}
	})

	t.Run("Newest First Feed", func(t *testing.T) {
		store := setupTestStore(t, false)
		p := createPodcast(t, store, "show")
		es := entries("1", "2", "3")
		slices.Reverse(es)

		res, err := NewReconciler(store).Reconcile(p, feedOf("show", es), ReconcileOpts{})
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if got := intentIDs(res.Intents); !slices.Equal(got, []string{"1", "2", "3"}) {
			t.Errorf("expected oldest-first intents, got %v", got)
		}
	})

	t.Run("Missing And Duplicate Identifiers", func(t *testing.T) {
		store := setupTestStore(t, false)
		p := createPodcast(t, store, "show")
		es := entries("1", "", "2", "1")

		res, err := NewReconciler(store).Reconcile(p, feedOf("show", es), ReconcileOpts{})
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if res.Skipped != 1 {
			t.Errorf("expected 1 skipped entry, got %d", res.Skipped)
		}
		if got := intentIDs(res.Intents); !slices.Equal(got, []string{"1", "2"}) {
			t.Errorf("duplicates should collapse to one intent, got %v", got)
		}
	})

	t.Run("Since Cutoff", func(t *testing.T) {
		store := setupTestStore(t, false)
		p := createPodcast(t, store, "show")
		es := append(entries("1", "2", "3"), models.Entry{ID: "undated", Title: "Undated"})

		res, err := NewReconciler(store).Reconcile(p, feedOf("show", es), ReconcileOpts{Since: baseDate.AddDate(0, 0, 1)})
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if got := intentIDs(res.Intents); !slices.Equal(got, []string{"2", "3", "undated"}) {
			t.Errorf("expected entries on or after the cutoff, got %v", got)
		}
		if res.Withheld != 1 || res.Persisted != 4 {
			t.Errorf("withheld entries must still be recorded, got %+v", res)
		}
	})

	t.Run("Last Sync Recorded", func(t *testing.T) {
		store := setupTestStore(t, true)
		p := createPodcast(t, store, "show")
		r := NewReconciler(store)
		at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		r.now = func() time.Time { return at }

		if _, err := r.Reconcile(p, feedOf("show", entries("1")), ReconcileOpts{}); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		got, err := store.Podcasts.Get(p.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.LastSync == nil || !got.LastSync.Equal(at) {
			t.Errorf("expected last sync %v, got %v", at, got.LastSync)
		}
	})
}
