package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reddigest/pkg/reddit"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndListPosts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	posts := []reddit.RawPost{
		{ID: "a", Title: "one", Subreddit: "golang", Score: 10, FetchedAt: now,
			Comments: []reddit.RawComment{{ID: "c1", Author: "u", Body: "hi", Score: 2}}},
		{ID: "b", Title: "two", Subreddit: "rust", Score: 50, FetchedAt: now},
	}
	if err := s.UpsertPosts(ctx, posts); err != nil {
		t.Fatalf("UpsertPosts: %v", err)
	}

	// Re-upsert with a new score; count must not grow.
	posts[0].Score = 99
	if err := s.UpsertPosts(ctx, posts[:1]); err != nil {
		t.Fatalf("UpsertPosts update: %v", err)
	}

	got, err := s.ListPosts(ctx, ListOpts{})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d posts, want 2", len(got))
	}
	if got[0].ID != "a" || got[0].Score != 99 {
		t.Errorf("top post = %s score %d, want a with updated score 99", got[0].ID, got[0].Score)
	}
	if len(got[0].Comments) != 1 || got[0].Comments[0].Body != "hi" {
		t.Errorf("comments did not survive the roundtrip: %+v", got[0].Comments)
	}

	bySub, err := s.ListPosts(ctx, ListOpts{Subreddit: "rust"})
	if err != nil {
		t.Fatalf("ListPosts by subreddit: %v", err)
	}
	if len(bySub) != 1 || bySub[0].ID != "b" {
		t.Errorf("rust posts = %+v", bySub)
	}

	counts, err := s.CountPostsBySubreddit(ctx)
	if err != nil {
		t.Fatalf("CountPostsBySubreddit: %v", err)
	}
	if counts["golang"] != 1 || counts["rust"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestDigestRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	latest, err := s.LatestDigest(ctx)
	if err != nil {
		t.Fatalf("LatestDigest on empty store: %v", err)
	}
	if latest != nil {
		t.Fatalf("latest = %+v, want nil on empty store", latest)
	}

	now := time.Now().UTC().Truncate(time.Second)
	d := &Digest{
		WindowStart:   now.Add(-7 * 24 * time.Hour),
		WindowEnd:     now,
		InputCount:    120,
		OutputCount:   50,
		FilteredCount: 3,
		Medians:       map[string]float64{"golang": 12.5},
		Summary:       "weekly digest",
		CreatedAt:     now,
	}
	if err := s.SaveDigest(ctx, d); err != nil {
		t.Fatalf("SaveDigest: %v", err)
	}
	if d.ID == 0 {
		t.Error("SaveDigest did not set the row id")
	}

	latest, err = s.LatestDigest(ctx)
	if err != nil {
		t.Fatalf("LatestDigest: %v", err)
	}
	if latest.OutputCount != 50 || latest.Medians["golang"] != 12.5 {
		t.Errorf("latest = %+v", latest)
	}

	all, err := s.ListDigests(ctx, 10)
	if err != nil {
		t.Fatalf("ListDigests: %v", err)
	}
	if len(all) != 1 || all[0].Summary != "weekly digest" {
		t.Errorf("digests = %+v", all)
	}
}
