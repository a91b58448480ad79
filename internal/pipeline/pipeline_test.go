package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reddigest/internal/config"
	"reddigest/internal/store"
	"reddigest/internal/timewindow"
	"reddigest/pkg/digest"
	"reddigest/pkg/reddit"
)

type stubFetcher struct {
	batch *reddit.Batch
	err   error
}

func (f *stubFetcher) FetchAll(ctx context.Context, subs []string, w timewindow.Window) (*reddit.Batch, error) {
	return f.batch, f.err
}

type stubSummarizer struct {
	out string
	err error
}

func (s *stubSummarizer) Summarize(ctx context.Context, doc *digest.Document) (string, error) {
	return s.out, s.err
}

type stubStore struct {
	store.Store
	upserted []reddit.RawPost
	digests  []*store.Digest
}

func (s *stubStore) UpsertPosts(ctx context.Context, posts []reddit.RawPost) error {
	s.upserted = append(s.upserted, posts...)
	return nil
}

func (s *stubStore) SaveDigest(ctx context.Context, d *store.Digest) error {
	d.ID = int64(len(s.digests) + 1)
	s.digests = append(s.digests, d)
	return nil
}

func testBatch(w timewindow.Window) *reddit.Batch {
	mid := float64(w.Start.Add(w.Duration() / 2).Unix())
	return &reddit.Batch{
		Metadata: reddit.Metadata{
			StartTime:  w.Start,
			EndTime:    w.End,
			Subreddits: []string{"golang"},
			TotalPosts: 2,
		},
		Posts: []reddit.RawPost{
			{ID: "a", Title: "first", Subreddit: "golang", Score: 40, UpvoteRatio: 0.9, CreatedUTC: mid},
			{ID: "b", Title: "second", Subreddit: "golang", Score: 10, UpvoteRatio: 0.8, CreatedUTC: mid},
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func TestRunFullCycle(t *testing.T) {
	w := timewindow.Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	cfg := testConfig(t)
	st := &stubStore{}
	p := New(cfg, &stubFetcher{batch: testBatch(w)}, st, &stubSummarizer{out: "# digest"})

	res, err := p.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(st.upserted) != 2 {
		t.Errorf("upserted %d posts, want 2", len(st.upserted))
	}
	if len(res.Document.Posts) != 2 {
		t.Errorf("document has %d posts, want 2", len(res.Document.Posts))
	}
	if res.Summary != "# digest" {
		t.Errorf("summary = %q", res.Summary)
	}
	if res.DigestID != 1 || len(st.digests) != 1 {
		t.Errorf("digest record not saved: id=%d, saved=%d", res.DigestID, len(st.digests))
	}
	if st.digests[0].OutputCount != 2 || !st.digests[0].WindowStart.Equal(w.Start) {
		t.Errorf("digest record = %+v", st.digests[0])
	}

	// Artifacts land in the output dir.
	for _, name := range []string{"raw_posts.json", "processed_posts.json", "digest_20250101_20250108.md"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	var doc digest.Document
	data, _ := os.ReadFile(filepath.Join(cfg.Output.Dir, "processed_posts.json"))
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("processed_posts.json not valid JSON: %v", err)
	}
	if doc.Preprocessing.InputCount != 2 {
		t.Errorf("artifact report = %+v", doc.Preprocessing)
	}
}

func TestRunSummarizeFailureIsNonFatal(t *testing.T) {
	w := timewindow.Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	cfg := testConfig(t)
	p := New(cfg, &stubFetcher{batch: testBatch(w)}, nil, &stubSummarizer{err: errors.New("quota")})

	res, err := p.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary != "" {
		t.Errorf("summary = %q, want empty after failure", res.Summary)
	}
	if len(res.Document.Posts) != 2 {
		t.Errorf("ranked document should survive summarizer failure")
	}
}

func TestRunFetchFailure(t *testing.T) {
	w := timewindow.Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	p := New(testConfig(t), &stubFetcher{err: errors.New("rate limited")}, nil, nil)

	if _, err := p.Run(context.Background(), w); err == nil {
		t.Fatal("want error when fetch fails")
	}
}

func TestLoadBatch(t *testing.T) {
	w := timewindow.Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "raw_posts.json")
	if err := writeJSON(path, testBatch(w)); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}

	batch, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(batch.Posts) != 2 || batch.Posts[0].ID != "a" {
		t.Errorf("batch = %+v", batch)
	}

	if _, err := LoadBatch(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("want error for missing file")
	}
}
