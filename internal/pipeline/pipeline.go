// Package pipeline runs one end-to-end digest cycle: fetch raw posts, persist
// them, rank and trim, optionally summarize, and record the run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reddigest/internal/config"
	"reddigest/internal/store"
	"reddigest/internal/timewindow"
	"reddigest/pkg/digest"
	"reddigest/pkg/reddit"
)

// Fetcher pulls raw posts for a set of subreddits within a window.
type Fetcher interface {
	FetchAll(ctx context.Context, subreddits []string, w timewindow.Window) (*reddit.Batch, error)
}

// Summarizer turns a ranked document into digest text.
type Summarizer interface {
	Summarize(ctx context.Context, doc *digest.Document) (string, error)
}

// Result is everything one run produced.
type Result struct {
	Batch    *reddit.Batch
	Document *digest.Document
	Summary  string
	DigestID int64
}

// Pipeline wires the stages together. Store and Summarizer may be nil; the
// corresponding stages are skipped.
type Pipeline struct {
	cfg        *config.Config
	fetcher    Fetcher
	store      store.Store
	summarizer Summarizer
}

func New(cfg *config.Config, fetcher Fetcher, st store.Store, summarizer Summarizer) *Pipeline {
	return &Pipeline{cfg: cfg, fetcher: fetcher, store: st, summarizer: summarizer}
}

// Run executes a full cycle over the given window and writes run artifacts to
// the configured output directory.
func (p *Pipeline) Run(ctx context.Context, w timewindow.Window) (*Result, error) {
	fmt.Fprintf(os.Stderr, "[pipeline] run started, window %s\n", w)

	batch, err := p.fetcher.FetchAll(ctx, p.cfg.Reddit.Subreddits, w)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	fmt.Fprintf(os.Stderr, "[pipeline] fetched %d posts from %d subreddits\n",
		len(batch.Posts), len(p.cfg.Reddit.Subreddits))

	if p.store != nil {
		if err := p.store.UpsertPosts(ctx, batch.Posts); err != nil {
			return nil, fmt.Errorf("persist posts: %w", err)
		}
	}

	doc, err := digest.Process(batch, p.cfg.SelectorOptions(), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("preprocess posts: %w", err)
	}
	rep := doc.Preprocessing
	fmt.Fprintf(os.Stderr, "[pipeline] selected %d/%d posts (%d filtered, %d over cap)\n",
		rep.OutputCount, rep.InputCount, rep.FilteredCount, rep.TruncatedCount)

	res := &Result{Batch: batch, Document: doc}

	if p.summarizer != nil && len(doc.Posts) > 0 {
		summary, err := p.summarizer.Summarize(ctx, doc)
		if err != nil {
			// A failed summary does not invalidate the ranked document.
			fmt.Fprintf(os.Stderr, "[pipeline] summarize failed: %v\n", err)
		} else {
			res.Summary = summary
		}
	}

	if err := p.writeArtifacts(res, w); err != nil {
		return nil, err
	}

	if p.store != nil {
		rec := &store.Digest{
			WindowStart:   w.Start,
			WindowEnd:     w.End,
			InputCount:    rep.InputCount,
			OutputCount:   rep.OutputCount,
			FilteredCount: rep.FilteredCount,
			Medians:       rep.SubredditMedians,
			Summary:       res.Summary,
			CreatedAt:     time.Now().UTC(),
		}
		if err := p.store.SaveDigest(ctx, rec); err != nil {
			return nil, fmt.Errorf("save digest record: %w", err)
		}
		res.DigestID = rec.ID
	}

	fmt.Fprintf(os.Stderr, "[pipeline] run complete\n")
	return res, nil
}

// writeArtifacts mirrors each stage to disk so runs can be inspected and
// replayed.
func (p *Pipeline) writeArtifacts(res *Result, w timewindow.Window) error {
	dir := p.cfg.Output.Dir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	if err := writeJSON(filepath.Join(dir, "raw_posts.json"), res.Batch); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "processed_posts.json"), res.Document); err != nil {
		return err
	}
	if res.Summary != "" {
		name := fmt.Sprintf("digest_%s_%s.md",
			w.Start.Format("20060102"), w.End.Format("20060102"))
		if err := os.WriteFile(filepath.Join(dir, name), []byte(res.Summary), 0o644); err != nil {
			return fmt.Errorf("write digest %s: %w", name, err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadBatch reads a previously written raw_posts.json so preprocessing can be
// re-run without refetching.
func LoadBatch(path string) (*reddit.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", path, err)
	}
	var batch reddit.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", path, err)
	}
	return &batch, nil
}
