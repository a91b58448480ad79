package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"reddigest/internal/config"
	"reddigest/internal/pipeline"
	"reddigest/internal/scheduler"
	"reddigest/internal/store"
	"reddigest/internal/timewindow"
	"reddigest/pkg/digest"
	"reddigest/pkg/reddit"
	"reddigest/pkg/server"
	"reddigest/pkg/summarize"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	return cfg, nil
}

func buildClient(cfg *config.Config) *reddit.Client {
	return reddit.NewClient(reddit.ClientConfig{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
		MaxPosts:     cfg.Fetch.MaxPostsPerSubreddit,
		MaxComments:  cfg.Fetch.MaxCommentsPerPost,
		MinScore:     cfg.Fetch.MinScore,
		Delay:        cfg.Fetch.ParseRateLimitDelay(),
	})
}

func buildSummarizer(cfg *config.Config) pipeline.Summarizer {
	if !cfg.LLM.Enabled || cfg.LLM.APIKey == "" {
		return nil
	}
	fmt.Fprintf(os.Stderr, "summarizer: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	return summarize.New(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func buildPipeline(cfg *config.Config, db store.Store) *pipeline.Pipeline {
	return pipeline.New(cfg, buildClient(cfg), db, buildSummarizer(cfg))
}

func resolveWindow(cfg *config.Config, start, end string, days int) (timewindow.Window, error) {
	if start == "" {
		start = cfg.TimeWindow.Start
	}
	if end == "" {
		end = cfg.TimeWindow.End
	}
	if days == 0 {
		days = cfg.TimeWindow.DefaultDays
	}
	return timewindow.Resolve(start, end, days, time.Now().UTC())
}

func runFetch(subreddits []string, start, end string, days int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(subreddits) > 0 {
		cfg.Reddit.Subreddits = subreddits
	}

	w, err := resolveWindow(cfg, start, end, days)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	batch, err := buildClient(cfg).FetchAll(ctx, cfg.Reddit.Subreddits, w)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if err := db.UpsertPosts(ctx, batch.Posts); err != nil {
		return fmt.Errorf("persist posts: %w", err)
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(cfg.Output.Dir, "raw_posts.json")
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(os.Stderr, "fetched %d posts (window %s) -> %s\n", len(batch.Posts), w, path)
	return nil
}

func runPreprocess(input string, maxPosts int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if maxPosts > 0 {
		cfg.Digest.MaxPosts = maxPosts
	}
	if input == "" {
		input = filepath.Join(cfg.Output.Dir, "raw_posts.json")
	}

	batch, err := pipeline.LoadBatch(input)
	if err != nil {
		return err
	}

	doc, err := digest.Process(batch, cfg.SelectorOptions(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}

	path := filepath.Join(cfg.Output.Dir, "processed_posts.json")
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	rep := doc.Preprocessing
	fmt.Fprintf(os.Stderr, "selected %d/%d posts (%d filtered, %d over cap) -> %s\n",
		rep.OutputCount, rep.InputCount, rep.FilteredCount, rep.TruncatedCount, path)
	return nil
}

func runDigest(start, end string, days int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	w, err := resolveWindow(cfg, start, end, days)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	res, err := buildPipeline(cfg, db).Run(context.Background(), w)
	if err != nil {
		return err
	}

	if res.Summary != "" {
		fmt.Println(res.Summary)
	}
	return nil
}

func runWindow(start, end string, days int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	w, err := resolveWindow(cfg, start, end, days)
	if err != nil {
		return err
	}

	fmt.Printf("window:   %s\n", w)
	fmt.Printf("start:    %s\n", w.Start.Format(time.RFC3339))
	fmt.Printf("end:      %s\n", w.End.Format(time.RFC3339))
	fmt.Printf("duration: %s\n", w.Duration())
	return nil
}

func runPosts(jsonOutput bool, subreddit string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	posts, err := db.ListPosts(context.Background(), store.ListOpts{
		Subreddit: subreddit,
		Limit:     limit,
	})
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(posts)
	}

	if len(posts) == 0 {
		fmt.Println("no posts stored (try fetching first: reddigest fetch)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tCOMMENTS\tSUBREDDIT\tTITLE\tCREATED")
	for _, p := range posts {
		fmt.Fprintf(w, "%d\t%d\tr/%s\t%s\t%s\n",
			p.Score, p.NumComments, p.Subreddit, p.Title,
			p.CreatedAt().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	srv := server.New(db, buildPipeline(cfg, db), cfg.TimeWindow.DefaultDays, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipe := buildPipeline(cfg, db)

	if cfg.Schedule.Enabled {
		sched := scheduler.New(pipe, cfg.Schedule.Cron, cfg.TimeWindow.DefaultDays, true)
		go func() {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	srv := server.New(db, pipe, cfg.TimeWindow.DefaultDays, port)
	return srv.ListenAndServe()
}
