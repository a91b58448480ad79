package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"reddigest/pkg/reddit"
)

// Digest is one stored pipeline run.
type Digest struct {
	ID            int64     `db:"id" json:"id"`
	WindowStart   time.Time `db:"window_start" json:"window_start"`
	WindowEnd     time.Time `db:"window_end" json:"window_end"`
	InputCount    int       `db:"input_count" json:"input_count"`
	OutputCount   int       `db:"output_count" json:"output_count"`
	FilteredCount int       `db:"filtered_count" json:"filtered_count"`
	MediansJSON   string    `db:"medians" json:"-"`
	Summary       string    `db:"summary" json:"summary"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	Medians map[string]float64 `db:"-" json:"medians"`
}

// ListOpts controls post listing.
type ListOpts struct {
	Subreddit string
	Since     time.Time
	Limit     int
}

// Store is the persistence interface.
type Store interface {
	UpsertPosts(ctx context.Context, posts []reddit.RawPost) error
	ListPosts(ctx context.Context, opts ListOpts) ([]reddit.RawPost, error)
	CountPostsBySubreddit(ctx context.Context) (map[string]int, error)

	SaveDigest(ctx context.Context, d *Digest) error
	ListDigests(ctx context.Context, limit int) ([]Digest, error)
	LatestDigest(ctx context.Context) (*Digest, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertPosts(ctx context.Context, posts []reddit.RawPost) error {
	for i := range posts {
		if err := s.upsertPost(ctx, &posts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) upsertPost(ctx context.Context, p *reddit.RawPost) error {
	commentsJSON, _ := json.Marshal(p.Comments)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, author, subreddit, score, upvote_ratio, num_comments, created_utc, url, permalink, selftext, is_self, link_flair, comments, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			score = excluded.score,
			upvote_ratio = excluded.upvote_ratio,
			num_comments = excluded.num_comments,
			comments = excluded.comments,
			fetched_at = excluded.fetched_at
	`, p.ID, p.Title, p.Author, p.Subreddit, p.Score, p.UpvoteRatio, p.NumComments,
		p.CreatedUTC, p.URL, p.Permalink, p.Selftext, p.IsSelf, p.LinkFlair,
		string(commentsJSON), p.FetchedAt)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context, opts ListOpts) ([]reddit.RawPost, error) {
	query := "SELECT * FROM posts WHERE 1=1"
	var args []any

	if opts.Subreddit != "" {
		query += " AND subreddit = ?"
		args = append(args, opts.Subreddit)
	}
	if !opts.Since.IsZero() {
		query += " AND fetched_at >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY score DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var posts []reddit.RawPost
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	for i := range posts {
		json.Unmarshal([]byte(posts[i].CommentsJSON), &posts[i].Comments)
	}
	return posts, nil
}

func (s *SQLiteStore) CountPostsBySubreddit(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT subreddit, COUNT(*) as cnt FROM posts GROUP BY subreddit")
	if err != nil {
		return nil, fmt.Errorf("count posts by subreddit: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sub string
		var cnt int
		if err := rows.Scan(&sub, &cnt); err != nil {
			return nil, err
		}
		counts[sub] = cnt
	}
	return counts, nil
}

func (s *SQLiteStore) SaveDigest(ctx context.Context, d *Digest) error {
	mediansJSON, _ := json.Marshal(d.Medians)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO digests (window_start, window_end, input_count, output_count, filtered_count, medians, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.WindowStart, d.WindowEnd, d.InputCount, d.OutputCount, d.FilteredCount,
		string(mediansJSON), d.Summary, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert digest: %w", err)
	}
	d.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListDigests(ctx context.Context, limit int) ([]Digest, error) {
	if limit <= 0 {
		limit = 20
	}

	var digests []Digest
	err := s.db.SelectContext(ctx, &digests,
		"SELECT * FROM digests ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list digests: %w", err)
	}

	for i := range digests {
		json.Unmarshal([]byte(digests[i].MediansJSON), &digests[i].Medians)
	}
	return digests, nil
}

func (s *SQLiteStore) LatestDigest(ctx context.Context) (*Digest, error) {
	var d Digest
	err := s.db.GetContext(ctx, &d,
		"SELECT * FROM digests ORDER BY created_at DESC, id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest digest: %w", err)
	}
	json.Unmarshal([]byte(d.MediansJSON), &d.Medians)
	return &d, nil
}
