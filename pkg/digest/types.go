package digest

import (
	"fmt"
	"math"
	"time"

	"reddigest/pkg/reddit"
)

// Comment is the canonical comment shape used for scoring and output.
type Comment struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is the canonical post shape after normalization. Raw metrics are
// never mutated after normalization; the selector only fills the derived
// fields and reorders the collection.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subreddit   string    `json:"subreddit"`
	Author      string    `json:"author"`
	Permalink   string    `json:"permalink"`
	Selftext    string    `json:"selftext"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	CreatedAt   time.Time `json:"created_at"`
	Comments    []Comment `json:"comments,omitempty"`

	// Derived by Selector.Select.
	HeuristicScore float64   `json:"heuristic_score,omitempty"`
	TopComments    []Comment `json:"top_comments,omitempty"`
}

// Weights are the relative contributions of the five sub-scores. They are
// designed to sum to 1 but are not required to.
type Weights struct {
	Engagement float64 `yaml:"engagement_weight" json:"engagement_weight"`
	Comments   float64 `yaml:"comments_weight" json:"comments_weight"`
	Recency    float64 `yaml:"recency_weight" json:"recency_weight"`
	Content    float64 `yaml:"content_weight" json:"content_weight"`
	Ratio      float64 `yaml:"ratio_weight" json:"ratio_weight"`
}

// DefaultWeights returns the standard weighting: engagement 30%, comments
// 25%, recency 20%, content 15%, upvote ratio 10%.
func DefaultWeights() Weights {
	return Weights{
		Engagement: 0.30,
		Comments:   0.25,
		Recency:    0.20,
		Content:    0.15,
		Ratio:      0.10,
	}
}

// Options is the single configuration value object for the selector. Every
// default is enumerated in DefaultOptions.
type Options struct {
	Weights        Weights
	MaxPosts       int // ranked posts to keep
	MaxSelftext    int // selftext character cap after selection
	MaxCommentBody int // comment body character cap after selection
	TopComments    int // comments kept per post
}

// DefaultOptions returns the documented fallback values.
func DefaultOptions() Options {
	return Options{
		Weights:        DefaultWeights(),
		MaxPosts:       50,
		MaxSelftext:    500,
		MaxCommentBody: 300,
		TopComments:    5,
	}
}

// Validate reports configuration defects that invalidate an entire run.
// These fail fast before any scoring begins.
func (o Options) Validate() error {
	if o.MaxPosts < 0 {
		return fmt.Errorf("max posts must not be negative, got %d", o.MaxPosts)
	}
	if o.MaxSelftext < 0 || o.MaxCommentBody < 0 {
		return fmt.Errorf("truncation caps must not be negative, got selftext %d, comment %d",
			o.MaxSelftext, o.MaxCommentBody)
	}
	if o.TopComments < 0 {
		return fmt.Errorf("top comments cap must not be negative, got %d", o.TopComments)
	}

	for name, w := range map[string]float64{
		"engagement": o.Weights.Engagement,
		"comments":   o.Weights.Comments,
		"recency":    o.Weights.Recency,
		"content":    o.Weights.Content,
		"ratio":      o.Weights.Ratio,
	} {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%s weight is not a finite number", name)
		}
		if w < 0 {
			return fmt.Errorf("%s weight must not be negative, got %v", name, w)
		}
	}

	sum := o.Weights.Engagement + o.Weights.Comments + o.Weights.Recency +
		o.Weights.Content + o.Weights.Ratio
	if sum == 0 {
		return fmt.Errorf("at least one scoring weight must be positive")
	}
	return nil
}

// Report is the aggregate preprocessing result. FilteredCount counts records
// dropped during normalization; posts cut by the MaxPosts truncation are
// counted separately.
type Report struct {
	InputCount       int                `json:"input_count"`
	OutputCount      int                `json:"output_count"`
	FilteredCount    int                `json:"filtered_count"`
	TruncatedCount   int                `json:"truncated_count"`
	SubredditMedians map[string]float64 `json:"subreddit_medians"`
}

// Document is the artifact handed to the summarization consumer.
type Document struct {
	Metadata       reddit.Metadata `json:"metadata"`
	PreprocessedAt time.Time       `json:"preprocessed_at"`
	Posts          []Post          `json:"posts"`
	Preprocessing  Report          `json:"preprocessing"`
}
