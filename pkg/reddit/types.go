package reddit

import "time"

// RawPost is a fetched post record of unknown completeness. Fields mirror
// Reddit's listing JSON; anything the API omits stays at its zero value and
// is defaulted later by the normalizer.
type RawPost struct {
	ID          string       `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Author      string       `json:"author" db:"author"`
	Subreddit   string       `json:"subreddit" db:"subreddit"`
	Score       int          `json:"score" db:"score"`
	UpvoteRatio float64      `json:"upvote_ratio" db:"upvote_ratio"`
	NumComments int          `json:"num_comments" db:"num_comments"`
	CreatedUTC  float64      `json:"created_utc" db:"created_utc"`
	URL         string       `json:"url" db:"url"`
	Permalink   string       `json:"permalink" db:"permalink"`
	Selftext    string       `json:"selftext" db:"selftext"`
	IsSelf      bool         `json:"is_self" db:"is_self"`
	LinkFlair   string       `json:"link_flair_text" db:"link_flair"`
	Comments    []RawComment `json:"comments" db:"-"`

	CommentsJSON string    `json:"-" db:"comments"`
	FetchedAt    time.Time `json:"-" db:"fetched_at"`
}

// RawComment is a fetched comment record nested under a RawPost.
type RawComment struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// CreatedAt converts the Unix creation timestamp to UTC.
func (p RawPost) CreatedAt() time.Time {
	return time.Unix(int64(p.CreatedUTC), 0).UTC()
}

// CreatedAt converts the Unix creation timestamp to UTC.
func (c RawComment) CreatedAt() time.Time {
	return time.Unix(int64(c.CreatedUTC), 0).UTC()
}

// Metadata describes one fetch run.
type Metadata struct {
	FetchTime     time.Time `json:"fetch_time"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Subreddits    []string  `json:"subreddits"`
	TotalPosts    int       `json:"total_posts"`
	Authenticated bool      `json:"authenticated"`
}

// Batch is the fetch artifact: run metadata plus all raw posts, sorted by
// score descending.
type Batch struct {
	Metadata Metadata  `json:"metadata"`
	Posts    []RawPost `json:"posts"`
}
