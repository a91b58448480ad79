package digest

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"reddigest/pkg/reddit"
)

// Scoring formula constants.
const (
	engagementDivisor = 2
	commentsDivisor   = 3
)

// Content length bands. A post needs some substance to score well, but a
// wall of text scores lower than a substantial one.
const (
	contentVeryShort   = 50
	contentBrief       = 200
	contentGood        = 1000
	contentSubstantial = 3000
)

const (
	scoreVeryShort   = 0.3
	scoreBrief       = 0.5
	scoreGood        = 0.8
	scoreSubstantial = 1.0
	scoreWallOfText  = 0.7
)

// Selector scores, ranks, truncates, and trims a batch of canonical posts.
// It performs no I/O and never mutates the raw metrics of its input.
type Selector struct {
	opts Options
}

// NewSelector validates the options and returns a selector. Invalid options
// are a caller defect and fail the entire run.
func NewSelector(opts Options) (*Selector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Selector{opts: opts}, nil
}

// Select ranks posts by heuristic score over the start..end window and
// returns the top MaxPosts, trimmed for downstream size limits, plus the
// preprocessing report. Ties keep their input order, so repeated runs on the
// same batch produce identical output.
func (s *Selector) Select(posts []Post, start, end time.Time) ([]Post, Report) {
	medians := subredditMedians(posts)

	scored := make([]Post, len(posts))
	copy(scored, posts)
	for i := range scored {
		scored[i].HeuristicScore = s.heuristicScore(scored[i], medians[scored[i].Subreddit], start, end)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].HeuristicScore > scored[j].HeuristicScore
	})

	truncated := 0
	if s.opts.MaxPosts < len(scored) {
		truncated = len(scored) - s.opts.MaxPosts
		scored = scored[:s.opts.MaxPosts]
	}

	for i := range scored {
		s.trimPost(&scored[i])
	}

	return scored, Report{
		InputCount:       len(posts),
		OutputCount:      len(scored),
		TruncatedCount:   truncated,
		SubredditMedians: medians,
	}
}

// heuristicScore combines the five weighted sub-scores and maps the result
// into [1, 10], rounded to two decimals.
func (s *Selector) heuristicScore(p Post, median float64, start, end time.Time) float64 {
	w := s.opts.Weights

	sum := engagementScore(p.Score, median)*w.Engagement +
		commentsScore(p.NumComments)*w.Comments +
		recencyScore(p.CreatedAt, start, end)*w.Recency +
		contentScore(p.Selftext, p.Title)*w.Content +
		ratioScore(p.UpvoteRatio)*w.Ratio

	return math.Round((1+sum*9)*100) / 100
}

// engagementScore log-compresses the raw score and normalizes it against the
// subreddit median so one global weight stays meaningful across communities
// of very different size. 1x median = 0.5, 10x = ~0.75, 100x = ~1.0.
func engagementScore(score int, median float64) float64 {
	if score <= 0 {
		return 0
	}
	logScore := math.Log10(float64(score) + 1)
	logMedian := math.Log10(math.Max(median, 1) + 1)
	return math.Min(1, logScore/(logMedian+engagementDivisor))
}

// commentsScore rewards discussion with diminishing returns: 10 comments =
// ~0.5, 100 = ~0.75, 1000 = ~0.9.
func commentsScore(numComments int) float64 {
	if numComments <= 0 {
		return 0
	}
	return math.Min(1, math.Log10(float64(numComments)+1)/commentsDivisor)
}

// recencyScore is the linear position of the creation time inside the
// window, clamped at both ends. Posts fetched outside the window are clamped
// rather than rejected; window filtering is the fetcher's concern.
func recencyScore(created, start, end time.Time) float64 {
	window := end.Sub(start).Seconds()
	if window <= 0 {
		return 0.5
	}
	frac := created.Sub(start).Seconds() / window
	return math.Max(0, math.Min(1, frac))
}

// contentScore steps over the combined title+selftext length in characters.
func contentScore(selftext, title string) float64 {
	total := utf8.RuneCountInString(selftext) + utf8.RuneCountInString(title)

	switch {
	case total < contentVeryShort:
		return scoreVeryShort
	case total < contentBrief:
		return scoreBrief
	case total < contentGood:
		return scoreGood
	case total < contentSubstantial:
		return scoreSubstantial
	default:
		return scoreWallOfText
	}
}

// ratioScore maps upvote ratio 50% -> 0, 75% -> 0.5, 100% -> 1. Below-neutral
// approval never boosts a post.
func ratioScore(upvoteRatio float64) float64 {
	return math.Max(0, (upvoteRatio-0.5)*2)
}

// subredditMedians computes the median raw score per subreddit over the full
// batch. It runs once per batch, before any selection, so normalization does
// not depend on processing order. Zero posts yield an empty map.
func subredditMedians(posts []Post) map[string]float64 {
	bySub := make(map[string][]int)
	for _, p := range posts {
		bySub[p.Subreddit] = append(bySub[p.Subreddit], p.Score)
	}

	medians := make(map[string]float64, len(bySub))
	for sub, scores := range bySub {
		medians[sub] = median(scores)
	}
	return medians
}

func median(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	s := append([]int(nil), scores...)
	sort.Ints(s)
	n := len(s)
	if n%2 == 1 {
		return float64(s[n/2])
	}
	return float64(s[n/2-1]+s[n/2]) / 2
}

// trimPost truncates the selftext and keeps only the top-K comments by
// descending score (ties keep fetch order), with truncated bodies. The kept
// comments are copies; the post's original comment list is untouched.
func (s *Selector) trimPost(p *Post) {
	p.Selftext = truncateRunes(p.Selftext, s.opts.MaxSelftext)

	top := make([]Comment, len(p.Comments))
	copy(top, p.Comments)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Score > top[j].Score
	})
	if s.opts.TopComments < len(top) {
		top = top[:s.opts.TopComments]
	}
	for i := range top {
		top[i].Body = truncateRunes(top[i].Body, s.opts.MaxCommentBody)
	}
	p.TopComments = top
	// The full comment list stays behind; only the trimmed top-K ships.
	p.Comments = nil
}

// truncateRunes cuts on character boundaries so multi-byte text is never
// garbled. Truncated strings get an ellipsis marker.
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// Process runs the full normalize -> score -> select pipeline over one fetch
// batch and assembles the document handed to the summarizer.
func Process(batch *reddit.Batch, opts Options, now time.Time) (*Document, error) {
	selector, err := NewSelector(opts)
	if err != nil {
		return nil, err
	}

	posts, droppedPosts := Normalize(batch.Posts)
	ranked, report := selector.Select(posts, batch.Metadata.StartTime, batch.Metadata.EndTime)

	report.InputCount = len(batch.Posts)
	report.FilteredCount = droppedPosts

	return &Document{
		Metadata:       batch.Metadata,
		PreprocessedAt: now.UTC(),
		Posts:          ranked,
		Preprocessing:  report,
	}, nil
}
