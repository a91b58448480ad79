package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"reddigest/internal/timewindow"
)

const (
	defaultAuthURL   = "https://www.reddit.com"
	defaultOAuthURL  = "https://oauth.reddit.com"
	defaultPublicURL = "https://www.reddit.com"
)

// listings fetched per subreddit, in order, for coverage beyond any single
// sort.
var listings = []string{"new", "hot", "top"}

// ClientConfig bounds one fetch run.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	MaxPosts     int           // per subreddit
	MaxComments  int           // per post
	MinScore     int           // fetch-time popularity floor
	Delay        time.Duration // pause between API calls
}

// Client fetches posts and comments from Reddit. With credentials it uses
// the OAuth API; without, the public JSON endpoints (more restrictive rate
// limits, no comment fetching). The RSS feed is a last-resort fallback when
// a listing request fails.
type Client struct {
	client *http.Client
	cfg    ClientConfig

	authURL   string
	oauthURL  string
	publicURL string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a fetch client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "reddigest/1.0"
	}
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = 50
	}
	if cfg.MaxComments <= 0 {
		cfg.MaxComments = 20
	}
	return &Client{
		client:    &http.Client{Timeout: 30 * time.Second},
		cfg:       cfg,
		authURL:   defaultAuthURL,
		oauthURL:  defaultOAuthURL,
		publicURL: defaultPublicURL,
	}
}

// Authenticated reports whether API credentials are configured.
func (c *Client) Authenticated() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// FetchAll fetches posts from every subreddit within the window and returns
// the batch artifact, sorted by score descending. Per-subreddit failures are
// logged and skipped; the batch is never fatal because of one community.
func (c *Client) FetchAll(ctx context.Context, subreddits []string, w timewindow.Window) (*Batch, error) {
	if c.Authenticated() {
		if err := c.authenticate(ctx); err != nil {
			return nil, fmt.Errorf("reddit auth: %w", err)
		}
	}

	var all []RawPost
	for i, sub := range subreddits {
		fmt.Fprintf(os.Stderr, "[%d/%d] fetching r/%s...\n", i+1, len(subreddits), sub)
		posts, err := c.fetchSubreddit(ctx, sub, w)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  r/%s error: %v\n", sub, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  found %d posts\n", len(posts))
		all = append(all, posts...)

		if i < len(subreddits)-1 {
			if err := c.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	sortByScore(all)

	return &Batch{
		Metadata: Metadata{
			FetchTime:     time.Now().UTC(),
			StartTime:     w.Start,
			EndTime:       w.End,
			Subreddits:    subreddits,
			TotalPosts:    len(all),
			Authenticated: c.Authenticated(),
		},
		Posts: all,
	}, nil
}

func (c *Client) authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	data := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authURL+"/api/v1/access_token",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}

	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reddit token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit auth status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("decode reddit token: %w", err)
	}

	c.token = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	return nil
}

func (c *Client) fetchSubreddit(ctx context.Context, subreddit string, w timewindow.Window) ([]RawPost, error) {
	var posts []RawPost
	seen := make(map[string]bool)

	for _, listing := range listings {
		children, err := c.fetchListing(ctx, subreddit, listing)
		if err != nil {
			if len(posts) == 0 {
				fmt.Fprintf(os.Stderr, "  r/%s/%s error: %v, trying rss fallback\n", subreddit, listing, err)
				return c.fetchRSS(ctx, subreddit, w)
			}
			fmt.Fprintf(os.Stderr, "  r/%s/%s error: %v\n", subreddit, listing, err)
			continue
		}

		for _, post := range children {
			if post.ID == "" || seen[post.ID] {
				continue
			}
			seen[post.ID] = true

			if post.Stickied {
				continue
			}
			if !w.Contains(time.Unix(int64(post.CreatedUTC), 0).UTC()) {
				continue
			}
			if post.Score < c.cfg.MinScore {
				continue
			}

			raw := post.toRaw(subreddit)
			if c.Authenticated() {
				comments, err := c.fetchComments(ctx, subreddit, post.ID)
				if err != nil {
					fmt.Fprintf(os.Stderr, "  warning: comments for %s: %v\n", post.ID, err)
				}
				raw.Comments = comments
			}
			posts = append(posts, raw)

			if len(posts) >= c.cfg.MaxPosts {
				return posts, nil
			}
		}

		if err := c.pause(ctx); err != nil {
			return posts, err
		}
	}

	return posts, nil
}

func (c *Client) fetchListing(ctx context.Context, subreddit, listing string) ([]listingPost, error) {
	var reqURL string
	if c.Authenticated() {
		reqURL = fmt.Sprintf("%s/r/%s/%s.json?limit=%d", c.oauthURL, subreddit, listing, min(100, c.cfg.MaxPosts))
	} else {
		reqURL = fmt.Sprintf("%s/r/%s/%s.json?limit=%d", c.publicURL, subreddit, listing, min(100, c.cfg.MaxPosts))
	}
	if listing == "top" {
		reqURL += "&t=week"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s/%s: %w", subreddit, listing, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("r/%s/%s status %d", subreddit, listing, resp.StatusCode)
	}

	var page listingPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode r/%s/%s: %w", subreddit, listing, err)
	}

	posts := make([]listingPost, 0, len(page.Data.Children))
	for _, child := range page.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// fetchComments pulls the top-level comment page for a post, capped at
// MaxComments. Only available in authenticated mode.
func (c *Client) fetchComments(ctx context.Context, subreddit, postID string) ([]RawComment, error) {
	reqURL := fmt.Sprintf("%s/r/%s/comments/%s.json?limit=%d&depth=1",
		c.oauthURL, subreddit, postID, c.cfg.MaxComments)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch comments %s: %w", postID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("comments %s status %d", postID, resp.StatusCode)
	}

	// The endpoint returns two listings: the post itself, then its comments.
	var pages []commentPage
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		return nil, fmt.Errorf("decode comments %s: %w", postID, err)
	}
	if len(pages) < 2 {
		return nil, nil
	}

	var comments []RawComment
	for _, child := range pages[1].Data.Children {
		if child.Kind != "t1" {
			continue // "more" stubs and other non-comment nodes
		}
		comments = append(comments, RawComment{
			ID:         child.Data.ID,
			Author:     child.Data.Author,
			Body:       child.Data.Body,
			Score:      child.Data.Score,
			CreatedUTC: child.Data.CreatedUTC,
		})
		if len(comments) >= c.cfg.MaxComments {
			break
		}
	}
	return comments, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.Authenticated() {
		c.mu.Lock()
		req.Header.Set("Authorization", "Bearer "+c.token)
		c.mu.Unlock()
	}
}

// pause sleeps for the configured rate-limit delay, aborting on context
// cancellation.
func (c *Client) pause(ctx context.Context) error {
	if c.cfg.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.Delay):
		return nil
	}
}

func sortByScore(posts []RawPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Score > posts[j].Score
	})
}

// listingPage is the wire shape of a subreddit listing.
type listingPage struct {
	Data struct {
		Children []struct {
			Data listingPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type listingPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Selftext    string  `json:"selftext"`
	IsSelf      bool    `json:"is_self"`
	LinkFlair   string  `json:"link_flair_text"`
	Stickied    bool    `json:"stickied"`
}

func (p listingPost) toRaw(subreddit string) RawPost {
	return RawPost{
		ID:          p.ID,
		Title:       p.Title,
		Author:      p.Author,
		Subreddit:   subreddit,
		Score:       p.Score,
		UpvoteRatio: p.UpvoteRatio,
		NumComments: p.NumComments,
		CreatedUTC:  p.CreatedUTC,
		URL:         p.URL,
		Permalink:   "https://reddit.com" + p.Permalink,
		Selftext:    p.Selftext,
		IsSelf:      p.IsSelf,
		LinkFlair:   p.LinkFlair,
		FetchedAt:   time.Now().UTC(),
	}
}

// commentPage is the wire shape of one listing in a comments response.
type commentPage struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID         string  `json:"id"`
				Author     string  `json:"author"`
				Body       string  `json:"body"`
				Score      int     `json:"score"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
