package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"reddigest/internal/timewindow"
)

// fetchRSS reads a subreddit's Atom feed. It is the fallback when the JSON
// listing endpoints are unavailable (rate limiting, outages). Feeds carry no
// scores, upvote ratios, or comments; the normalizer defaults those, and the
// fetch-time min-score filter does not apply.
func (c *Client) fetchRSS(ctx context.Context, subreddit string, w timewindow.Window) ([]RawPost, error) {
	feedURL := fmt.Sprintf("%s/r/%s/.rss", c.publicURL, subreddit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request r/%s: %w", subreddit, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss r/%s status %d", subreddit, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss r/%s: %w", subreddit, err)
	}

	var posts []RawPost
	for _, entry := range feed.Items {
		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}
		if !w.Contains(published) {
			continue
		}

		author := ""
		if entry.Author != nil {
			author = strings.TrimPrefix(entry.Author.Name, "/u/")
		}

		posts = append(posts, RawPost{
			ID:         feedEntryID(entry.GUID),
			Title:      entry.Title,
			Author:     author,
			Subreddit:  subreddit,
			CreatedUTC: float64(published.Unix()),
			URL:        entry.Link,
			Permalink:  entry.Link,
			FetchedAt:  time.Now().UTC(),
		})
		if len(posts) >= c.cfg.MaxPosts {
			break
		}
	}

	return posts, nil
}

// feedEntryID strips Reddit's thing-kind prefix ("t3_") from a feed GUID.
func feedEntryID(guid string) string {
	if i := strings.IndexByte(guid, '_'); i >= 0 {
		return guid[i+1:]
	}
	return guid
}
