package digest

import "reddigest/pkg/reddit"

// defaultUpvoteRatio is the neutral approval value used when the fetch
// collaborator did not return one.
const defaultUpvoteRatio = 0.5

// Normalize converts raw fetch records into canonical Posts. Records without
// an id are dropped and counted rather than propagated; missing optional
// fields get defaults. The returned slice preserves input order.
func Normalize(raw []reddit.RawPost) (posts []Post, dropped int) {
	for _, r := range raw {
		if r.ID == "" {
			dropped++
			continue
		}
		posts = append(posts, normalizePost(r))
	}
	return posts, dropped
}

func normalizePost(r reddit.RawPost) Post {
	author := r.Author
	if author == "" {
		author = "[deleted]"
	}

	ratio := r.UpvoteRatio
	if ratio <= 0 {
		ratio = defaultUpvoteRatio
	} else if ratio > 1 {
		ratio = 1
	}

	var comments []Comment
	for _, c := range r.Comments {
		if c.Body == "" || c.Body == "[deleted]" || c.Body == "[removed]" {
			continue
		}
		cAuthor := c.Author
		if cAuthor == "" {
			cAuthor = "[deleted]"
		}
		comments = append(comments, Comment{
			Author:    cAuthor,
			Body:      c.Body,
			Score:     c.Score,
			CreatedAt: c.CreatedAt(),
		})
	}

	return Post{
		ID:          r.ID,
		Title:       r.Title,
		Subreddit:   r.Subreddit,
		Author:      author,
		Permalink:   r.Permalink,
		Selftext:    r.Selftext,
		Score:       r.Score,
		NumComments: r.NumComments,
		UpvoteRatio: ratio,
		CreatedAt:   r.CreatedAt(),
		Comments:    comments,
	}
}
