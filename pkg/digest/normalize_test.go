package digest

import (
	"testing"

	"reddigest/pkg/reddit"
)

func TestNormalizeDropsRecordsWithoutID(t *testing.T) {
	raw := []reddit.RawPost{
		{ID: "a", Subreddit: "go", Score: 10},
		{Subreddit: "go", Score: 999},
		{ID: "b", Subreddit: "go", Score: 3},
		{Subreddit: "rust"},
	}

	posts, dropped := Normalize(raw)
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if posts[0].ID != "a" || posts[1].ID != "b" {
		t.Errorf("order not preserved: %s, %s", posts[0].ID, posts[1].ID)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	posts, dropped := Normalize([]reddit.RawPost{{ID: "a", Subreddit: "go"}})
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}

	p := posts[0]
	if p.Author != "[deleted]" {
		t.Errorf("author = %q, want [deleted]", p.Author)
	}
	if p.UpvoteRatio != 0.5 {
		t.Errorf("upvote ratio = %v, want neutral 0.5", p.UpvoteRatio)
	}
	if p.Selftext != "" {
		t.Errorf("selftext = %q, want empty", p.Selftext)
	}

	// Ratio above 1 is clamped, a present ratio is kept.
	posts, _ = Normalize([]reddit.RawPost{{ID: "b", UpvoteRatio: 1.4}, {ID: "c", UpvoteRatio: 0.87}})
	if posts[0].UpvoteRatio != 1 {
		t.Errorf("ratio = %v, want clamped to 1", posts[0].UpvoteRatio)
	}
	if posts[1].UpvoteRatio != 0.87 {
		t.Errorf("ratio = %v, want 0.87", posts[1].UpvoteRatio)
	}
}

func TestNormalizeSkipsRemovedComments(t *testing.T) {
	raw := []reddit.RawPost{{
		ID: "a",
		Comments: []reddit.RawComment{
			{Author: "u1", Body: "useful reply", Score: 4},
			{Author: "u2", Body: "[deleted]", Score: 10},
			{Author: "u3", Body: "[removed]", Score: 8},
			{Author: "", Body: "anonymous take", Score: 1},
			{Author: "u4", Body: "", Score: 2},
		},
	}}

	posts, _ := Normalize(raw)
	comments := posts[0].Comments
	if len(comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(comments))
	}
	if comments[0].Body != "useful reply" {
		t.Errorf("first comment = %q", comments[0].Body)
	}
	if comments[1].Author != "[deleted]" {
		t.Errorf("missing comment author = %q, want [deleted]", comments[1].Author)
	}
}
