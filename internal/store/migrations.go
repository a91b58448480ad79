package store

const schema = `
CREATE TABLE IF NOT EXISTS posts (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    subreddit    TEXT NOT NULL,
    score        INTEGER NOT NULL DEFAULT 0,
    upvote_ratio REAL NOT NULL DEFAULT 0,
    num_comments INTEGER NOT NULL DEFAULT 0,
    created_utc  REAL NOT NULL DEFAULT 0,
    url          TEXT NOT NULL DEFAULT '',
    permalink    TEXT NOT NULL DEFAULT '',
    selftext     TEXT NOT NULL DEFAULT '',
    is_self      BOOLEAN NOT NULL DEFAULT 0,
    link_flair   TEXT NOT NULL DEFAULT '',
    comments     TEXT NOT NULL DEFAULT '[]',
    fetched_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_subreddit ON posts(subreddit);
CREATE INDEX IF NOT EXISTS idx_posts_fetched_at ON posts(fetched_at);
CREATE INDEX IF NOT EXISTS idx_posts_score ON posts(score);

CREATE TABLE IF NOT EXISTS digests (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    window_start   DATETIME NOT NULL,
    window_end     DATETIME NOT NULL,
    input_count    INTEGER NOT NULL DEFAULT 0,
    output_count   INTEGER NOT NULL DEFAULT 0,
    filtered_count INTEGER NOT NULL DEFAULT 0,
    medians        TEXT NOT NULL DEFAULT '{}',
    summary        TEXT NOT NULL DEFAULT '',
    created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_digests_created ON digests(created_at);
`
